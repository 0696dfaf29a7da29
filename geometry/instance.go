package geometry

import (
	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// An Instance places a geometry in world space.
type Instance struct {
	Geometry *Geometry

	objectToWorld mgl32.Mat4
	worldToObject mgl32.Mat4
	bounds        types.BBox
}

// Create a new instance of g. The transform must be invertible.
func NewInstance(g *Geometry, objectToWorld mgl32.Mat4) (*Instance, error) {
	if det := objectToWorld.Det(); det == 0 || math32.IsNaN(det) || math32.IsInf(det, 0) {
		return nil, errors.Errorf("instance of %q: transform is not invertible", g.Name())
	}
	return &Instance{
		Geometry:      g,
		objectToWorld: objectToWorld,
		worldToObject: objectToWorld.Inv(),
		bounds:        g.WorldBounds(&objectToWorld),
	}, nil
}

// ObjectToWorld returns the instance transform.
func (inst *Instance) ObjectToWorld() mgl32.Mat4 {
	return inst.objectToWorld
}

// Bounds returns the world space bounds of the instance.
func (inst *Instance) Bounds() types.BBox {
	return inst.bounds
}

// InstanceList is the top-level primitive list of a scene. Each primitive is
// an instance whose geometry is traversed in object space.
type InstanceList struct {
	instances []*Instance
}

// Create a new instance list.
func NewInstanceList(instances []*Instance) *InstanceList {
	return &InstanceList{instances: instances}
}

// Instance returns the instance with the given index.
func (l *InstanceList) Instance(index int) *Instance {
	return l.instances[index]
}

func (l *InstanceList) NumPrimitives() int {
	return len(l.instances)
}

func (l *InstanceList) PrimitiveBound(primID, boundIndex int) float32 {
	return l.instances[primID].bounds.Bound(boundIndex)
}

func (l *InstanceList) WorldBounds(transform *mgl32.Mat4) types.BBox {
	bounds := types.EmptyBBox()
	for _, inst := range l.instances {
		box := inst.bounds
		if transform != nil {
			box = box.Transform(*transform)
		}
		bounds.Include(box)
	}
	return bounds
}

// IntersectPrimitive transforms the ray into the instance's object space and
// traverses the instance geometry using the instance stack region. The
// direction is not renormalized so hit distances are valid in both spaces.
func (l *InstanceList) IntersectPrimitive(r *types.Ray, primID int, state *accel.IntersectionState) {
	inst := l.instances[primID]
	local := r.Transform(inst.worldToObject)

	prev := state.EnterInstance(primID)
	inst.Geometry.Intersect(&local, state)
	state.LeaveInstance(prev)

	if local.Max < r.Max {
		r.Max = local.Max
	}
}
