package geometry

import (
	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// SphereList is a collection of independent spheres.
type SphereList struct {
	Centers []types.Vec3
	Radii   []float32
}

// Create a new sphere list.
func NewSphereList(centers []types.Vec3, radii []float32) (*SphereList, error) {
	l := &SphereList{Centers: centers, Radii: radii}
	if err := l.Validate(); err != nil {
		return nil, errors.Wrap(err, "sphere list")
	}
	return l, nil
}

// Validate checks that every sphere has a positive radius.
func (l *SphereList) Validate() error {
	if len(l.Centers) != len(l.Radii) {
		return errors.Errorf("got %d centers and %d radii", len(l.Centers), len(l.Radii))
	}
	var err error
	for i, radius := range l.Radii {
		if !(radius > 0) {
			err = multierr.Append(err, errors.Errorf("sphere %d: radius must be positive; got %f", i, radius))
		}
	}
	return err
}

func (l *SphereList) NumPrimitives() int {
	return len(l.Centers)
}

func (l *SphereList) PrimitiveBound(primID, boundIndex int) float32 {
	c := l.Centers[primID][boundIndex>>1]
	if boundIndex&1 == 0 {
		return c - l.Radii[primID]
	}
	return c + l.Radii[primID]
}

func (l *SphereList) WorldBounds(transform *mgl32.Mat4) types.BBox {
	bounds := types.EmptyBBox()
	for i, c := range l.Centers {
		r := l.Radii[i]
		box := types.NewBBox(c.Sub(types.XYZ(r, r, r)), c.Add(types.XYZ(r, r, r)))
		if transform != nil {
			box = box.Transform(*transform)
		}
		bounds.Include(box)
	}
	return bounds
}

// IntersectPrimitive solves the ray/sphere quadratic. The hit stores the
// spherical coordinates of the hit point as U (azimuth) and V (polar angle),
// both normalized to [0, 1].
func (l *SphereList) IntersectPrimitive(r *types.Ray, primID int, state *accel.IntersectionState) {
	center := l.Centers[primID]
	radius := l.Radii[primID]

	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return
	}
	sq := math32.Sqrt(disc)

	t := (-b - sq) / (2 * a)
	if !r.IsInside(t) {
		t = (-b + sq) / (2 * a)
		if !r.IsInside(t) {
			return
		}
	}
	r.Max = t

	n := r.Point(t).Sub(center).Mul(1 / radius)
	phi := math32.Atan2(n[1], n[0])
	if phi < 0 {
		phi += 2 * math32.Pi
	}
	theta := math32.Acos(math32.Max(-1, math32.Min(1, n[2])))
	state.SetIntersection(primID, phi/(2*math32.Pi), theta/math32.Pi, 0)
}
