package scene

import (
	"context"
	"fmt"
	"time"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/geometry"
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotPrepared = errors.New("scene: not prepared")
	ErrPrepared    = errors.New("scene: already prepared")
)

// The result of a scene intersection query.
type Hit struct {
	// The hit instance and the primitive within its geometry. Both are
	// accel.NoID on a miss.
	Instance  int
	Primitive int

	// Hit distance and surface parameters.
	T    float32
	U, V float32

	// World space hit position.
	Position types.Vec3
}

// Ok returns true if the query hit something.
func (h Hit) Ok() bool {
	return h.Primitive != accel.NoID
}

// A Scene is a set of geometry instances indexed by a top-level accelerator.
type Scene struct {
	logger log.Logger
	opts   accel.Options

	geometries []*geometry.Geometry
	instances  []*geometry.Instance

	list *geometry.InstanceList
	top  accel.Accelerator
}

// Create an empty scene.
func New(opts accel.Options) *Scene {
	return &Scene{
		logger: log.New("scene"),
		opts:   opts,
	}
}

// Add an instance of g to the scene and return its index.
func (s *Scene) AddInstance(g *geometry.Geometry, objectToWorld mgl32.Mat4) (int, error) {
	if s.top != nil {
		return accel.NoID, ErrPrepared
	}
	if g == nil {
		return accel.NoID, errors.New("scene: nil geometry")
	}

	inst, err := geometry.NewInstance(g, objectToWorld)
	if err != nil {
		return accel.NoID, errors.Wrap(err, "scene")
	}

	known := false
	for _, other := range s.geometries {
		if other == g {
			known = true
			break
		}
	}
	if !known {
		s.geometries = append(s.geometries, g)
	}

	s.instances = append(s.instances, inst)
	return len(s.instances) - 1, nil
}

// Geometries returns the distinct geometries referenced by the scene.
func (s *Scene) Geometries() []*geometry.Geometry {
	return s.geometries
}

// NumInstances returns the number of instances in the scene.
func (s *Scene) NumInstances() int {
	return len(s.instances)
}

// Prepare builds the accelerator of every referenced geometry in parallel
// and then indexes the instances.
func (s *Scene) Prepare(ctx context.Context) error {
	if s.top != nil {
		return nil
	}

	start := time.Now()
	group, gctx := errgroup.WithContext(ctx)
	for _, g := range s.geometries {
		g := g
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return g.Prepare()
		})
	}
	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "scene: prepare")
	}

	s.list = geometry.NewInstanceList(s.instances)
	top := accel.New(s.list.NumPrimitives(), accel.InstanceContext, s.opts)
	top.Build(s.list)
	s.top = top

	s.logger.Infof("prepared %d geometries and %d instances in %d ms", len(s.geometries), len(s.instances), time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Intersect finds the closest hit along r. The ray interval is shrunk to the
// hit distance.
func (s *Scene) Intersect(r *types.Ray, state *accel.IntersectionState) Hit {
	state.Reset()
	state.Shadow = false
	if s.top == nil {
		s.logger.Error(ErrNotPrepared.Error())
		return Hit{Instance: accel.NoID, Primitive: accel.NoID}
	}

	s.top.Intersect(r, state)
	if !state.Hit() {
		return Hit{Instance: accel.NoID, Primitive: accel.NoID}
	}
	return Hit{
		Instance:  state.Instance,
		Primitive: state.ID,
		T:         r.Max,
		U:         state.U,
		V:         state.V,
		Position:  r.Point(r.Max),
	}
}

// Occluded returns true if anything lies inside the ray interval. The
// traversal stops at the first hit.
func (s *Scene) Occluded(r *types.Ray, state *accel.IntersectionState) bool {
	state.Reset()
	if s.top == nil {
		s.logger.Error(ErrNotPrepared.Error())
		return false
	}

	state.Shadow = true
	probe := *r
	s.top.Intersect(&probe, state)
	state.Shadow = false
	return state.Hit()
}

// Bounds returns the world space bounds of all instances.
func (s *Scene) Bounds() types.BBox {
	bounds := types.EmptyBBox()
	for _, inst := range s.instances {
		bounds.Include(inst.Bounds())
	}
	return bounds
}

// Instance returns the instance with the given index.
func (s *Scene) Instance(index int) *geometry.Instance {
	return s.instances[index]
}

// Stats returns the build statistics of the top-level accelerator followed by
// the statistics of every prepared geometry.
func (s *Scene) Stats() ([]accel.Stats, error) {
	if s.top == nil {
		return nil, ErrNotPrepared
	}
	stats := []accel.Stats{s.top.Stats()}
	for _, g := range s.geometries {
		st, ok := g.Stats()
		if !ok {
			return nil, errors.Errorf("scene: geometry %q not prepared", g.Name())
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func (s *Scene) String() string {
	return fmt.Sprintf("scene{geometries: %d, instances: %d}", len(s.geometries), len(s.instances))
}
