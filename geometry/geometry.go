package geometry

import (
	"sync"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// Geometry couples a primitive list with the accelerator that indexes it.
// The accelerator is built on first use; concurrent callers block until
// the build completes.
type Geometry struct {
	logger log.Logger

	name       string
	primitives accel.PrimitiveList
	accelType  string
	opts       accel.Options

	built atomic.Bool
	mutex sync.Mutex
	accel accel.Accelerator
}

// Create a new geometry. The accelerator type is selected automatically
// unless overridden with SetAcceleratorType.
func New(name string, primitives accel.PrimitiveList, opts accel.Options) *Geometry {
	return &Geometry{
		logger:     log.New("geometry"),
		name:       name,
		primitives: primitives,
		accelType:  "auto",
		opts:       opts,
	}
}

// Name returns the geometry name.
func (g *Geometry) Name() string {
	return g.name
}

// Primitives returns the indexed primitive list.
func (g *Geometry) Primitives() accel.PrimitiveList {
	return g.primitives
}

// NumPrimitives returns the number of indexed primitives.
func (g *Geometry) NumPrimitives() int {
	return g.primitives.NumPrimitives()
}

// SetAcceleratorType selects the accelerator by name. It must be called
// before the geometry is first prepared.
func (g *Geometry) SetAcceleratorType(accelType string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.built.Load() {
		return errors.Errorf("geometry %q: accelerator already built", g.name)
	}
	g.accelType = accelType
	return nil
}

// Prepare builds the accelerator if it has not been built yet.
func (g *Geometry) Prepare() error {
	if g.built.Load() {
		return nil
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.built.Load() {
		return nil
	}

	n := g.primitives.NumPrimitives()
	a, err := accel.NewByName(g.accelType, n, accel.ObjectContext, g.opts)
	if err != nil {
		return errors.Wrapf(err, "geometry %q", g.name)
	}
	a.Build(g.primitives)
	g.accel = a
	g.built.Store(true)

	stats := a.Stats()
	g.logger.Infof("built %s accelerator for %q (%d primitives) in %d ms", stats.Type, g.name, n, stats.BuildTime.Nanoseconds()/1e6)
	return nil
}

// Intersect the ray with the geometry, building the accelerator if needed.
func (g *Geometry) Intersect(r *types.Ray, state *accel.IntersectionState) {
	if !g.built.Load() {
		if err := g.Prepare(); err != nil {
			g.logger.Errorf("%v", err)
			return
		}
	}
	g.accel.Intersect(r, state)
}

// WorldBounds returns the bounds of the primitives after applying an
// optional transform.
func (g *Geometry) WorldBounds(transform *mgl32.Mat4) types.BBox {
	return g.primitives.WorldBounds(transform)
}

// Stats returns the accelerator build statistics. The second return value
// is false if the geometry has not been prepared yet.
func (g *Geometry) Stats() (accel.Stats, bool) {
	if !g.built.Load() {
		return accel.Stats{}, false
	}
	return g.accel.Stats(), true
}
