package accel

import (
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/go-gl/mathgl/mgl32"
)

// The PrimitiveList interface is implemented by all primitive collections
// that can be indexed by an accelerator. Primitives are addressed by a
// 0-based index in the range [0, NumPrimitives()).
type PrimitiveList interface {
	// Get the number of primitives in the list.
	NumPrimitives() int

	// Get a single bound component of a primitive where
	// boundIndex = 2*axis + {0: min, 1: max}.
	PrimitiveBound(primID, boundIndex int) float32

	// Get the bounds of all primitives after applying an optional transform.
	WorldBounds(transform *mgl32.Mat4) types.BBox

	// Intersect the ray with a primitive. Implementations must only accept
	// hits inside [r.Min, r.Max] and, on a hit, shrink r.Max and record it
	// in state.
	IntersectPrimitive(r *types.Ray, primID int, state *IntersectionState)
}

// The Accelerator interface is implemented by all spatial indices.
//
// Build must complete before any call to Intersect and must not be invoked
// concurrently with itself or with Intersect. Once Build returns, Intersect
// may be called by any number of goroutines provided that each one uses its
// own IntersectionState.
type Accelerator interface {
	// Index the supplied primitive list.
	Build(primitives PrimitiveList)

	// Find the closest primitive hit along the ray.
	Intersect(r *types.Ray, state *IntersectionState)

	// Get statistics collected during the last build.
	Stats() Stats
}

// The context in which an accelerator will be used. Instance lists are
// typically much shorter than object level primitive lists.
type Context uint8

const (
	ObjectContext Context = iota
	InstanceContext
)

func (c Context) String() string {
	if c == InstanceContext {
		return "instance"
	}
	return "object"
}
