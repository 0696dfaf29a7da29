package accel

import (
	"time"

	"github.com/Vargol/PhotonPump-sub000/types"
)

// NullAccelerator tests every primitive against each ray. It is used for
// tiny primitive lists where building an index costs more than it saves
// and as the reference implementation for the other accelerators.
type NullAccelerator struct {
	primitives PrimitiveList
	n          int
	stats      Stats
}

// Create a new linear accelerator.
func NewNullAccelerator() *NullAccelerator {
	return &NullAccelerator{}
}

// Build records the primitive list; no index is constructed.
func (a *NullAccelerator) Build(primitives PrimitiveList) {
	start := time.Now()
	a.primitives = primitives
	a.n = primitives.NumPrimitives()
	a.stats = newStats("null", a.n)
	a.stats.updateLeaf(0, a.n)
	a.stats.finalize(0, 0, time.Since(start))
}

// Intersect tests all primitives in order.
func (a *NullAccelerator) Intersect(r *types.Ray, state *IntersectionState) {
	for i := 0; i < a.n; i++ {
		a.primitives.IntersectPrimitive(r, i, state)
		if state.Shadow && state.Hit() {
			return
		}
	}
}

// Stats returns the statistics of the last build.
func (a *NullAccelerator) Stats() Stats {
	return a.stats
}
