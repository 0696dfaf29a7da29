package tracer

import (
	"context"
	"time"

	"github.com/Vargol/PhotonPump-sub000/scene"
	"github.com/Vargol/PhotonPump-sub000/types"
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	Ctx context.Context

	// The rays to trace. Tracers work on private copies so the caller's
	// rays are never modified.
	Rays []types.Ray

	// Exactly one of the following result slices is set. Hits receives the
	// closest hit of each ray while Occluded receives the result of an
	// any-hit query.
	Hits     []scene.Hit
	Occluded []bool

	// A channel to signal on block completion with the number of traced rays.
	DoneChan chan<- int

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics for the last processed block.
type Stats struct {
	// The number of rays in the block and the number of them that hit
	// something.
	BlockRays int
	BlockHits int

	// The time for tracing this block.
	BlockTime time.Duration
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracer's computation speed estimate compared to a single
	// cpu worker.
	SpeedEstimate() float32

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Retrieve last block statistics.
	Stats() *Stats
}
