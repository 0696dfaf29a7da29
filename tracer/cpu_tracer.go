package tracer

import (
	"fmt"
	"sync"
	"time"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/scene"
	"go.uber.org/atomic"
)

// The number of rays traced between cancellation checks.
const cancelCheckInterval = 64

// Counters shared by all tracers of a pool.
type counters struct {
	rays atomic.Int64
	hits atomic.Int64
}

// A tracer that casts rays through a scene on a dedicated goroutine. Each
// tracer owns the intersection state used by its queries.
type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	id    string
	scene *scene.Scene
	state *accel.IntersectionState

	// A channel for receiving block requests from the pool.
	blockReqChan chan BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for the last traced block.
	stats *Stats

	counters *counters
}

// Create a new cpu tracer and start its worker.
func newCpuTracer(id string, sc *scene.Scene, shared *counters) *cpuTracer {
	tr := &cpuTracer{
		logger:       log.New(fmt.Sprintf("tracer (%s)", id)),
		id:           id,
		scene:        sc,
		state:        accel.NewIntersectionState(),
		blockReqChan: make(chan BlockRequest, 1),
		stats:        &Stats{},
		counters:     shared,
	}
	tr.startWorker()
	return tr
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// All cpu tracers share the baseline speed.
func (tr *cpuTracer) SpeedEstimate() float32 {
	return 1.0
}

// Shutdown the worker.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
		tr.wg.Wait()
	}
}

// Enqueue block request. The pool never has more than one block in flight
// per tracer so this does not block.
func (tr *cpuTracer) Enqueue(blockReq BlockRequest) {
	tr.blockReqChan <- blockReq
}

// Retrieve last block statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

func (tr *cpuTracer) startWorker() {
	tr.closeChan = make(chan struct{})
	readyChan := make(chan struct{})
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		close(readyChan)
		for {
			select {
			case blockReq := <-tr.blockReqChan:
				start := time.Now()
				hits, err := tr.traceBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				tr.stats.BlockRays = len(blockReq.Rays)
				tr.stats.BlockHits = hits
				tr.stats.BlockTime = time.Since(start)
				tr.counters.rays.Add(int64(len(blockReq.Rays)))
				tr.counters.hits.Add(int64(hits))

				blockReq.DoneChan <- len(blockReq.Rays)
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Trace all rays in a block and return the number of hits.
func (tr *cpuTracer) traceBlock(blockReq *BlockRequest) (int, error) {
	hits := 0
	for index := range blockReq.Rays {
		if index%cancelCheckInterval == 0 && blockReq.Ctx != nil {
			if err := blockReq.Ctx.Err(); err != nil {
				tr.logger.Infof("interrupted after %d of %d rays", index, len(blockReq.Rays))
				return hits, ErrInterrupted
			}
		}

		r := blockReq.Rays[index]
		if blockReq.Occluded != nil {
			blockReq.Occluded[index] = tr.scene.Occluded(&r, tr.state)
			if blockReq.Occluded[index] {
				hits++
			}
			continue
		}

		blockReq.Hits[index] = tr.scene.Intersect(&r, tr.state)
		if blockReq.Hits[index].Ok() {
			hits++
		}
	}
	return hits, nil
}
