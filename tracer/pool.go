package tracer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/scene"
	"github.com/Vargol/PhotonPump-sub000/types"
	"go.uber.org/multierr"
)

// A Pool splits ray batches across a set of tracers.
type Pool struct {
	logger log.Logger

	sync.Mutex

	scene     *scene.Scene
	tracers   []Tracer
	scheduler BlockScheduler
	counters  *counters
	stats     BatchStats
	closed    bool
}

// Create a pool of numWorkers cpu tracers for a prepared scene. If
// numWorkers is not positive one tracer per cpu is started.
func NewPool(sc *scene.Scene, numWorkers int, scheduler BlockScheduler) (*Pool, error) {
	if sc == nil {
		return nil, ErrNoScene
	}
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if scheduler == nil {
		scheduler = PerfectScheduler()
	}

	p := &Pool{
		logger:    log.New("tracer"),
		scene:     sc,
		scheduler: scheduler,
		counters:  &counters{},
	}
	for index := 0; index < numWorkers; index++ {
		p.tracers = append(p.tracers, newCpuTracer(fmt.Sprintf("cpu-%d", index), sc, p.counters))
	}
	p.logger.Infof("started %d tracers", numWorkers)
	return p, nil
}

// Close shuts down all tracers.
func (p *Pool) Close() {
	p.Lock()
	defer p.Unlock()

	for _, tr := range p.tracers {
		tr.Close()
	}
	p.tracers = nil
	p.closed = true
}

// Trace finds the closest hit for each ray. hits must have the same length
// as rays.
func (p *Pool) Trace(ctx context.Context, rays []types.Ray, hits []scene.Hit) error {
	if len(hits) != len(rays) {
		return ErrSizeMismatch
	}
	return p.dispatch(ctx, rays, hits, nil)
}

// Occluded runs an any-hit query for each ray. occluded must have the same
// length as rays.
func (p *Pool) Occluded(ctx context.Context, rays []types.Ray, occluded []bool) error {
	if len(occluded) != len(rays) {
		return ErrSizeMismatch
	}
	return p.dispatch(ctx, rays, nil, occluded)
}

// Stats returns the statistics of the last batch.
func (p *Pool) Stats() BatchStats {
	p.Lock()
	defer p.Unlock()
	return p.stats
}

// Totals returns the number of rays traced and hits found since the pool
// was created.
func (p *Pool) Totals() (rays, hits int64) {
	return p.counters.rays.Load(), p.counters.hits.Load()
}

func (p *Pool) dispatch(ctx context.Context, rays []types.Ray, hits []scene.Hit, occluded []bool) error {
	p.Lock()
	defer p.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if len(p.tracers) == 0 {
		return ErrNoTracers
	}
	if len(rays) == 0 {
		p.stats = BatchStats{}
		return nil
	}

	start := time.Now()
	blockAssignment := p.scheduler.Schedule(p.tracers, len(rays))

	doneChan := make(chan int, len(p.tracers))
	errChan := make(chan error, len(p.tracers))
	pending := 0
	offset := 0
	for index, tr := range p.tracers {
		n := blockAssignment[index]
		if n == 0 {
			continue
		}
		req := BlockRequest{
			Ctx:      ctx,
			Rays:     rays[offset : offset+n],
			DoneChan: doneChan,
			ErrChan:  errChan,
		}
		if occluded != nil {
			req.Occluded = occluded[offset : offset+n]
		} else {
			req.Hits = hits[offset : offset+n]
		}
		tr.Enqueue(req)
		offset += n
		pending++
	}

	var err error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case blockErr := <-errChan:
			err = multierr.Append(err, blockErr)
		}
	}
	if err != nil {
		if multierrAll(err, ErrInterrupted) {
			return ErrInterrupted
		}
		return err
	}

	p.stats = BatchStats{
		Tracers:   make([]TracerStat, 0, len(p.tracers)),
		Rays:      len(rays),
		TraceTime: time.Since(start),
	}
	for index, tr := range p.tracers {
		if blockAssignment[index] == 0 {
			continue
		}
		stats := tr.Stats()
		p.stats.Hits += stats.BlockHits
		p.stats.Tracers = append(p.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			Rays:         stats.BlockRays,
			BatchPercent: 100 * float32(stats.BlockRays) / float32(len(rays)),
			TraceTime:    stats.BlockTime,
		})
	}
	p.logger.Debugf("traced %d rays (%d hits) in %s", len(rays), p.stats.Hits, p.stats.TraceTime)
	return nil
}

// Check whether every error combined in err equals target.
func multierrAll(err, target error) bool {
	for _, e := range multierr.Errors(err) {
		if e != target {
			return false
		}
	}
	return true
}
