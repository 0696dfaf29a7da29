package tracer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// The number of traced rays and the percentage of the batch they
	// represent.
	Rays         int
	BatchPercent float32

	// Trace time for the assigned block.
	TraceTime time.Duration
}

// Throughput in rays per second.
func (s TracerStat) RaysPerSecond() float64 {
	if s.TraceTime <= 0 {
		return 0
	}
	return float64(s.Rays) / s.TraceTime.Seconds()
}

type BatchStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// The number of rays in the batch and the number of them that hit
	// something.
	Rays int
	Hits int

	// Total time for the entire batch.
	TraceTime time.Duration
}
