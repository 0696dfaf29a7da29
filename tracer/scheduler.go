package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split a ray batch into blocks of variable size and assign them to
	// the pool of tracers.
	//
	// This function returns the number of rays assigned to each tracer
	// in the input list. The assignments always add up to numRays.
	Schedule(tracers []Tracer, numRays int) []int
}

// The naive scheduler splits work according to the tracer speed estimates.
type naiveScheduler struct{}

// Create a scheduler that only uses tracer speed estimates.
func NaiveScheduler() BlockScheduler {
	return naiveScheduler{}
}

func (naiveScheduler) Schedule(tracers []Tracer, numRays int) []int {
	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		weights[idx] = float64(tr.SpeedEstimate())
	}
	return distribute(weights, numRays)
}

// The perfect scheduler assumes that the cost per ray between two subsequent
// batches is approximately the same and uses the throughput measured for
// each tracer in the previous batch to split the next one.
type perfectScheduler struct {
	blockAssignment []int
}

// Create a new feedback-driven scheduler.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// When previous batch information is available the scheduler estimates the
// share of tracer w for batch i+1 as:
// w_i+1 = (rays,w_i / time,w_i) / Σ(rays_i / time_i)
func (sch *perfectScheduler) Schedule(tracers []Tracer, numRays int) []int {
	// If this is the first time we schedule or the number of tracers has
	// changed fall back to the speed estimates.
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = NaiveScheduler().Schedule(tracers, numRays)
		return sch.blockAssignment
	}

	weights := make([]float64, len(tracers))
	for idx, tr := range tracers {
		stats := tr.Stats()
		if stats.BlockRays == 0 {
			// No feedback; assume it performs like the speed estimate.
			weights[idx] = float64(tr.SpeedEstimate())
			continue
		}
		weights[idx] = float64(stats.BlockRays) / math.Max(1, float64(stats.BlockTime))
	}

	// Normalize the feedback weights of tracers without feedback to the
	// same scale as the ones that reported throughput.
	var feedback, estimate float64
	var withFeedback, withoutFeedback int
	for idx, tr := range tracers {
		if tr.Stats().BlockRays == 0 {
			estimate += weights[idx]
			withoutFeedback++
		} else {
			feedback += weights[idx]
			withFeedback++
		}
	}
	if withFeedback > 0 && withoutFeedback > 0 && estimate > 0 {
		scale := (feedback / float64(withFeedback)) / (estimate / float64(withoutFeedback))
		for idx, tr := range tracers {
			if tr.Stats().BlockRays == 0 {
				weights[idx] *= scale
			}
		}
	}

	sch.blockAssignment = distribute(weights, numRays)
	return sch.blockAssignment
}

// Split total proportionally to weights. Each tracer receives at least one
// ray while there are enough rays to go around and any rounding remainder is
// assigned to the first tracer.
func distribute(weights []float64, total int) []int {
	assignment := make([]int, len(weights))
	if len(weights) == 0 || total <= 0 {
		return assignment
	}
	if total < len(weights) {
		for idx := 0; idx < total; idx++ {
			assignment[idx] = 1
		}
		return assignment
	}

	var sum float64
	for _, w := range weights {
		if w > 0 && !math.IsInf(w, 0) {
			sum += w
		}
	}

	scheduled := 0
	for idx, w := range weights {
		share := 0.0
		switch {
		case sum == 0:
			share = float64(total) / float64(len(weights))
		case w > 0 && !math.IsInf(w, 0):
			share = w * float64(total) / sum
		}
		assignment[idx] = int(math.Max(1.0, math.Floor(share)))
		scheduled += assignment[idx]
	}

	// Enforcing the one ray minimum may overshoot; take the excess from the
	// largest blocks.
	for scheduled > total {
		largest := 0
		for idx := range assignment {
			if assignment[idx] > assignment[largest] {
				largest = idx
			}
		}
		assignment[largest]--
		scheduled--
	}

	// In case rays don't add up to the total append the missing ones to the
	// first tracer.
	assignment[0] += total - scheduled
	return assignment
}
