package tracer

import "github.com/pkg/errors"

var (
	ErrNoTracers    = errors.New("tracer: no tracers attached")
	ErrNoScene      = errors.New("tracer: no scene defined")
	ErrInterrupted  = errors.New("tracer: interrupted while tracing")
	ErrSizeMismatch = errors.New("tracer: result slice length does not match the number of rays")
	ErrPoolClosed   = errors.New("tracer: pool closed")
)
