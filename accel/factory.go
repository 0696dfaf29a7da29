package accel

import (
	"strings"

	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/pkg/errors"
)

var factoryLogger = log.New("accel")

// Select an accelerator for a list of n primitives used in the given context.
//
// Tiny lists are scanned linearly. Instance lists use a BIH which builds fast
// and copes well with overlapping instance bounds. Object lists use a SAH k-d
// tree unless they are large enough for build time to dominate, in which case
// a uniform grid is used.
func New(n int, ctx Context, opts Options) Accelerator {
	var accel Accelerator
	switch {
	case n <= opts.NullThreshold:
		accel = NewNullAccelerator()
	case ctx == InstanceContext:
		accel = NewBIH(opts)
	case n > opts.GridThreshold:
		accel = NewUniformGrid(opts)
	default:
		accel = NewKDTree(opts)
	}
	factoryLogger.Debugf("selected %T for %d primitives (%s context)", accel, n, ctx)
	return accel
}

// Create an accelerator by name. The special name "auto" defers the choice
// to New.
func NewByName(name string, n int, ctx Context, opts Options) (Accelerator, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return New(n, ctx, opts), nil
	case "kdtree", "kd":
		return NewKDTree(opts), nil
	case "bih":
		return NewBIH(opts), nil
	case "grid", "uniformgrid":
		return NewUniformGrid(opts), nil
	case "null", "none":
		return NewNullAccelerator(), nil
	}
	return nil, errors.Errorf("unknown accelerator type %q", name)
}

// Names lists the accelerator types accepted by NewByName.
func Names() []string {
	return []string{"auto", "kdtree", "bih", "grid", "null"}
}
