package accel

import (
	"fmt"

	"go.uber.org/multierr"
)

// Options controls accelerator selection and the tuning parameters of the
// individual builders.
type Options struct {
	// Hard limit for tree depth. Values above MaxStackSize are clamped.
	MaxDepth int

	// Nodes with at most this many primitives always become leaves.
	KdMaxLeafSize  int
	BihMaxLeafSize int

	// SAH cost model parameters.
	IntersectCost float32
	TraversalCost float32
	EmptyBonus    float32

	// A BIH node whose box is more than Bvh2Threshold times wider than the
	// space occupied by its primitives is replaced by a tight BVH2 clip node.
	// The default of 1.3 triggers when the occupied extent shrinks by >30%.
	Bvh2Threshold float32

	// Send primitives lying on the split plane to the smaller child cell. If
	// false they are always sent to the left child.
	PlanarToSmallerCell bool

	// Lists with at most this many primitives use the linear accelerator.
	NullThreshold int

	// Object lists with more primitives than this use a uniform grid.
	GridThreshold int

	// Uniform grid resolution controls.
	GridMaxCells int
	GridDensity  float32
}

// Get the default accelerator options.
func DefaultOptions() Options {
	return Options{
		MaxDepth:            MaxStackSize,
		KdMaxLeafSize:       0,
		BihMaxLeafSize:      2,
		IntersectCost:       0.5,
		TraversalCost:       1,
		EmptyBonus:          0.2,
		Bvh2Threshold:       1.3,
		PlanarToSmallerCell: true,
		NullThreshold:       2,
		GridThreshold:       2000000,
		GridMaxCells:        128,
		GridDensity:         1,
	}
}

// Validate options and return an error listing every invalid field.
func (o Options) Validate() error {
	var err error
	if o.MaxDepth < 1 {
		err = multierr.Append(err, fmt.Errorf("max depth must be positive; got %d", o.MaxDepth))
	}
	if o.KdMaxLeafSize < 0 || o.BihMaxLeafSize < 0 {
		err = multierr.Append(err, fmt.Errorf("max leaf sizes must not be negative; got kd=%d bih=%d", o.KdMaxLeafSize, o.BihMaxLeafSize))
	}
	if o.IntersectCost <= 0 {
		err = multierr.Append(err, fmt.Errorf("intersect cost must be positive; got %f", o.IntersectCost))
	}
	if o.TraversalCost < 0 {
		err = multierr.Append(err, fmt.Errorf("traversal cost must not be negative; got %f", o.TraversalCost))
	}
	if o.EmptyBonus < 0 || o.EmptyBonus >= 1 {
		err = multierr.Append(err, fmt.Errorf("empty bonus must be in [0, 1); got %f", o.EmptyBonus))
	}
	if o.Bvh2Threshold < 1 {
		err = multierr.Append(err, fmt.Errorf("bvh2 threshold must be >= 1; got %f", o.Bvh2Threshold))
	}
	if o.NullThreshold < 0 || o.GridThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("selection thresholds must not be negative; got null=%d grid=%d", o.NullThreshold, o.GridThreshold))
	}
	if o.GridMaxCells < 1 || o.GridDensity <= 0 {
		err = multierr.Append(err, fmt.Errorf("grid resolution must be positive; got cells=%d density=%f", o.GridMaxCells, o.GridDensity))
	}
	return err
}

func (o Options) maxDepth() int {
	if o.MaxDepth > MaxStackSize {
		return MaxStackSize
	}
	if o.MaxDepth < 1 {
		return 1
	}
	return o.MaxDepth
}
