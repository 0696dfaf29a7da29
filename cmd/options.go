package cmd

import (
	"fmt"
	"strings"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// AcceleratorFlags returns the flags that map onto accel.Options. Flag
// defaults mirror accel.DefaultOptions.
func AcceleratorFlags() []cli.Flag {
	def := accel.DefaultOptions()
	return []cli.Flag{
		cli.StringFlag{
			Name:  "accel, a",
			Value: "auto",
			Usage: fmt.Sprintf("accelerator type for meshes (%s)", strings.Join(accel.Names(), ", ")),
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: def.MaxDepth,
			Usage: fmt.Sprintf("maximum tree depth (at most %d)", accel.MaxStackSize),
		},
		cli.IntFlag{
			Name:  "kd-max-leaf",
			Value: def.KdMaxLeafSize,
			Usage: "k-d tree nodes with at most this many primitives become leaves",
		},
		cli.IntFlag{
			Name:  "bih-max-leaf",
			Value: def.BihMaxLeafSize,
			Usage: "BIH nodes with at most this many primitives become leaves",
		},
		cli.Float64Flag{
			Name:  "intersect-cost",
			Value: float64(def.IntersectCost),
			Usage: "SAH primitive intersection cost",
		},
		cli.Float64Flag{
			Name:  "traversal-cost",
			Value: float64(def.TraversalCost),
			Usage: "SAH node traversal cost",
		},
		cli.Float64Flag{
			Name:  "empty-bonus",
			Value: float64(def.EmptyBonus),
			Usage: "SAH cost reduction for splits that cut off empty space",
		},
		cli.Float64Flag{
			Name:  "bvh2-threshold",
			Value: float64(def.Bvh2Threshold),
			Usage: "node to occupied extent ratio above which BIH emits a BVH2 clip node",
		},
		cli.BoolFlag{
			Name:  "planar-left",
			Usage: "send primitives lying on a k-d split plane to the left child instead of the smaller cell",
		},
		cli.IntFlag{
			Name:  "grid-threshold",
			Value: def.GridThreshold,
			Usage: "mesh primitive count above which a uniform grid is selected automatically",
		},
		cli.IntFlag{
			Name:  "grid-max-cells",
			Value: def.GridMaxCells,
			Usage: "maximum uniform grid cells per axis",
		},
		cli.Float64Flag{
			Name:  "grid-density",
			Value: float64(def.GridDensity),
			Usage: "target uniform grid cells per primitive",
		},
	}
}

// Build accelerator options from the command flags.
func acceleratorOptions(ctx *cli.Context) (accel.Options, error) {
	opts := accel.DefaultOptions()
	opts.MaxDepth = ctx.Int("max-depth")
	opts.KdMaxLeafSize = ctx.Int("kd-max-leaf")
	opts.BihMaxLeafSize = ctx.Int("bih-max-leaf")
	opts.IntersectCost = float32(ctx.Float64("intersect-cost"))
	opts.TraversalCost = float32(ctx.Float64("traversal-cost"))
	opts.EmptyBonus = float32(ctx.Float64("empty-bonus"))
	opts.Bvh2Threshold = float32(ctx.Float64("bvh2-threshold"))
	opts.PlanarToSmallerCell = !ctx.Bool("planar-left")
	opts.GridThreshold = ctx.Int("grid-threshold")
	opts.GridMaxCells = ctx.Int("grid-max-cells")
	opts.GridDensity = float32(ctx.Float64("grid-density"))

	if err := opts.Validate(); err != nil {
		return opts, errors.Wrap(err, "invalid accelerator options")
	}
	if opts.MaxDepth > accel.MaxStackSize {
		logger.Warningf("max depth %d exceeds the traversal stack size; clamping to %d", opts.MaxDepth, accel.MaxStackSize)
		opts.MaxDepth = accel.MaxStackSize
	}
	return opts, nil
}

// Get the accelerator type selected with --accel; "auto" maps to automatic
// selection.
func acceleratorType(ctx *cli.Context) (string, error) {
	name := strings.ToLower(ctx.String("accel"))
	for _, known := range accel.Names() {
		if name == known {
			if name == "auto" {
				return "", nil
			}
			return name, nil
		}
	}
	if _, err := accel.NewByName(name, 0, accel.ObjectContext, accel.DefaultOptions()); err != nil {
		return "", err
	}
	return name, nil
}
