package accel

import (
	"time"

	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
)

// UniformGrid partitions the scene bounds into equally sized voxels. Each
// voxel references every primitive whose bounding box overlaps it. Grids are
// cheap to build which makes them a good fit for very large primitive lists.
type UniformGrid struct {
	logger log.Logger
	opts   Options

	primitives PrimitiveList
	bounds     types.BBox

	res         [3]int
	voxelWidth  [3]float32
	invVoxelWth [3]float32

	// Cell c references cellPrims[cellOffsets[c]:cellOffsets[c+1]].
	cellOffsets []int32
	cellPrims   []int32

	stats Stats
}

// Create a new uniform grid.
func NewUniformGrid(opts Options) *UniformGrid {
	return &UniformGrid{
		logger: log.New("grid"),
		opts:   opts,
	}
}

// Build the grid for the supplied primitive list.
func (g *UniformGrid) Build(primitives PrimitiveList) {
	start := time.Now()
	n := primitives.NumPrimitives()

	g.primitives = primitives
	g.bounds = primitives.WorldBounds(nil)
	g.stats = newStats("grid", n)
	g.res = [3]int{}
	g.cellOffsets, g.cellPrims = nil, nil

	if n == 0 || g.bounds.IsEmpty() {
		g.stats.finalize(0, 0, time.Since(start))
		return
	}

	// Grow the bounds slightly so that primitives on the boundary map to
	// valid cells and flat scenes get a non-zero width.
	ext := g.bounds.Extents()
	for axis := 0; axis < 3; axis++ {
		pad := math32.Max(1e-4*ext[axis], 1e-5*(1+math32.Abs(g.bounds.Min[axis])+math32.Abs(g.bounds.Max[axis])))
		g.bounds.Min[axis] -= pad
		g.bounds.Max[axis] += pad
	}
	ext = g.bounds.Extents()
	g.res = g.resolution(ext, n)
	for axis := 0; axis < 3; axis++ {
		g.voxelWidth[axis] = ext[axis] / float32(g.res[axis])
		g.invVoxelWth[axis] = float32(g.res[axis]) / ext[axis]
	}

	numCells := g.res[0] * g.res[1] * g.res[2]
	g.cellOffsets = make([]int32, numCells+1)

	// Count references per cell, then fill.
	var lo, hi [3]int
	for prim := 0; prim < n; prim++ {
		g.cellRange(prim, &lo, &hi)
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					g.cellOffsets[g.cellIndex(x, y, z)+1]++
				}
			}
		}
	}
	for c := 0; c < numCells; c++ {
		g.cellOffsets[c+1] += g.cellOffsets[c]
	}
	g.cellPrims = make([]int32, g.cellOffsets[numCells])
	cursor := make([]int32, numCells)
	copy(cursor, g.cellOffsets[:numCells])
	for prim := 0; prim < n; prim++ {
		g.cellRange(prim, &lo, &hi)
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					c := g.cellIndex(x, y, z)
					g.cellPrims[cursor[c]] = int32(prim)
					cursor[c]++
				}
			}
		}
	}

	for c := 0; c < numCells; c++ {
		g.stats.updateLeaf(0, int(g.cellOffsets[c+1]-g.cellOffsets[c]))
	}
	g.stats.finalize(len(g.cellOffsets), len(g.cellPrims), time.Since(start))

	g.logger.Debugf(
		"grid build time: %d ms, primitives: %d, resolution: %dx%dx%d, references: %d\n",
		g.stats.BuildTime.Nanoseconds()/1e6, n, g.res[0], g.res[1], g.res[2], len(g.cellPrims),
	)
}

// Stats returns the statistics of the last build.
func (g *UniformGrid) Stats() Stats {
	return g.stats
}

// Resolution returns the number of cells along each axis.
func (g *UniformGrid) Resolution() [3]int {
	return g.res
}

// Pick cell counts so that cells are roughly cubic and hold about
// 1/GridDensity primitives each.
func (g *UniformGrid) resolution(ext types.Vec3, n int) [3]int {
	target := g.opts.GridDensity * float32(n)
	s := math32.Cbrt(ext[0] * ext[1] * ext[2] / target)
	if !(s > 0) || math32.IsInf(s, 0) {
		s = ext.MaxComponent() / math32.Max(1, math32.Cbrt(target))
	}
	var res [3]int
	for axis := 0; axis < 3; axis++ {
		cells := int(ext[axis]/s + 0.5)
		if cells < 1 {
			cells = 1
		}
		if cells > g.opts.GridMaxCells {
			cells = g.opts.GridMaxCells
		}
		res[axis] = cells
	}
	return res
}

func (g *UniformGrid) cellIndex(x, y, z int) int {
	return (z*g.res[1]+y)*g.res[0] + x
}

// Map a position along an axis to a clamped cell coordinate.
func (g *UniformGrid) cellCoord(axis int, pos float32) int {
	c := int((pos - g.bounds.Min[axis]) * g.invVoxelWth[axis])
	if c < 0 {
		return 0
	}
	if c >= g.res[axis] {
		return g.res[axis] - 1
	}
	return c
}

// Get the inclusive range of cells overlapped by a primitive's bounds.
func (g *UniformGrid) cellRange(prim int, lo, hi *[3]int) {
	for axis := 0; axis < 3; axis++ {
		lo[axis] = g.cellCoord(axis, g.primitives.PrimitiveBound(prim, 2*axis))
		hi[axis] = g.cellCoord(axis, g.primitives.PrimitiveBound(prim, 2*axis+1))
	}
}

// Intersect walks the cells pierced by the ray in front-to-back order.
func (g *UniformGrid) Intersect(r *types.Ray, state *IntersectionState) {
	if len(g.cellOffsets) == 0 {
		return
	}
	intervalMin, intervalMax, ok := g.bounds.ClipRay(r)
	if !ok {
		return
	}

	entry := r.Point(intervalMin)
	var (
		cell     [3]int
		step     [3]int
		stop     [3]int
		deltaT   [3]float32
		tNext    [3]float32
		cellStep = [3]int{1, g.res[0], g.res[0] * g.res[1]}
	)
	for axis := 0; axis < 3; axis++ {
		cell[axis] = g.cellCoord(axis, entry[axis])
		dir := r.Dir[axis]
		switch {
		case dir > 0:
			step[axis] = 1
			stop[axis] = g.res[axis]
			deltaT[axis] = g.voxelWidth[axis] / dir
			tNext[axis] = intervalMin + (float32(cell[axis]+1)*g.voxelWidth[axis]+g.bounds.Min[axis]-entry[axis])/dir
		case dir < 0:
			step[axis] = -1
			stop[axis] = -1
			deltaT[axis] = -g.voxelWidth[axis] / dir
			tNext[axis] = intervalMin + (float32(cell[axis])*g.voxelWidth[axis]+g.bounds.Min[axis]-entry[axis])/dir
		default:
			stop[axis] = -1
			tNext[axis] = math32.Inf(1)
		}
	}

	c := g.cellIndex(cell[0], cell[1], cell[2])
	for {
		// Select the axis whose cell boundary is crossed first.
		axis := 2
		if tNext[0] < tNext[1] && tNext[0] < tNext[2] {
			axis = 0
		} else if tNext[1] < tNext[2] {
			axis = 1
		}

		for i := g.cellOffsets[c]; i < g.cellOffsets[c+1]; i++ {
			g.primitives.IntersectPrimitive(r, int(g.cellPrims[i]), state)
		}
		if state.Shadow && state.Hit() {
			return
		}
		// Hits that lie inside the current cell cannot be beaten by
		// primitives in cells further along the ray.
		if r.Max < tNext[axis] {
			return
		}

		intervalMin = tNext[axis]
		if intervalMin > intervalMax {
			return
		}
		cell[axis] += step[axis]
		if cell[axis] == stop[axis] {
			return
		}
		tNext[axis] += deltaT[axis]
		c += step[axis] * cellStep[axis]
	}
}
