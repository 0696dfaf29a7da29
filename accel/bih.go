package accel

import (
	"time"

	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
)

// BIH is a bounding interval hierarchy. Inner nodes store the maximum extent
// of the left child and the minimum extent of the right child along the
// split axis so children may overlap or leave empty space between them.
type BIH struct {
	logger log.Logger
	opts   Options

	primitives PrimitiveList
	bounds     types.BBox

	// Packed nodes; see nodes.go for the layout.
	tree []uint32

	// Primitive indices; leaves reference contiguous ranges.
	objects []int32

	stats Stats
}

type bihBuilder struct {
	logger     log.Logger
	opts       Options
	primitives PrimitiveList

	tree    wordBuffer
	objects []int32

	maxDepth int
	stats    *Stats
}

// Create a new bounding interval hierarchy.
func NewBIH(opts Options) *BIH {
	return &BIH{
		logger: log.New("bih"),
		opts:   opts,
	}
}

// Build the hierarchy for the supplied primitive list.
func (h *BIH) Build(primitives PrimitiveList) {
	start := time.Now()
	n := primitives.NumPrimitives()

	h.primitives = primitives
	h.bounds = primitives.WorldBounds(nil)
	h.stats = newStats("bih", n)

	b := &bihBuilder{
		logger:     h.logger,
		opts:       h.opts,
		primitives: primitives,
		objects:    make([]int32, n),
		maxDepth:   h.opts.maxDepth(),
		stats:      &h.stats,
	}
	for i := range b.objects {
		b.objects[i] = int32(i)
	}

	root := b.tree.alloc(bihNodeStride)
	if n == 0 || h.bounds.IsEmpty() {
		b.createLeaf(root, 0, n-1, 0)
	} else {
		b.subdivide(0, n-1, h.bounds, h.bounds, root, 0)
	}

	h.tree = b.tree.trim()
	h.objects = b.objects
	h.stats.finalize(len(h.tree), len(h.objects), time.Since(start))

	if h.stats.DepthCappedLeaves > 0 {
		h.logger.Warningf("%d leaves exceeded the leaf size limit after reaching max depth %d", h.stats.DepthCappedLeaves, b.maxDepth)
	}
	h.logger.Debugf(
		"BIH build time: %d ms, primitives: %d, nodes: %d, bvh2: %d, leafs: %d, maxDepth: %d\n",
		h.stats.BuildTime.Nanoseconds()/1e6, n,
		h.stats.InnerNodes+h.stats.ClipNodes+h.stats.LeafNodes, h.stats.ClipNodes, h.stats.LeafNodes, h.stats.MaxDepth,
	)
}

// Stats returns the statistics of the last build.
func (h *BIH) Stats() Stats {
	return h.stats
}

// Subdivide the primitive range [left, right]. gridBox drives the choice of
// split planes while nodeBox tracks the space actually bounded by the node.
func (b *bihBuilder) subdivide(left, right int, gridBox, nodeBox types.BBox, nodeIndex, depth int) {
	if right-left+1 <= b.opts.BihMaxLeafSize {
		b.createLeaf(nodeIndex, left, right, depth)
		return
	}
	if depth >= b.maxDepth {
		b.stats.DepthCappedLeaves++
		b.createLeaf(nodeIndex, left, right, depth)
		return
	}

	var (
		axis      = -1
		prevAxis  int
		split     = math32.NaN()
		prevSplit float32
		prevClip  = math32.NaN()
		wasLeft   = true

		clipL, clipR float32
		rightOrig    = right
	)

	for {
		prevAxis = axis
		prevSplit = split

		d := gridBox.Extents()
		if d[0] < 0 || d[1] < 0 || d[2] < 0 {
			b.logger.Errorf("negative node extents @depth=%d: %v", depth, d)
		}
		for i := 0; i < 3; i++ {
			if nodeBox.Max[i] < gridBox.Min[i] || nodeBox.Min[i] > gridBox.Max[i] {
				b.logger.Errorf("reached tree area in error - discarding node with %d primitives @depth=%d", rightOrig-left+1, depth)
			}
		}

		// Split the longest axis of the grid box in half.
		axis = 0
		if d[1] > d[axis] {
			axis = 1
		}
		if d[2] > d[axis] {
			axis = 2
		}
		split = 0.5 * (gridBox.Min[axis] + gridBox.Max[axis])

		clipL, clipR = math32.Inf(-1), math32.Inf(1)
		nodeL, nodeR := math32.Inf(1), math32.Inf(-1)
		numLeft := partition(b.objects[left:rightOrig+1], func(obj int32) bool {
			minb := b.primitives.PrimitiveBound(int(obj), 2*axis)
			maxb := b.primitives.PrimitiveBound(int(obj), 2*axis+1)
			nodeL = math32.Min(nodeL, minb)
			nodeR = math32.Max(nodeR, maxb)
			if 0.5*(minb+maxb) <= split {
				clipL = math32.Max(clipL, maxb)
				return true
			}
			clipR = math32.Min(clipR, minb)
			return false
		})
		right = left + numLeft - 1

		// Wrap the primitives in a tight BVH2 node if the node box
		// is much larger than the space they occupy.
		if nodeL > nodeBox.Min[axis] && nodeR < nodeBox.Max[axis] {
			nodeBoxW := nodeBox.Max[axis] - nodeBox.Min[axis]
			nodeNewW := nodeR - nodeL
			if b.opts.Bvh2Threshold*nodeNewW < nodeBoxW {
				child := b.tree.alloc(bihNodeStride)
				b.tree.set(nodeIndex+0, packTag(axis, child)|bvh2Flag)
				b.tree.set(nodeIndex+1, floatBits(nodeL))
				b.tree.set(nodeIndex+2, floatBits(nodeR))
				b.stats.updateClip()

				nodeBox.Min[axis] = nodeL
				nodeBox.Max[axis] = nodeR
				b.subdivide(left, rightOrig, gridBox, nodeBox, child, depth+1)
				return
			}
		}

		switch {
		case right == rightOrig:
			// All primitives went left.
			if prevAxis == axis && prevSplit == split {
				b.createLeaf(nodeIndex, left, right, depth)
				return
			}
			gridBox.Max[axis] = split
			if clipL <= split {
				// Empty space on the right; keep looping on the left half.
				prevClip = clipL
				wasLeft = true
				continue
			}
			prevClip = math32.NaN()
		case right < left:
			// All primitives went right.
			right = rightOrig
			if prevAxis == axis && prevSplit == split {
				b.createLeaf(nodeIndex, left, right, depth)
				return
			}
			gridBox.Min[axis] = split
			if clipR >= split {
				// Empty space on the left; keep looping on the right half.
				prevClip = clipR
				wasLeft = false
				continue
			}
			prevClip = math32.NaN()
		default:
			// A real split. If the previous pass only found empty space
			// emit a node that cuts it away before continuing. The node is
			// skipped near the depth limit so that leaves never end up
			// deeper than maxDepth.
			if prevAxis != -1 && !math32.IsNaN(prevClip) && depth+1 < b.maxDepth {
				next := b.tree.alloc(2 * bihNodeStride)
				if wasLeft {
					b.tree.set(nodeIndex+0, packTag(prevAxis, next))
					b.tree.set(nodeIndex+1, floatBits(prevClip))
					b.tree.set(nodeIndex+2, floatBits(math32.Inf(1)))
					b.createEmptyLeaf(next+bihNodeStride, depth+1)
					nodeIndex = next
				} else {
					b.tree.set(nodeIndex+0, packTag(prevAxis, next))
					b.tree.set(nodeIndex+1, floatBits(math32.Inf(-1)))
					b.tree.set(nodeIndex+2, floatBits(prevClip))
					b.createEmptyLeaf(next, depth+1)
					nodeIndex = next + bihNodeStride
				}
				b.stats.updateInner()
				depth++
			}
			b.split(left, right, rightOrig, axis, split, clipL, clipR, gridBox, nodeBox, nodeIndex, depth)
			return
		}
	}
}

// Emit a regular inner node and recurse into both (non-empty) children.
func (b *bihBuilder) split(left, right, rightOrig, axis int, split, clipL, clipR float32, gridBox, nodeBox types.BBox, nodeIndex, depth int) {
	next := b.tree.alloc(2 * bihNodeStride)
	b.tree.set(nodeIndex+0, packTag(axis, next))
	b.tree.set(nodeIndex+1, floatBits(clipL))
	b.tree.set(nodeIndex+2, floatBits(clipR))
	b.stats.updateInner()

	gridBoxL, gridBoxR := gridBox, gridBox
	nodeBoxL, nodeBoxR := nodeBox, nodeBox
	gridBoxL.Max[axis] = split
	gridBoxR.Min[axis] = split
	nodeBoxL.Max[axis] = clipL
	nodeBoxR.Min[axis] = clipR

	b.subdivide(left, right, gridBoxL, nodeBoxL, next, depth+1)
	b.subdivide(right+1, rightOrig, gridBoxR, nodeBoxR, next+bihNodeStride, depth+1)
}

// Emit a leaf referencing objects[left:right+1].
func (b *bihBuilder) createLeaf(nodeIndex, left, right, depth int) {
	count := right - left + 1
	if count < 0 {
		count = 0
	}
	if left < 0 {
		left = 0
	}
	b.tree.set(nodeIndex+0, packTag(leafTag, left))
	b.tree.set(nodeIndex+1, uint32(count))
	b.stats.updateLeaf(depth, count)
}

// Fill the unused child slot of an empty-space node.
func (b *bihBuilder) createEmptyLeaf(nodeIndex, depth int) {
	b.tree.set(nodeIndex+0, packTag(leafTag, 0))
	b.tree.set(nodeIndex+1, 0)
	b.stats.updateLeaf(depth, 0)
}
