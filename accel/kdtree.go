package accel

import (
	"time"

	"github.com/Vargol/PhotonPump-sub000/log"
	"github.com/Vargol/PhotonPump-sub000/types"
)

// KDTree is a k-d tree built with the surface area heuristic. Primitives
// that straddle a split plane are referenced by both children.
type KDTree struct {
	logger log.Logger
	opts   Options

	primitives PrimitiveList
	bounds     types.BBox

	// Packed nodes; see nodes.go for the layout.
	tree []uint32

	// Primitive indices referenced by leaves.
	primitiveList []int32

	stats Stats
}

// A recursion step of the k-d tree builder. Events are kept sorted and each
// child receives the order-preserving subset of events of its primitives.
type kdBuildTask struct {
	splits        []splitKey
	numPrimitives int
}

// Per-build state shared by all recursion steps and released when Build
// returns.
type kdBuilder struct {
	logger log.Logger
	opts   Options

	tree wordBuffer
	list []int32

	// Two bits per primitive: bit 0 = goes left, bit 1 = goes right.
	leftRightTable []byte

	maxDepth int
	stats    *Stats
}

// Create a new k-d tree.
func NewKDTree(opts Options) *KDTree {
	return &KDTree{
		logger: log.New("kdtree"),
		opts:   opts,
	}
}

// Build the tree for the supplied primitive list.
func (t *KDTree) Build(primitives PrimitiveList) {
	start := time.Now()
	n := primitives.NumPrimitives()

	t.primitives = primitives
	t.bounds = primitives.WorldBounds(nil)
	t.stats = newStats("kdtree", n)

	b := &kdBuilder{
		logger:         t.logger,
		opts:           t.opts,
		leftRightTable: make([]byte, (n+3)/4),
		maxDepth:       t.opts.maxDepth(),
		stats:          &t.stats,
	}

	root := b.tree.alloc(kdNodeStride)
	switch {
	case n == 0 || t.bounds.IsEmpty():
		b.createLeaf(root, 0, &kdBuildTask{})
	case n > maxKeyPrimitives:
		t.logger.Errorf("%d primitives exceed the addressable limit of %d; building a single leaf", n, maxKeyPrimitives)
		b.createLinearLeaf(root, n)
	default:
		task := b.emitEvents(primitives, n)
		radixSort(task.splits)
		b.buildTree(t.bounds, task, 0, root)
	}

	t.tree = b.tree.trim()
	t.primitiveList = b.list
	t.stats.finalize(len(t.tree), len(t.primitiveList), time.Since(start))

	if t.stats.DepthCappedLeaves > 0 {
		t.logger.Warningf("%d leaves exceeded the leaf size limit after reaching max depth %d", t.stats.DepthCappedLeaves, b.maxDepth)
	}
	t.logger.Debugf(
		"KD tree build time: %d ms, primitives: %d, nodes: %d, leafs: %d, maxDepth: %d\n",
		t.stats.BuildTime.Nanoseconds()/1e6, n,
		t.stats.InnerNodes+t.stats.LeafNodes, t.stats.LeafNodes, t.stats.MaxDepth,
	)
}

// Stats returns the statistics of the last build.
func (t *KDTree) Stats() Stats {
	return t.stats
}

// Generate the sweep events for all primitives. Flat extents generate a
// single planar event; all others an opening and a closing event.
func (b *kdBuilder) emitEvents(primitives PrimitiveList, n int) *kdBuildTask {
	task := &kdBuildTask{
		splits:        make([]splitKey, 0, 6*n),
		numPrimitives: n,
	}
	for prim := 0; prim < n; prim++ {
		for axis := 0; axis < 3; axis++ {
			ls := primitives.PrimitiveBound(prim, 2*axis)
			rs := primitives.PrimitiveBound(prim, 2*axis+1)
			if ls == rs {
				task.splits = append(task.splits, packKey(ls, planarEvent, axis, prim))
				continue
			}
			task.splits = append(task.splits,
				packKey(ls, openedEvent, axis, prim),
				packKey(rs, closedEvent, axis, prim),
			)
		}
	}
	return task
}

// The best split found by the SAH sweep.
type kdSplit struct {
	axis        int
	split       float32
	offsetStart int
	offsetEnd   int
	numLeft     int
	numRight    int
	planarLeft  bool
}

// Recursively partition the node covering bounds. The node's words have
// already been allocated at offset.
func (b *kdBuilder) buildTree(bounds types.BBox, task *kdBuildTask, depth, offset int) {
	if task.numPrimitives <= b.opts.KdMaxLeafSize {
		b.createLeaf(offset, depth, task)
		return
	}
	if depth >= b.maxDepth {
		b.stats.DepthCappedLeaves++
		b.createLeaf(offset, depth, task)
		return
	}

	best, found := b.findSplit(bounds, task, depth)
	if !found {
		b.createLeaf(offset, depth, task)
		return
	}

	taskL, taskR := b.partitionEvents(task, best)

	// Drop the parent events before descending.
	task.splits = nil

	nextOffset := b.tree.alloc(2 * kdNodeStride)
	b.tree.set(offset+0, packTag(best.axis, nextOffset))
	b.tree.set(offset+1, floatBits(best.split))
	b.stats.updateInner()

	boundsL, boundsR := bounds, bounds
	boundsL.Max[best.axis] = best.split
	boundsR.Min[best.axis] = best.split

	b.buildTree(boundsL, taskL, depth+1, nextOffset)
	b.buildTree(boundsR, taskR, depth+1, nextOffset+kdNodeStride)
}

// Sweep the sorted events and return the split with the lowest SAH cost if
// it beats the cost of creating a leaf.
func (b *kdBuilder) findSplit(bounds types.BBox, task *kdBuildTask, depth int) (kdSplit, bool) {
	d := bounds.Extents()

	// Half of the node surface area.
	area := d[0]*d[1] + d[1]*d[2] + d[2]*d[0]
	if !(area > 0) {
		return kdSplit{}, false
	}
	isectCost := b.opts.IntersectCost / area

	bestCost := b.opts.IntersectCost * float32(task.numPrimitives)
	best := kdSplit{axis: -1}

	// Running counts of primitives strictly left / right of the sweep plane.
	nl := [3]int{}
	nr := [3]int{task.numPrimitives, task.numPrimitives, task.numPrimitives}

	// Per-axis face area and perimeter terms of the half surface area.
	dp := [3]float32{d[1] * d[2], d[2] * d[0], d[0] * d[1]}
	ds := [3]float32{d[1] + d[2], d[2] + d[0], d[0] + d[1]}

	splits := task.splits
	numSplits := len(splits)
	for i := 0; i < numSplits; {
		key := splits[i]
		split := key.split()
		axis := key.axis()
		currentOffset := i

		// Count the primitives ending, lying on and starting at this plane.
		var pClosed, pPlanar, pOpened int
		i, pClosed = b.consumeGroup(splits, i, key.withType(closedEvent))
		i, pPlanar = b.consumeGroup(splits, i, key.withType(planarEvent))
		i, pOpened = b.consumeGroup(splits, i, key.withType(openedEvent))

		nr[axis] -= pPlanar + pClosed

		if split >= bounds.Min[axis] && split <= bounds.Max[axis] {
			dl := split - bounds.Min[axis]
			dr := bounds.Max[axis] - split
			lp := dp[axis] + dl*ds[axis]
			rp := dp[axis] + dr*ds[axis]

			planarLeft := !b.opts.PlanarToSmallerCell || dl <= dr
			numLeft, numRight := nl[axis], nr[axis]
			if planarLeft {
				numLeft += pPlanar
			} else {
				numRight += pPlanar
			}

			var eb float32
			if (numLeft == 0 && dl > 0) || (numRight == 0 && dr > 0) {
				eb = b.opts.EmptyBonus
			}
			cost := b.opts.TraversalCost + isectCost*(1-eb)*(lp*float32(numLeft)+rp*float32(numRight))
			if cost < bestCost {
				bestCost = cost
				best = kdSplit{
					axis:        axis,
					split:       split,
					offsetStart: currentOffset,
					offsetEnd:   i,
					numLeft:     numLeft,
					numRight:    numRight,
					planarLeft:  planarLeft,
				}
			}
		}

		nl[axis] += pOpened + pPlanar
	}

	for axis := 0; axis < 3; axis++ {
		if nl[axis] != task.numPrimitives || nr[axis] != 0 {
			b.logger.Errorf("didn't scan full range of primitives @depth=%d. Left overs for axis %d: [L: %d] [R: %d]", depth, axis, nl[axis], nr[axis])
		}
	}

	return best, best.axis != -1
}

// Skip the run of events starting at i whose sortable part equals groupKey,
// resetting the classification of their primitives. Returns the index past
// the run and its length.
func (b *kdBuilder) consumeGroup(splits []splitKey, i int, groupKey splitKey) (int, int) {
	count := 0
	for i < len(splits) && splits[i]&keySortMask == groupKey {
		b.clearSide(splits[i].prim())
		count++
		i++
	}
	return i, count
}

// Classify every primitive against the chosen split and distribute the
// events of the task to the child tasks, preserving their order.
func (b *kdBuilder) partitionEvents(task *kdBuildTask, best kdSplit) (*kdBuildTask, *kdBuildTask) {
	splits := task.splits
	var lk, rk int

	// Primitives that open or lie before the split go left.
	for i := 0; i < best.offsetStart; i++ {
		key := splits[i]
		if key.axis() == best.axis && key.eventType() != closedEvent {
			b.markSide(key.prim(), leftSide)
			lk++
		}
	}
	// Primitives lying on the split plane follow the planar policy.
	for i := best.offsetStart; i < best.offsetEnd; i++ {
		key := splits[i]
		if key.eventType() != planarEvent {
			continue
		}
		if best.planarLeft {
			b.markSide(key.prim(), leftSide)
			lk++
		} else {
			b.markSide(key.prim(), rightSide)
			rk++
		}
	}
	// Primitives that close or lie after the split go right.
	for i := best.offsetEnd; i < len(splits); i++ {
		key := splits[i]
		if key.axis() == best.axis && key.eventType() != openedEvent {
			b.markSide(key.prim(), rightSide)
			rk++
		}
	}

	if lk != best.numLeft || rk != best.numRight {
		b.logger.Errorf("primitive classification mismatch: expected [L: %d] [R: %d]; got [L: %d] [R: %d]", best.numLeft, best.numRight, lk, rk)
	}

	taskL := &kdBuildTask{splits: make([]splitKey, 0, 6*lk), numPrimitives: lk}
	taskR := &kdBuildTask{splits: make([]splitKey, 0, 6*rk), numPrimitives: rk}
	for _, key := range splits {
		side := b.side(key.prim())
		if side&leftSide != 0 {
			taskL.splits = append(taskL.splits, key)
		}
		if side&rightSide != 0 {
			taskR.splits = append(taskR.splits, key)
		}
	}
	return taskL, taskR
}

// Emit a leaf with the primitives of task. Every primitive contributes
// exactly one non-closing event along the x axis.
func (b *kdBuilder) createLeaf(offset, depth int, task *kdBuildTask) {
	listOffset := len(b.list)
	n := 0
	for _, key := range task.splits {
		if key.axis() == 0 && key.eventType() != closedEvent {
			b.list = append(b.list, int32(key.prim()))
			n++
		}
	}
	task.splits = nil

	if n != task.numPrimitives {
		b.logger.Errorf("error creating leaf node - expecting %d found %d", task.numPrimitives, n)
	}

	b.stats.updateLeaf(depth, n)
	b.tree.set(offset+0, packTag(leafTag, n))
	b.tree.set(offset+1, uint32(listOffset))
}

// Emit a leaf that references primitives [0, n) without going through events.
func (b *kdBuilder) createLinearLeaf(offset, n int) {
	listOffset := len(b.list)
	for prim := 0; prim < n; prim++ {
		b.list = append(b.list, int32(prim))
	}
	b.stats.updateLeaf(0, n)
	b.tree.set(offset+0, packTag(leafTag, n&kdOffsetMask))
	b.tree.set(offset+1, uint32(listOffset))
}

const (
	leftSide  byte = 1
	rightSide byte = 2
)

func (b *kdBuilder) clearSide(prim int) {
	b.leftRightTable[prim>>2] &^= 3 << ((prim & 3) << 1)
}

func (b *kdBuilder) markSide(prim int, side byte) {
	b.leftRightTable[prim>>2] |= side << ((prim & 3) << 1)
}

func (b *kdBuilder) side(prim int) byte {
	return (b.leftRightTable[prim>>2] >> ((prim & 3) << 1)) & 3
}
