package accel

import (
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
)

// Trees are stored as flat arrays of 32-bit words. The two most significant
// bits of a node's first word select the node type:
//
//	0, 1, 2: inner node splitting along the x, y or z axis
//	3:       leaf node
//
// The BIH additionally uses bit 29 of inner nodes to flag BVH2 clip nodes.
// The remaining low bits hold the word offset of the first child (inner
// nodes) or a count/offset (leaves). Split planes are stored as raw float
// bits in the words that follow.
const (
	nodeTagShift = 30
	leafTag      = 3

	kdOffsetMask = 1<<nodeTagShift - 1

	bvh2Flag      = 1 << 29
	bihOffsetMask = bvh2Flag - 1

	// Words per node.
	kdNodeStride  = 2
	bihNodeStride = 3
)

// An append-only word buffer used while building trees.
type wordBuffer struct {
	words []uint32
}

// Append count zero words and return the offset of the first one.
func (b *wordBuffer) alloc(count int) int {
	offset := len(b.words)
	b.words = append(b.words, make([]uint32, count)...)
	return offset
}

func (b *wordBuffer) set(offset int, value uint32) {
	b.words[offset] = value
}

func (b *wordBuffer) size() int {
	return len(b.words)
}

// Freeze the buffer into a right-sized array.
func (b *wordBuffer) trim() []uint32 {
	out := make([]uint32, len(b.words))
	copy(out, b.words)
	b.words = nil
	return out
}

func floatBits(f float32) uint32 {
	return math32.Float32bits(f)
}

func bitsFloat(b uint32) float32 {
	return math32.Float32frombits(b)
}

func packTag(tag int, payload int) uint32 {
	return uint32(tag)<<nodeTagShift | uint32(payload)
}

// The Node interface is implemented by the node variants that tree visitors
// receive. The packed storage layout never leaves this package.
type Node interface {
	isNode()
}

// An inner node. Child nodes are addressed by their word offset in the tree.
//
// For k-d trees Planes[0] == Planes[1] is the split coordinate. For a BIH,
// Planes[0] is the maximum extent of the left child and Planes[1] the
// minimum extent of the right child.
type InnerNode struct {
	Axis     int
	Planes   [2]float32
	Children [2]int
}

// A BIH node that restricts its single child to the interval
// [Planes[0], Planes[1]] along Axis.
type ClipNode struct {
	Axis   int
	Planes [2]float32
	Child  int
}

// A leaf node holding Count primitives starting at Offset in the
// accelerator's primitive index list.
type LeafNode struct {
	Offset     int
	Count      int
	Primitives []int
}

func (InnerNode) isNode() {}
func (ClipNode) isNode()  {}
func (LeafNode) isNode()  {}

// A Visitor receives each node together with its depth and the region of
// space it covers. Returning false skips the node's subtree.
type Visitor func(node Node, depth int, bounds types.BBox) bool
