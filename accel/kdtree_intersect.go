package accel

import (
	"github.com/Vargol/PhotonPump-sub000/types"
)

// Intersect finds the closest primitive hit along the ray.
func (t *KDTree) Intersect(r *types.Ray, state *IntersectionState) {
	if t.bounds.IsEmpty() {
		return
	}
	intervalMin, intervalMax, ok := t.bounds.ClipRay(r)
	if !ok {
		return
	}

	org := r.Origin
	var invDir [3]float32
	var offsetFront, offsetBack [3]int
	for axis := 0; axis < 3; axis++ {
		invDir[axis] = 1.0 / r.Dir[axis]

		// Rays travelling towards -axis visit the right child first.
		sign := int(floatBits(r.Dir[axis]) >> 31)
		offsetFront[axis] = sign * kdNodeStride
		offsetBack[axis] = (sign ^ 1) * kdNodeStride
	}

	tree := t.tree
	stack := state.Stack()
	stackTop := state.StackTop()
	stackPos := stackTop
	node := 0

	for {
	descend:
		for {
			tn := tree[node]
			axis := int(tn >> nodeTagShift)
			offset := int(tn & kdOffsetMask)

			if axis == leafTag {
				n := offset
				listOffset := int(tree[node+1])
				for ; n > 0; n-- {
					t.primitives.IntersectPrimitive(r, int(t.primitiveList[listOffset]), state)
					listOffset++
				}
				// Deferred children may still hold closer hits when the ray
				// runs inside a split plane; the pop loop culls the rest.
				if state.Shadow && state.Hit() {
					return
				}
				break descend
			}

			d := (bitsFloat(tree[node+1]) - org[axis]) * invDir[axis]
			back := offset + offsetBack[axis]
			node = back
			if d < intervalMin {
				continue
			}
			node = offset + offsetFront[axis]
			if d > intervalMax {
				continue
			}

			// The ray crosses the plane inside its interval; defer the back child.
			stack[stackPos] = StackNode{Node: back, Near: maxf(d, intervalMin), Far: intervalMax}
			stackPos++
			intervalMax = minf(d, intervalMax)
		}

		for {
			if stackPos == stackTop {
				return
			}
			stackPos--
			intervalMin = stack[stackPos].Near
			if r.Max < intervalMin {
				continue
			}
			node = stack[stackPos].Node
			intervalMax = stack[stackPos].Far
			break
		}
	}
}

// Walk visits the tree nodes in depth-first order. Each node receives the
// spatial cell it covers.
func (t *KDTree) Walk(visit Visitor) {
	if len(t.tree) == 0 {
		return
	}
	t.walk(0, 0, t.bounds, visit)
}

func (t *KDTree) walk(node, depth int, cell types.BBox, visit Visitor) {
	tn := t.tree[node]
	axis := int(tn >> nodeTagShift)
	offset := int(tn & kdOffsetMask)

	if axis == leafTag {
		listOffset := int(t.tree[node+1])
		leaf := LeafNode{Offset: listOffset, Count: offset, Primitives: make([]int, offset)}
		for i := range leaf.Primitives {
			leaf.Primitives[i] = int(t.primitiveList[listOffset+i])
		}
		visit(leaf, depth, cell)
		return
	}

	split := bitsFloat(t.tree[node+1])
	inner := InnerNode{
		Axis:     axis,
		Planes:   [2]float32{split, split},
		Children: [2]int{offset, offset + kdNodeStride},
	}
	if !visit(inner, depth, cell) {
		return
	}

	cellL, cellR := cell, cell
	cellL.Max[axis] = split
	cellR.Min[axis] = split
	t.walk(offset, depth+1, cellL, visit)
	t.walk(offset+kdNodeStride, depth+1, cellR, visit)
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
