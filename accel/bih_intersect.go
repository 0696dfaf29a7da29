package accel

import (
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
)

// Intersect finds the closest primitive hit along the ray.
func (h *BIH) Intersect(r *types.Ray, state *IntersectionState) {
	if h.bounds.IsEmpty() {
		return
	}
	intervalMin, intervalMax, ok := h.bounds.ClipRay(r)
	if !ok {
		return
	}

	org := r.Origin
	var invDir [3]float32
	var planeFront, planeBack, childFront, childBack [3]int
	for axis := 0; axis < 3; axis++ {
		invDir[axis] = 1.0 / r.Dir[axis]

		// For rays travelling towards -axis the roles of the two planes
		// and the two children are swapped.
		sign := int(floatBits(r.Dir[axis]) >> 31)
		planeFront[axis] = 1 + sign
		planeBack[axis] = 1 + (sign ^ 1)
		childFront[axis] = sign * bihNodeStride
		childBack[axis] = (sign ^ 1) * bihNodeStride
	}

	tree := h.tree
	stack := state.Stack()
	stackTop := state.StackTop()
	stackPos := stackTop
	node := 0

	for {
	descend:
		for {
			tn := tree[node]
			axis := int(tn >> nodeTagShift)

			if axis == leafTag {
				offset := int(tn & kdOffsetMask)
				for n := int(tree[node+1]); n > 0; n-- {
					h.primitives.IntersectPrimitive(r, int(h.objects[offset]), state)
					offset++
				}
				if state.Shadow && state.Hit() {
					return
				}
				break descend
			}

			offset := int(tn & bihOffsetMask)
			tf := (bitsFloat(tree[node+planeFront[axis]]) - org[axis]) * invDir[axis]
			tb := (bitsFloat(tree[node+planeBack[axis]]) - org[axis]) * invDir[axis]

			if tn&bvh2Flag != 0 {
				node = offset
				intervalMin = maxf(tf, intervalMin)
				intervalMax = minf(tb, intervalMax)
				if intervalMin > intervalMax {
					break descend
				}
				continue
			}

			// Both children lie outside the interval.
			if tf < intervalMin && tb > intervalMax {
				break descend
			}
			back := offset + childBack[axis]
			node = back
			if tf < intervalMin {
				intervalMin = maxf(tb, intervalMin)
				continue
			}
			node = offset + childFront[axis]
			if tb > intervalMax {
				intervalMax = minf(tf, intervalMax)
				continue
			}

			stack[stackPos] = StackNode{Node: back, Near: maxf(tb, intervalMin), Far: intervalMax}
			stackPos++
			intervalMax = minf(tf, intervalMax)
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

// Walk visits the hierarchy in depth-first order. Each node receives the
// region bounded by its ancestors' clip planes.
func (h *BIH) Walk(visit Visitor) {
	if len(h.tree) == 0 {
		return
	}
	h.walk(0, 0, h.bounds, visit)
}

func (h *BIH) walk(node, depth int, box types.BBox, visit Visitor) {
	tn := h.tree[node]
	axis := int(tn >> nodeTagShift)

	if axis == leafTag {
		offset := int(tn & kdOffsetMask)
		count := int(h.tree[node+1])
		leaf := LeafNode{Offset: offset, Count: count, Primitives: make([]int, count)}
		for i := range leaf.Primitives {
			leaf.Primitives[i] = int(h.objects[offset+i])
		}
		visit(leaf, depth, box)
		return
	}

	offset := int(tn & bihOffsetMask)
	planes := [2]float32{bitsFloat(h.tree[node+1]), bitsFloat(h.tree[node+2])}

	if tn&bvh2Flag != 0 {
		if !visit(ClipNode{Axis: axis, Planes: planes, Child: offset}, depth, box) {
			return
		}
		box.Min[axis] = math32.Max(box.Min[axis], planes[0])
		box.Max[axis] = math32.Min(box.Max[axis], planes[1])
		h.walk(offset, depth+1, box, visit)
		return
	}

	inner := InnerNode{
		Axis:     axis,
		Planes:   planes,
		Children: [2]int{offset, offset + bihNodeStride},
	}
	if !visit(inner, depth, box) {
		return
	}

	boxL, boxR := box, box
	boxL.Max[axis] = math32.Min(box.Max[axis], planes[0])
	boxR.Min[axis] = math32.Max(box.Min[axis], planes[1])
	h.walk(offset, depth+1, boxL, visit)
	h.walk(offset+bihNodeStride, depth+1, boxR, visit)
}
