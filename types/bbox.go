package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// An axis aligned bounding box. A freshly created box is empty (Min > Max)
// and grows as points or other boxes are included.
type BBox struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box.
func EmptyBBox() BBox {
	inf := math32.Inf(1)
	return BBox{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Create a bounding box from two corner points.
func NewBBox(p0, p1 Vec3) BBox {
	return BBox{Min: MinVec3(p0, p1), Max: MaxVec3(p0, p1)}
}

// Returns true if the box does not contain any point.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Grow box to include point p.
func (b *BBox) IncludePoint(p Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

// Grow box to include another box.
func (b *BBox) Include(o BBox) {
	if o.IsEmpty() {
		return
	}
	b.Min = MinVec3(b.Min, o.Min)
	b.Max = MaxVec3(b.Max, o.Max)
}

// Get box extents along each axis.
func (b BBox) Extents() Vec3 {
	return b.Max.Sub(b.Min)
}

// Get box center.
func (b BBox) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the surface area of the box. Empty boxes have zero area.
func (b BBox) Area() float32 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Extents()
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// Check whether o is fully contained inside the box. An epsilon expressed
// as a fraction of the box extents absorbs float rounding.
func (b BBox) Contains(o BBox, eps float32) bool {
	if o.IsEmpty() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		if o.Min[axis] < b.Min[axis]-eps || o.Max[axis] > b.Max[axis]+eps {
			return false
		}
	}
	return true
}

// Get the min (side = 0) or max (side = 1) bound along an axis using the
// boundIndex = 2*axis + side convention shared with primitive lists.
func (b BBox) Bound(boundIndex int) float32 {
	if boundIndex&1 == 0 {
		return b.Min[boundIndex>>1]
	}
	return b.Max[boundIndex>>1]
}

// Transform the eight box corners by m and return the box enclosing them.
func (b BBox) Transform(m mgl32.Mat4) BBox {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBBox()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.IncludePoint(Vec3(mgl32.TransformCoordinate(corner, m)))
	}
	return out
}

// Clip the ray's [Min, Max] interval against the box slabs. Returns the
// clipped interval and false if the ray misses the box.
func (b BBox) ClipRay(r *Ray) (tMin, tMax float32, ok bool) {
	tMin, tMax = r.Min, r.Max
	for axis := 0; axis < 3; axis++ {
		inv := 1.0 / r.Dir[axis]
		t1 := (b.Min[axis] - r.Origin[axis]) * inv
		t2 := (b.Max[axis] - r.Origin[axis]) * inv
		if inv < 0 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return tMin, tMax, false
		}
	}
	return tMin, tMax, true
}
