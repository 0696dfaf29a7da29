package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// A ray with a parametric validity interval [Min, Max]. Max shrinks
// monotonically while intersection routines record closer hits.
type Ray struct {
	Origin Vec3
	Dir    Vec3

	Min float32
	Max float32
}

// Create a ray with an unbounded [0, +inf) interval.
func NewRay(origin, dir Vec3) Ray {
	return Ray{
		Origin: origin,
		Dir:    dir,
		Min:    0,
		Max:    math32.Inf(1),
	}
}

// Create a ray for the segment between two points. The interval is
// shortened by eps at both ends so that the end points themselves do not
// register as occluders.
func NewSegmentRay(from, to Vec3, eps float32) Ray {
	return Ray{
		Origin: from,
		Dir:    to.Sub(from),
		Min:    eps,
		Max:    1 - eps,
	}
}

// Get the point along the ray at distance t.
func (r *Ray) Point(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// Check if t lies inside the ray interval.
func (r *Ray) IsInside(t float32) bool {
	return r.Min <= t && t <= r.Max
}

// Transform the ray into another space. The direction is not normalized so
// that t values remain comparable across spaces.
func (r *Ray) Transform(m mgl32.Mat4) Ray {
	o := mgl32.TransformCoordinate(mgl32.Vec3(r.Origin), m)
	d := mgl32.TransformNormal(mgl32.Vec3(r.Dir), m)
	return Ray{
		Origin: Vec3(o),
		Dir:    Vec3(d),
		Min:    r.Min,
		Max:    r.Max,
	}
}
