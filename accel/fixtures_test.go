package accel

import (
	"math/rand"

	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// A triangle soup; triangle i uses verts[3*i : 3*i+3].
type triangleList struct {
	verts []types.Vec3
}

func (l *triangleList) NumPrimitives() int {
	return len(l.verts) / 3
}

func (l *triangleList) PrimitiveBound(primID, boundIndex int) float32 {
	axis := boundIndex >> 1
	v0, v1, v2 := l.verts[3*primID][axis], l.verts[3*primID+1][axis], l.verts[3*primID+2][axis]
	if boundIndex&1 == 0 {
		return math32.Min(v0, math32.Min(v1, v2))
	}
	return math32.Max(v0, math32.Max(v1, v2))
}

func (l *triangleList) WorldBounds(transform *mgl32.Mat4) types.BBox {
	box := types.EmptyBBox()
	for _, v := range l.verts {
		box.IncludePoint(v)
	}
	if transform != nil {
		return box.Transform(*transform)
	}
	return box
}

func (l *triangleList) IntersectPrimitive(r *types.Ray, primID int, state *IntersectionState) {
	v0, v1, v2 := l.verts[3*primID], l.verts[3*primID+1], l.verts[3*primID+2]
	e1, e2 := v1.Sub(v0), v2.Sub(v0)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if det == 0 {
		return
	}
	invDet := 1 / det
	s := r.Origin.Sub(v0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return
	}
	t := e2.Dot(q) * invDet
	if r.IsInside(t) {
		r.Max = t
		state.SetIntersection(primID, u, v, 0)
	}
}

// Cube spanning [-1, 1] on every axis made of 12 triangles. Triangles 0 and
// 1 form the -z face.
func cube() *triangleList {
	c := [8]types.Vec3{}
	for i := range c {
		c[i] = types.XYZ(-1, -1, -1)
		if i&1 != 0 {
			c[i][0] = 1
		}
		if i&2 != 0 {
			c[i][1] = 1
		}
		if i&4 != 0 {
			c[i][2] = 1
		}
	}
	faces := [6][4]int{
		{0, 1, 3, 2}, // -z
		{4, 6, 7, 5}, // +z
		{0, 4, 5, 1}, // -y
		{2, 3, 7, 6}, // +y
		{0, 2, 6, 4}, // -x
		{1, 5, 7, 3}, // +x
	}
	l := &triangleList{}
	for _, f := range faces {
		l.verts = append(l.verts, c[f[0]], c[f[1]], c[f[2]], c[f[0]], c[f[2]], c[f[3]])
	}
	return l
}

type sphereList struct {
	centers []types.Vec3
	radius  float32
}

func (l *sphereList) NumPrimitives() int {
	return len(l.centers)
}

func (l *sphereList) PrimitiveBound(primID, boundIndex int) float32 {
	c := l.centers[primID][boundIndex>>1]
	if boundIndex&1 == 0 {
		return c - l.radius
	}
	return c + l.radius
}

func (l *sphereList) WorldBounds(transform *mgl32.Mat4) types.BBox {
	box := types.EmptyBBox()
	r := types.XYZ(l.radius, l.radius, l.radius)
	for _, c := range l.centers {
		box.IncludePoint(c.Sub(r))
		box.IncludePoint(c.Add(r))
	}
	if transform != nil {
		return box.Transform(*transform)
	}
	return box
}

func (l *sphereList) IntersectPrimitive(r *types.Ray, primID int, state *IntersectionState) {
	oc := r.Origin.Sub(l.centers[primID])
	a := r.Dir.Dot(r.Dir)
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - l.radius*l.radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return
	}
	sq := math32.Sqrt(disc)
	t0 := (-b - sq) / (2 * a)
	t1 := (-b + sq) / (2 * a)
	switch {
	case r.IsInside(t0):
		r.Max = t0
		state.SetIntersection(primID, 0, 0, 0)
	case r.IsInside(t1):
		r.Max = t1
		state.SetIntersection(primID, 0, 0, 0)
	}
}

// Generate n spheres of radius 0.5 on a jittered lattice so that no two
// spheres overlap.
func randomSpheres(rng *rand.Rand, n int) *sphereList {
	l := &sphereList{radius: 0.5}
	side := int(math32.Ceil(math32.Cbrt(float32(n))))
	cells := rng.Perm(side * side * side)
	for i := 0; i < n; i++ {
		c := cells[i]
		x, y, z := c%side, (c/side)%side, c/(side*side)
		l.centers = append(l.centers, types.XYZ(
			2*float32(x)+0.5*(rng.Float32()-0.5),
			2*float32(y)+0.5*(rng.Float32()-0.5),
			2*float32(z)+0.5*(rng.Float32()-0.5),
		))
	}
	return l
}

// Axis aligned boxes; useful for degenerate (zero size) primitives.
type boxList struct {
	boxes []types.BBox
}

func (l *boxList) NumPrimitives() int {
	return len(l.boxes)
}

func (l *boxList) PrimitiveBound(primID, boundIndex int) float32 {
	return l.boxes[primID].Bound(boundIndex)
}

func (l *boxList) WorldBounds(transform *mgl32.Mat4) types.BBox {
	box := types.EmptyBBox()
	for _, b := range l.boxes {
		box.Include(b)
	}
	if transform != nil {
		return box.Transform(*transform)
	}
	return box
}

func (l *boxList) IntersectPrimitive(r *types.Ray, primID int, state *IntersectionState) {
	tMin, _, ok := l.boxes[primID].ClipRay(r)
	if ok && r.IsInside(tMin) {
		r.Max = tMin
		state.SetIntersection(primID, 0, 0, 0)
	}
}

// Generate a ray from a random point around the bounds towards a random
// point inside them.
func randomRay(rng *rand.Rand, bounds types.BBox) types.Ray {
	ext := bounds.Extents()
	center := bounds.Center()
	randPoint := func(scale float32) types.Vec3 {
		return types.XYZ(
			center[0]+scale*ext[0]*(rng.Float32()-0.5),
			center[1]+scale*ext[1]*(rng.Float32()-0.5),
			center[2]+scale*ext[2]*(rng.Float32()-0.5),
		)
	}
	from := randPoint(3)
	to := randPoint(1)
	return types.NewRay(from, to.Sub(from).Normalize())
}

func buildAll(list PrimitiveList) map[string]Accelerator {
	opts := DefaultOptions()
	accels := map[string]Accelerator{
		"null":   NewNullAccelerator(),
		"kdtree": NewKDTree(opts),
		"bih":    NewBIH(opts),
		"grid":   NewUniformGrid(opts),
	}
	for _, a := range accels {
		a.Build(list)
	}
	return accels
}

// Generate n triangles whose vertices lie on the integer lattice inside
// [0, 10]^3. Every other triangle is flat on a random axis.
func snappedTriangles(rng *rand.Rand, n int) *triangleList {
	l := &triangleList{}
	for i := 0; i < n; i++ {
		base := types.XYZ(float32(rng.Intn(9)), float32(rng.Intn(9)), float32(rng.Intn(9)))
		flatAxis := -1
		if i%2 == 0 {
			flatAxis = rng.Intn(3)
		}
		for k := 0; k < 3; k++ {
			v := base
			for axis := 0; axis < 3; axis++ {
				if axis != flatAxis {
					v[axis] += float32(rng.Intn(3))
				}
			}
			l.verts = append(l.verts, v)
		}
	}
	return l
}

// Generate axis aligned rays in both directions along every axis. The
// remaining two origin coordinates visit every lattice point in [lo, hi] so
// that many rays run inside split planes. Origins start outside [lo, hi]
// along the travel axis.
func latticeRays(lo, hi int) []types.Ray {
	var rays []types.Ray
	for axis := 0; axis < 3; axis++ {
		u, v := (axis+1)%3, (axis+2)%3
		for _, sign := range []float32{1, -1} {
			for a := lo; a <= hi; a++ {
				for b := lo; b <= hi; b++ {
					var origin, dir types.Vec3
					origin[u], origin[v] = float32(a), float32(b)
					origin[axis] = float32(lo - 1)
					if sign < 0 {
						origin[axis] = float32(hi + 1)
					}
					dir[axis] = sign
					rays = append(rays, types.NewRay(origin, dir))
				}
			}
		}
	}
	return rays
}

// Translated copies of a shared child accelerator. Traversal re-enters the
// child using the instance stack region.
type offsetInstances struct {
	child   Accelerator
	bounds  types.BBox
	offsets []types.Vec3
}

func (l *offsetInstances) NumPrimitives() int {
	return len(l.offsets)
}

func (l *offsetInstances) PrimitiveBound(primID, boundIndex int) float32 {
	return l.bounds.Bound(boundIndex) + l.offsets[primID][boundIndex>>1]
}

func (l *offsetInstances) WorldBounds(transform *mgl32.Mat4) types.BBox {
	box := types.EmptyBBox()
	for _, off := range l.offsets {
		box.IncludePoint(l.bounds.Min.Add(off))
		box.IncludePoint(l.bounds.Max.Add(off))
	}
	if transform != nil {
		return box.Transform(*transform)
	}
	return box
}

func (l *offsetInstances) IntersectPrimitive(r *types.Ray, primID int, state *IntersectionState) {
	local := *r
	local.Origin = r.Origin.Sub(l.offsets[primID])

	prev := state.EnterInstance(primID)
	l.child.Intersect(&local, state)
	state.LeaveInstance(prev)

	if local.Max < r.Max {
		r.Max = local.Max
	}
}
