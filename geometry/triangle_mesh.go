package geometry

import (
	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// TriangleMesh is an indexed triangle list. Triangle i is formed by the
// points referenced by Triangles[3*i], Triangles[3*i+1] and Triangles[3*i+2].
type TriangleMesh struct {
	Name      string
	Points    []types.Vec3
	Triangles []int32
}

// Create a new mesh and validate its indices.
func NewTriangleMesh(name string, points []types.Vec3, triangles []int32) (*TriangleMesh, error) {
	m := &TriangleMesh{
		Name:      name,
		Points:    points,
		Triangles: triangles,
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrapf(err, "mesh %q", name)
	}
	return m, nil
}

// Validate checks that the index list is well formed and that every index
// references an existing point. All problems are reported.
func (m *TriangleMesh) Validate() error {
	var err error
	if len(m.Triangles)%3 != 0 {
		err = multierr.Append(err, errors.Errorf("index count %d is not a multiple of 3", len(m.Triangles)))
	}
	numPoints := len(m.Points)
	for i, index := range m.Triangles {
		if index < 0 || int(index) >= numPoints {
			err = multierr.Append(err, errors.Errorf("triangle %d: point index %d out of range [0, %d)", i/3, index, numPoints))
		}
	}
	return err
}

// NumPrimitives returns the number of triangles.
func (m *TriangleMesh) NumPrimitives() int {
	return len(m.Triangles) / 3
}

// Vertices returns the three corners of a triangle.
func (m *TriangleMesh) Vertices(primID int) (types.Vec3, types.Vec3, types.Vec3) {
	i := 3 * primID
	return m.Points[m.Triangles[i]], m.Points[m.Triangles[i+1]], m.Points[m.Triangles[i+2]]
}

// PrimitiveBound returns a single bound component of a triangle.
func (m *TriangleMesh) PrimitiveBound(primID, boundIndex int) float32 {
	axis := boundIndex >> 1
	v0, v1, v2 := m.Vertices(primID)
	if boundIndex&1 == 0 {
		return math32.Min(v0[axis], math32.Min(v1[axis], v2[axis]))
	}
	return math32.Max(v0[axis], math32.Max(v1[axis], v2[axis]))
}

// WorldBounds returns the bounds of all referenced points, optionally
// transformed.
func (m *TriangleMesh) WorldBounds(transform *mgl32.Mat4) types.BBox {
	bounds := types.EmptyBBox()
	for _, index := range m.Triangles {
		p := m.Points[index]
		if transform != nil {
			p = types.Vec3(mgl32.TransformCoordinate(mgl32.Vec3(p), *transform))
		}
		bounds.IncludePoint(p)
	}
	return bounds
}

// IntersectPrimitive implements the Möller-Trumbore ray/triangle test. The
// barycentric coordinates of the hit are stored as U and V.
func (m *TriangleMesh) IntersectPrimitive(r *types.Ray, primID int, state *accel.IntersectionState) {
	v0, v1, v2 := m.Vertices(primID)
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)

	pvec := r.Dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if det == 0 {
		// Ray is parallel to the triangle plane or the triangle is degenerate.
		return
	}
	invDet := 1 / det

	tvec := r.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return
	}

	qvec := tvec.Cross(edge1)
	v := r.Dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return
	}

	t := edge2.Dot(qvec) * invDet
	if r.IsInside(t) {
		r.Max = t
		state.SetIntersection(primID, u, v, 1-u-v)
	}
}

// Normal returns the unit geometric normal of a triangle.
func (m *TriangleMesh) Normal(primID int) types.Vec3 {
	v0, v1, v2 := m.Vertices(primID)
	return v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
}
