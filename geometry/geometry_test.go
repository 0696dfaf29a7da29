package geometry

import (
	"sync"
	"testing"

	"github.com/Vargol/PhotonPump-sub000/accel"
	"github.com/Vargol/PhotonPump-sub000/types"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

// A cube spanning [-1, 1] on every axis.
func cubeMesh(t testing.TB) *TriangleMesh {
	points := make([]types.Vec3, 8)
	for i := range points {
		points[i] = types.XYZ(-1, -1, -1)
		if i&1 != 0 {
			points[i][0] = 1
		}
		if i&2 != 0 {
			points[i][1] = 1
		}
		if i&4 != 0 {
			points[i][2] = 1
		}
	}
	quads := [][4]int32{
		{0, 1, 3, 2}, {4, 6, 7, 5}, {0, 4, 5, 1},
		{2, 3, 7, 6}, {0, 2, 6, 4}, {1, 5, 7, 3},
	}
	var tris []int32
	for _, q := range quads {
		tris = append(tris, q[0], q[1], q[2], q[0], q[2], q[3])
	}
	mesh, err := NewTriangleMesh("cube", points, tris)
	require.NoError(t, err)
	return mesh
}

func TestTriangleMeshValidation(t *testing.T) {
	points := []types.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	_, err := NewTriangleMesh("ok", points, []int32{0, 1, 2})
	require.NoError(t, err)

	_, err = NewTriangleMesh("bad", points, []int32{0, 1, 3, 0, -1, 2, 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), `mesh "bad"`)
	require.Len(t, multierr.Errors(errors.Cause(err)), 3)
}

func TestTriangleMeshIntersect(t *testing.T) {
	mesh := cubeMesh(t)
	require.Equal(t, 12, mesh.NumPrimitives())

	bounds := mesh.WorldBounds(nil)
	require.Equal(t, types.XYZ(-1, -1, -1), bounds.Min)
	require.Equal(t, types.XYZ(1, 1, 1), bounds.Max)

	r := types.NewRay(types.XYZ(0.25, -0.5, -5), types.XYZ(0, 0, 1))
	state := accel.NewIntersectionState()
	for prim := 0; prim < mesh.NumPrimitives(); prim++ {
		mesh.IntersectPrimitive(&r, prim, state)
	}
	require.True(t, state.Hit())
	require.InDelta(t, 4, r.Max, 1e-6)
	require.Contains(t, []int{0, 1}, state.ID)
	require.InDelta(t, 1, state.U+state.V+state.W, 1e-5)
	require.InDelta(t, 1, math32.Abs(mesh.Normal(state.ID)[2]), 1e-6)
}

func TestSphereList(t *testing.T) {
	_, err := NewSphereList([]types.Vec3{{0, 0, 0}, {1, 1, 1}}, []float32{1, 0})
	require.Error(t, err)

	spheres, err := NewSphereList([]types.Vec3{{0, 0, 0}, {0, 0, 10}}, []float32{1, 2})
	require.NoError(t, err)
	require.Equal(t, float32(8), spheres.PrimitiveBound(1, 4))
	require.Equal(t, float32(12), spheres.PrimitiveBound(1, 5))

	r := types.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1))
	state := accel.NewIntersectionState()
	spheres.IntersectPrimitive(&r, 1, state)
	spheres.IntersectPrimitive(&r, 0, state)
	require.Equal(t, 0, state.ID)
	require.InDelta(t, 4, r.Max, 1e-6)

	// Rays starting inside a sphere hit its far side.
	r = types.NewRay(types.XYZ(0, 0, 0), types.XYZ(1, 0, 0))
	state.Reset()
	spheres.IntersectPrimitive(&r, 0, state)
	require.True(t, state.Hit())
	require.InDelta(t, 1, r.Max, 1e-6)
}

func TestGeometryLazyBuild(t *testing.T) {
	g := New("cube", cubeMesh(t), accel.DefaultOptions())
	_, built := g.Stats()
	require.False(t, built)

	// Concurrent first use must build exactly once and never observe a
	// partially built accelerator.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := types.NewRay(types.XYZ(0, 0, -5), types.XYZ(0, 0, 1))
			state := accel.NewIntersectionState()
			g.Intersect(&r, state)
			if !state.Hit() {
				t.Error("expected ray to hit the cube")
			}
		}()
	}
	wg.Wait()

	stats, built := g.Stats()
	require.True(t, built)
	require.Equal(t, "kdtree", stats.Type)
	require.Error(t, g.SetAcceleratorType("bih"))
}

func TestGeometryAcceleratorType(t *testing.T) {
	g := New("cube", cubeMesh(t), accel.DefaultOptions())
	require.NoError(t, g.SetAcceleratorType("bih"))
	require.NoError(t, g.Prepare())
	stats, _ := g.Stats()
	require.Equal(t, "bih", stats.Type)

	g = New("cube", cubeMesh(t), accel.DefaultOptions())
	require.NoError(t, g.SetAcceleratorType("octree"))
	require.Error(t, g.Prepare())
}

func TestInstanceList(t *testing.T) {
	g := New("cube", cubeMesh(t), accel.DefaultOptions())

	_, err := NewInstance(g, mgl32.Scale3D(1, 0, 1))
	require.Error(t, err)

	left, err := NewInstance(g, mgl32.Translate3D(-5, 0, 0))
	require.NoError(t, err)
	right, err := NewInstance(g, mgl32.Translate3D(5, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2)))
	require.NoError(t, err)

	require.Equal(t, types.XYZ(3, -2, -2), right.Bounds().Min)
	require.Equal(t, types.XYZ(7, 2, 2), right.Bounds().Max)

	list := NewInstanceList([]*Instance{left, right})
	require.Equal(t, 2, list.NumPrimitives())
	require.Equal(t, float32(-6), list.PrimitiveBound(0, 0))
	require.Equal(t, float32(7), list.PrimitiveBound(1, 1))

	bounds := list.WorldBounds(nil)
	require.Equal(t, types.XYZ(-6, -2, -2), bounds.Min)
	require.Equal(t, types.XYZ(7, 2, 2), bounds.Max)

	// The ray passes through both instances; the closest one wins and the
	// hit is attributed to it.
	r := types.NewRay(types.XYZ(-20, 0.5, 0.5), types.XYZ(1, 0, 0))
	state := accel.NewIntersectionState()
	list.IntersectPrimitive(&r, 1, state)
	require.Equal(t, 1, state.Instance)
	require.InDelta(t, 23, r.Max, 1e-5)

	list.IntersectPrimitive(&r, 0, state)
	require.Equal(t, 0, state.Instance)
	require.InDelta(t, 14, r.Max, 1e-5)
	require.Equal(t, accel.NoID, state.CurrentInstance())
}
