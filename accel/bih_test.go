package accel

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/Vargol/PhotonPump-sub000/types"
)

func TestBIHCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	spheres := randomSpheres(rng, 500)
	bih := NewBIH(DefaultOptions())
	bih.Build(spheres)

	seen := make([]int, spheres.NumPrimitives())
	bih.Walk(func(node Node, depth int, _ types.BBox) bool {
		if depth > MaxStackSize {
			t.Fatalf("expected depth <= %d; got %d", MaxStackSize, depth)
		}
		if leaf, ok := node.(LeafNode); ok {
			for _, prim := range leaf.Primitives {
				seen[prim]++
			}
		}
		return true
	})

	// The BIH partitions primitives; each one lives in exactly one leaf.
	for prim, count := range seen {
		if count != 1 {
			t.Fatalf("expected primitive %d to be referenced exactly once; got %d", prim, count)
		}
	}
	if got := bih.Stats().References; got != spheres.NumPrimitives() {
		t.Fatalf("expected %d references; got %d", spheres.NumPrimitives(), got)
	}
}

func TestBIHLeafBoundsContainPrimitives(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	spheres := randomSpheres(rng, 300)
	bih := NewBIH(DefaultOptions())
	bih.Build(spheres)

	bih.Walk(func(node Node, _ int, box types.BBox) bool {
		leaf, ok := node.(LeafNode)
		if !ok {
			return true
		}
		for _, prim := range leaf.Primitives {
			var primBox types.BBox
			for axis := 0; axis < 3; axis++ {
				primBox.Min[axis] = spheres.PrimitiveBound(prim, 2*axis)
				primBox.Max[axis] = spheres.PrimitiveBound(prim, 2*axis+1)
			}
			if !box.Contains(primBox, 1e-5) {
				t.Fatalf("expected leaf box %v to contain primitive %d with bounds %v", box, prim, primBox)
			}
		}
		return true
	})
}

func TestBIHClipNodes(t *testing.T) {
	// Tight clusters inside a large empty volume; the builder should wrap
	// the central cluster in BVH2 clip nodes.
	rng := rand.New(rand.NewSource(8))
	boxes := &boxList{}
	for _, origin := range []types.Vec3{types.XYZ(0, 0, 0), types.XYZ(30, 60, 45), types.XYZ(100, 100, 100)} {
		for i := 0; i < 50; i++ {
			p := origin.Add(types.XYZ(rng.Float32(), rng.Float32(), rng.Float32()))
			boxes.boxes = append(boxes.boxes, types.NewBBox(p, p.Add(types.XYZ(0.05, 0.05, 0.05))))
		}
	}
	bih := NewBIH(DefaultOptions())
	bih.Build(boxes)

	var clipNodes int
	bih.Walk(func(node Node, _ int, _ types.BBox) bool {
		if clip, ok := node.(ClipNode); ok {
			clipNodes++
			if clip.Planes[0] > clip.Planes[1] {
				t.Fatalf("expected clip interval min <= max; got %v", clip.Planes)
			}
		}
		return true
	})
	if clipNodes == 0 || clipNodes != bih.Stats().ClipNodes {
		t.Fatalf("expected clip nodes to be generated and counted; got %d (stats: %d)", clipNodes, bih.Stats().ClipNodes)
	}

	// Disabling the optimization must not affect results.
	opts := DefaultOptions()
	opts.Bvh2Threshold = 1e9
	plain := NewBIH(opts)
	plain.Build(boxes)
	if plain.Stats().ClipNodes != 0 {
		t.Fatalf("expected no clip nodes with a huge threshold; got %d", plain.Stats().ClipNodes)
	}

	bounds := boxes.WorldBounds(nil)
	s1, s2 := NewIntersectionState(), NewIntersectionState()
	for i := 0; i < 2000; i++ {
		r1 := randomRay(rng, bounds)
		r2 := r1
		s1.Reset()
		s2.Reset()
		bih.Intersect(&r1, s1)
		plain.Intersect(&r2, s2)
		if s1.ID != s2.ID {
			t.Fatalf("ray %d: expected both hierarchies to report the same hit; got %d and %d", i, s1.ID, s2.ID)
		}
	}
}

func TestBIHCoincidentPrimitivesTerminate(t *testing.T) {
	boxes := &boxList{}
	p := types.XYZ(1, 2, 3)
	for i := 0; i < 5000; i++ {
		boxes.boxes = append(boxes.boxes, types.NewBBox(p, p))
	}
	boxes.boxes = append(boxes.boxes, types.NewBBox(types.XYZ(-5, -5, -5), types.XYZ(-4, -4, -4)))

	bih := NewBIH(DefaultOptions())
	bih.Build(boxes)

	stats := bih.Stats()
	if stats.MaxDepth > MaxStackSize {
		t.Fatalf("expected max depth <= %d; got %d", MaxStackSize, stats.MaxDepth)
	}
	if stats.References != len(boxes.boxes) {
		t.Fatalf("expected %d references; got %d", len(boxes.boxes), stats.References)
	}

	state := NewIntersectionState()
	r := types.NewRay(types.XYZ(1, 2, -10), types.XYZ(0, 0, 1))
	bih.Intersect(&r, state)
	if !state.Hit() || state.ID == 5000 {
		t.Fatalf("expected ray to hit a coincident primitive; got hit=%t id=%d", state.Hit(), state.ID)
	}
}

func TestBIHDeterministicBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	spheres := randomSpheres(rng, 400)

	h1 := NewBIH(DefaultOptions())
	h1.Build(spheres)
	h2 := NewBIH(DefaultOptions())
	h2.Build(spheres)

	if !reflect.DeepEqual(h1.tree, h2.tree) || !reflect.DeepEqual(h1.objects, h2.objects) {
		t.Fatal("expected identical buffers for identical input")
	}
}

func TestBIHLeafSize(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	spheres := randomSpheres(rng, 400)

	for _, leafSize := range []int{1, 2, 8} {
		opts := DefaultOptions()
		opts.BihMaxLeafSize = leafSize
		bih := NewBIH(opts)
		bih.Build(spheres)

		// Non-overlapping spheres can always be separated.
		if got := bih.Stats().MaxLeafSize; got > leafSize {
			t.Fatalf("expected leaves with at most %d primitives; got %d", leafSize, got)
		}
	}
}

func BenchmarkBIHBuild(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	spheres := randomSpheres(rng, 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		NewBIH(DefaultOptions()).Build(spheres)
	}
}

func BenchmarkBIHIntersect(b *testing.B) {
	benchmarkIntersect(b, NewBIH(DefaultOptions()))
}
