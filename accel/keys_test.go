package accel

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/chewxy/math32"
)

func TestSortableBitsOrdering(t *testing.T) {
	values := []float32{
		math32.Inf(-1), -1e30, -3.5, -1, -1e-30, 0, 1e-30, 0.5, 1, 3.5, 1e30, math32.Inf(1),
	}
	for i := 1; i < len(values); i++ {
		a, b := sortableBits(values[i-1]), sortableBits(values[i])
		if a >= b {
			t.Fatalf("expected sortable(%g) < sortable(%g); got %#x >= %#x", values[i-1], values[i], a, b)
		}
	}
	for _, v := range values {
		if got := fromSortableBits(sortableBits(v)); got != v {
			t.Fatalf("expected %g to survive the sortable bit mapping; got %g", v, got)
		}
	}
}

func TestSortableBitsFoldsNegativeZero(t *testing.T) {
	negZero := math32.Copysign(0, -1)
	if sortableBits(negZero) != sortableBits(0) {
		t.Fatalf("expected -0 and +0 to map to the same key; got %#x and %#x", sortableBits(negZero), sortableBits(0))
	}
}

func TestPackKey(t *testing.T) {
	type spec struct {
		split float32
		typ   eventType
		axis  int
		prim  int
	}
	specs := []spec{
		{0, closedEvent, 0, 0},
		{-12.25, planarEvent, 1, 42},
		{1e6, openedEvent, 2, maxKeyPrimitives - 1},
	}

	for index, s := range specs {
		k := packKey(s.split, s.typ, s.axis, s.prim)
		if k.split() != s.split {
			t.Fatalf("[spec %d] expected split %g; got %g", index, s.split, k.split())
		}
		if k.eventType() != s.typ {
			t.Fatalf("[spec %d] expected event type %d; got %d", index, s.typ, k.eventType())
		}
		if k.axis() != s.axis {
			t.Fatalf("[spec %d] expected axis %d; got %d", index, s.axis, k.axis())
		}
		if k.prim() != s.prim {
			t.Fatalf("[spec %d] expected primitive %d; got %d", index, s.prim, k.prim())
		}
	}
}

func TestEventTypeOrdering(t *testing.T) {
	closed := packKey(1, closedEvent, 2, 7)
	planar := packKey(1, planarEvent, 0, 3)
	opened := packKey(1, openedEvent, 0, 1)
	if !(closed < planar && planar < opened) {
		t.Fatalf("expected closed < planar < opened at equal coordinates; got %#x %#x %#x", closed, planar, opened)
	}

	// The coordinate dominates the event type.
	if packKey(0.5, openedEvent, 0, 0) >= packKey(1, closedEvent, 0, 0) {
		t.Fatal("expected keys to be ordered by split coordinate first")
	}

	if got, exp := opened.withType(closedEvent), packKey(1, closedEvent, 0, 0); got != exp {
		t.Fatalf("expected withType to yield %#x; got %#x", exp, got)
	}
}

func TestRadixSort(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 17, 1000, 20000} {
		keys := make([]splitKey, n)
		for i := range keys {
			split := float32(rng.Intn(64)-32) * 0.25
			keys[i] = packKey(split, eventType(rng.Intn(3)), rng.Intn(3), i)
		}
		exp := append([]splitKey(nil), keys...)
		sort.SliceStable(exp, func(i, j int) bool {
			return exp[i]&keySortMask < exp[j]&keySortMask
		})

		radixSort(keys)
		for i := range keys {
			if keys[i] != exp[i] {
				t.Fatalf("[n=%d] expected key %d to be %#x; got %#x", n, i, exp[i], keys[i])
			}
		}
	}
}

func TestRadixSortIsStable(t *testing.T) {
	// Identical sortable parts must retain their primitive order.
	keys := []splitKey{
		packKey(2, openedEvent, 1, 9),
		packKey(2, openedEvent, 1, 3),
		packKey(-2, closedEvent, 0, 5),
		packKey(2, openedEvent, 1, 1),
	}
	radixSort(keys)

	expPrims := []int{5, 9, 3, 1}
	for i, k := range keys {
		if k.prim() != expPrims[i] {
			t.Fatalf("expected primitive %d at position %d; got %d", expPrims[i], i, k.prim())
		}
	}
}
