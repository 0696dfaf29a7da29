package accel

import (
	"testing"

	"go.uber.org/multierr"
)

func TestPartition(t *testing.T) {
	type spec struct {
		in      []int
		expLeft int
	}
	specs := []spec{
		{nil, 0},
		{[]int{1}, 0},
		{[]int{-1}, 1},
		{[]int{-1, -2, -3}, 3},
		{[]int{1, 2, 3}, 0},
		{[]int{3, -1, 2, -4, 5, -6, 0}, 3},
	}

	for index, s := range specs {
		items := append([]int(nil), s.in...)
		calls := 0
		numLeft := partition(items, func(v int) bool {
			calls++
			return v < 0
		})

		if numLeft != s.expLeft {
			t.Fatalf("[spec %d] expected %d left items; got %d", index, s.expLeft, numLeft)
		}
		if calls != len(items) {
			t.Fatalf("[spec %d] expected predicate to be called %d times; got %d", index, len(items), calls)
		}
		for i, v := range items {
			if (i < numLeft) != (v < 0) {
				t.Fatalf("[spec %d] item %d (%d) is on the wrong side of the partition: %v", index, i, v, items)
			}
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("expected default options to be valid; got %v", err)
	}

	opts := DefaultOptions()
	opts.MaxDepth = 0
	opts.IntersectCost = 0
	opts.EmptyBonus = 1
	opts.Bvh2Threshold = 0.5
	err := opts.Validate()
	if err == nil {
		t.Fatal("expected validation to fail")
	}
	if got := len(multierr.Errors(err)); got != 4 {
		t.Fatalf("expected 4 validation errors; got %d (%v)", got, err)
	}
}

func TestOptionsMaxDepthClamp(t *testing.T) {
	type spec struct {
		in  int
		exp int
	}
	specs := []spec{
		{-1, 1},
		{10, 10},
		{64, 64},
		{1000, MaxStackSize},
	}
	for index, s := range specs {
		opts := Options{MaxDepth: s.in}
		if got := opts.maxDepth(); got != s.exp {
			t.Fatalf("[spec %d] expected max depth %d; got %d", index, s.exp, got)
		}
	}
}

func TestIntersectionStateStackRegions(t *testing.T) {
	state := NewIntersectionState()
	if state.Hit() {
		t.Fatal("expected a new state to have no hit")
	}
	if state.StackTop() != 0 {
		t.Fatalf("expected top-level stack top to be 0; got %d", state.StackTop())
	}

	prev := state.EnterInstance(3)
	if state.StackTop() != MaxStackSize {
		t.Fatalf("expected instance stack top to be %d; got %d", MaxStackSize, state.StackTop())
	}
	if len(state.Stack()) != 2*MaxStackSize {
		t.Fatalf("expected stack to hold %d entries; got %d", 2*MaxStackSize, len(state.Stack()))
	}
	state.SetIntersection(7, 0.25, 0.5, 0)
	state.LeaveInstance(prev)

	if state.CurrentInstance() != NoID {
		t.Fatalf("expected to be back at the top level; got instance %d", state.CurrentInstance())
	}
	if !state.Hit() || state.Instance != 3 || state.ID != 7 {
		t.Fatalf("expected hit on instance 3 primitive 7; got instance %d primitive %d", state.Instance, state.ID)
	}

	state.Reset()
	if state.Hit() || state.Instance != NoID {
		t.Fatal("expected Reset to clear the recorded hit")
	}
}
