package accel

// The maximum number of entries a single traversal can push. Builders never
// create trees deeper than this.
const MaxStackSize = 64

// Identifies a missing hit or a top-level traversal.
const NoID = -1

// A deferred subtree together with the ray interval that overlaps it.
type StackNode struct {
	Node int
	Near float32
	Far  float32
}

// IntersectionState holds the result of an intersection query and the
// scratch stack used by accelerator traversal. A state must never be shared
// between concurrently executing queries.
//
// The stack is split in two regions: one for the top-level instance list
// and one for the geometry of the instance currently being traversed. This
// allows instance intersection to re-enter an accelerator one level down
// without clobbering the pending top-level entries.
type IntersectionState struct {
	// Surface parameters of the closest hit.
	U, V, W float32

	// The instance and primitive that were hit.
	Instance int
	ID       int

	// When set, accelerators return as soon as any hit is recorded.
	Shadow bool

	current int
	stack   [2 * MaxStackSize]StackNode
}

// Create a new intersection state with no recorded hit.
func NewIntersectionState() *IntersectionState {
	s := &IntersectionState{}
	s.Reset()
	return s
}

// Clear recorded hit data so that the state can be reused for another ray.
func (s *IntersectionState) Reset() {
	s.U, s.V, s.W = 0, 0, 0
	s.Instance = NoID
	s.ID = NoID
	s.current = NoID
}

// Returns true if a hit has been recorded.
func (s *IntersectionState) Hit() bool {
	return s.ID != NoID
}

// Record a hit against primitive id of the instance currently being traversed.
func (s *IntersectionState) SetIntersection(id int, u, v, w float32) {
	s.Instance = s.current
	s.ID = id
	s.U, s.V, s.W = u, v, w
}

// Mark the instance whose geometry is about to be traversed and return the
// previously active instance so that it can be restored.
func (s *IntersectionState) EnterInstance(instance int) int {
	prev := s.current
	s.current = instance
	return prev
}

// Restore the instance returned by EnterInstance.
func (s *IntersectionState) LeaveInstance(prev int) {
	s.current = prev
}

// Get the instance currently being traversed or NoID at the top level.
func (s *IntersectionState) CurrentInstance() int {
	return s.current
}

// Get the scratch stack shared by all traversal levels.
func (s *IntersectionState) Stack() []StackNode {
	return s.stack[:]
}

// Get the first stack slot available to the current traversal level.
func (s *IntersectionState) StackTop() int {
	if s.current == NoID {
		return 0
	}
	return MaxStackSize
}
