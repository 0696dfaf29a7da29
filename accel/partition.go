package accel

// Reorder items in place so that all items for which isLeft returns true
// precede the ones for which it returns false. Each item is classified
// exactly once. Returns the number of left items.
//
// The partition is not stable but it is deterministic for a given input
// order.
func partition[T any](items []T, isLeft func(T) bool) int {
	i, j := 0, len(items)-1
	for i <= j {
		if isLeft(items[i]) {
			i++
			continue
		}
		items[i], items[j] = items[j], items[i]
		j--
	}
	return i
}
