package recdb

import "sort"

// OrderedSet is a minimal insertion-sorted collection keyed by a
// caller-supplied less function. It is the concrete type
// Database.AddEntries accepts; a batch insert assigns UIDs in exactly
// the order Items() returns, so it matches inserting the same values
// one at a time in that same order.
type OrderedSet[T any] struct {
	less  func(a, b T) bool
	items []T
}

// NewOrderedSet creates an empty set ordered by less.
func NewOrderedSet[T any](less func(a, b T) bool) *OrderedSet[T] {
	return &OrderedSet[T]{less: less}
}

// Add inserts v in order. If an equal element (neither less than the
// other) is already present, v replaces it, matching BTreeSet::replace
// semantics.
func (s *OrderedSet[T]) Add(v T) {
	i := sort.Search(len(s.items), func(i int) bool {
		return !s.less(s.items[i], v)
	})
	if i < len(s.items) && !s.less(v, s.items[i]) {
		s.items[i] = v
		return
	}
	s.items = append(s.items, v)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = v
}

// Items returns the set's values in ascending order.
func (s *OrderedSet[T]) Items() []T {
	return s.items
}

// Len returns the number of elements currently in the set.
func (s *OrderedSet[T]) Len() int {
	return len(s.items)
}
