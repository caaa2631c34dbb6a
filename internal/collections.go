package internal

// OrderedSet is a set of unique items that remembers insertion order.
type OrderedSet[T comparable] struct {
	items map[T]struct{}
	order []T
}

// NewOrderedSet creates and returns a new empty OrderedSet.
func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{
		items: make(map[T]struct{}),
	}
}

// Add inserts an item and reports whether it was not already present.
func (s *OrderedSet[T]) Add(item T) bool {
	if _, exists := s.items[item]; exists {
		return false
	}
	s.items[item] = struct{}{}
	s.order = append(s.order, item)
	return true
}

// AddAll inserts every item, keeping the first occurrence.
func (s *OrderedSet[T]) AddAll(items ...T) {
	for _, item := range items {
		s.Add(item)
	}
}

// Contains checks if an item exists in the set.
func (s *OrderedSet[T]) Contains(item T) bool {
	_, exists := s.items[item]
	return exists
}

// Size returns the number of items in the set.
func (s *OrderedSet[T]) Size() int {
	return len(s.order)
}

// ToSlice returns the items in insertion order.
func (s *OrderedSet[T]) ToSlice() []T {
	return append([]T(nil), s.order...)
}

// MapKeys extracts all keys from a map and returns them as a slice.
// The order of keys is non-deterministic due to map iteration.
func MapKeys[K comparable, V any](m map[K]V) []K {
	if m == nil {
		return []K{}
	}
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}
