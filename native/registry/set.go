package registry

// orderedSet is an insertion-ordered set with O(1) membership and O(1)
// swap-delete removal. Removal moves the last element into the vacated slot,
// so ordering is stable under insertion but not across removals; pagination
// windows taken between mutations are always consistent.
type orderedSet[K comparable] struct {
	items []K
	index map[K]int
}

func newOrderedSet[K comparable]() *orderedSet[K] {
	return &orderedSet[K]{index: make(map[K]int)}
}

// Add inserts the key, reporting whether it was absent.
func (s *orderedSet[K]) Add(key K) bool {
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, key)
	return true
}

// Remove deletes the key via swap-delete, reporting whether it was present.
func (s *orderedSet[K]) Remove(key K) bool {
	pos, ok := s.index[key]
	if !ok {
		return false
	}
	last := len(s.items) - 1
	if pos != last {
		moved := s.items[last]
		s.items[pos] = moved
		s.index[moved] = pos
	}
	s.items = s.items[:last]
	delete(s.index, key)
	return true
}

// Contains reports membership.
func (s *orderedSet[K]) Contains(key K) bool {
	_, ok := s.index[key]
	return ok
}

// Len returns the element count.
func (s *orderedSet[K]) Len() int {
	return len(s.items)
}

// Window copies out the half-open range [offset, offset+count). Bounds are
// validated by the caller.
func (s *orderedSet[K]) Window(offset, count uint64) []K {
	out := make([]K, count)
	copy(out, s.items[offset:offset+count])
	return out
}

// Slice copies out every element in insertion order.
func (s *orderedSet[K]) Slice() []K {
	return append([]K{}, s.items...)
}
