package query

// store is the memo store: the system of record for cached state. It never
// evicts. While a top-level call is in progress it journals the prior memo of
// every key it overwrites so a failed call can be undone.
type store[A comparable, V comparable] struct {
	memos   map[Key[A]]*memo[A, V]
	journal map[Key[A]]*memo[A, V]
}

func newStore[A comparable, V comparable]() *store[A, V] {
	return &store[A, V]{memos: make(map[Key[A]]*memo[A, V])}
}

func (s *store[A, V]) get(key Key[A]) (*memo[A, V], bool) {
	m, ok := s.memos[key]
	return m, ok
}

func (s *store[A, V]) put(key Key[A], m *memo[A, V]) {
	if s.journal != nil {
		if _, journaled := s.journal[key]; !journaled {
			s.journal[key] = s.memos[key]
		}
	}
	s.memos[key] = m
}

func (s *store[A, V]) len() int {
	return len(s.memos)
}

// begin starts journaling writes.
func (s *store[A, V]) begin() {
	s.journal = make(map[Key[A]]*memo[A, V])
}

// commit drops the journal, keeping all writes.
func (s *store[A, V]) commit() {
	s.journal = nil
}

// rollback restores every journaled key to its state at begin and returns
// how many keys were restored.
func (s *store[A, V]) rollback() int {
	restored := len(s.journal)
	for key, prev := range s.journal {
		if prev == nil {
			delete(s.memos, key)
			continue
		}
		s.memos[key] = prev
	}
	s.journal = nil
	return restored
}
