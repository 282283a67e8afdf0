package indexer

import "sync"

// store is a map safe for concurrent use by parse workers and readers
type store[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func newStore[K comparable, V any]() *store[K, V] {
	return &store[K, V]{m: make(map[K]V)}
}

func (s *store[K, V]) Get(k K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[k]
	return v, ok
}

func (s *store[K, V]) Set(k K, v V) {
	s.mu.Lock()
	s.m[k] = v
	s.mu.Unlock()
}

func (s *store[K, V]) Delete(k K) {
	s.mu.Lock()
	delete(s.m, k)
	s.mu.Unlock()
}

func (s *store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Values returns a snapshot of the values in no particular order
func (s *store[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]V, 0, len(s.m))
	for _, v := range s.m {
		out = append(out, v)
	}
	return out
}

// Range calls fn for every entry under the read lock until fn returns false.
// fn must not modify the store.
func (s *store[K, V]) Range(fn func(K, V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.m {
		if !fn(k, v) {
			return
		}
	}
}

// DeleteFunc removes every entry for which fn returns true
func (s *store[K, V]) DeleteFunc(fn func(K, V) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, v := range s.m {
		if fn(k, v) {
			delete(s.m, k)
			n++
		}
	}
	return n
}
