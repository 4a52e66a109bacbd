package storage

import (
	"sort"
	"sync"
)

// Store is an in-memory registry of live sessions keyed by id
type Store[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

func New[T any]() *Store[T] {
	return &Store[T]{
		items: make(map[string]T),
	}
}

func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, exists := s.items[id]
	return item, exists
}

func (s *Store[T]) Set(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item
}

// GetAll returns a copy of the registry
func (s *Store[T]) GetAll() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]T, len(s.items))
	for k, v := range s.items {
		result[k] = v
	}
	return result
}

// IDs returns the registered ids in sorted order
func (s *Store[T]) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.items))
	for k := range s.items {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}

// Delete removes id and returns the removed item so the caller can release it
func (s *Store[T]) Delete(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, exists := s.items[id]
	delete(s.items, id)
	return item, exists
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
