package store

import (
	"sync"
	"time"
)

type MemoryStore[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]Record[V]
}

func NewMemoryStore[K comparable, V any]() *MemoryStore[K, V] {
	return &MemoryStore[K, V]{
		entries: make(map[K]Record[V]),
	}
}

func (s *MemoryStore[K, V]) Upsert(key K, value V, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Record[V]{Value: value, LastSeen: now}
}

func (s *MemoryStore[K, V]) Get(key K) (Record[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.entries[key]
	return rec, ok
}

func (s *MemoryStore[K, V]) Refresh(key K, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[key]
	if !ok {
		return false
	}
	rec.LastSeen = now
	s.entries[key] = rec
	return true
}

func (s *MemoryStore[K, V]) Remove(key K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

// Sweep keeps entries whose age is exactly ttl; only strictly older ones go.
func (s *MemoryStore[K, V]) Sweep(now time.Time, ttl time.Duration) []K {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted []K
	for key, rec := range s.entries {
		if now.Sub(rec.LastSeen) > ttl {
			delete(s.entries, key)
			evicted = append(evicted, key)
		}
	}
	return evicted
}

func (s *MemoryStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore[K, V]) Range(fn func(key K, rec Record[V]) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, rec := range s.entries {
		if !fn(key, rec) {
			return
		}
	}
}
