package store

import "time"

// Record is a stored value together with the time it was last seen.
type Record[V any] struct {
	Value    V
	LastSeen time.Time
}

// Store is a time-stamped registry. Implementations must be safe for
// concurrent readers while a single writer mutates them.
type Store[K comparable, V any] interface {
	// Upsert stores value under key, replacing any previous entry.
	Upsert(key K, value V, now time.Time)
	Get(key K) (Record[V], bool)
	// Refresh bumps the timestamp of an existing entry and reports whether
	// the key was present.
	Refresh(key K, now time.Time) bool
	Remove(key K) bool
	// Sweep removes every entry whose age exceeds ttl and returns the
	// removed keys.
	Sweep(now time.Time, ttl time.Duration) []K
	Len() int
	// Range calls fn for each entry until fn returns false. fn must not call
	// back into the store.
	Range(fn func(key K, rec Record[V]) bool)
}
