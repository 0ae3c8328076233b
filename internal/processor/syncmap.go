package processor

import "sync"

// SyncMap is a type-safe concurrent map using generics. Every access goes
// through Mutate, so read-modify-write updates never interleave.
type SyncMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.Mutex
}

// NewSyncMap creates a new type-safe concurrent map.
func NewSyncMap[K comparable, V any]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m: make(map[K]V),
	}
}

// Mutate runs fn with exclusive access to the entry for key. fn receives the
// current value (ok is false if absent) and returns the value to store and
// whether to keep the entry at all. Mutate returns the value fn produced.
func (sm *SyncMap[K, V]) Mutate(key K, fn func(value V, ok bool) (V, bool)) V {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	current, ok := sm.m[key]
	next, keep := fn(current, ok)
	if keep {
		sm.m[key] = next
	} else {
		delete(sm.m, key)
	}
	return next
}
