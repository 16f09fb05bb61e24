package state

import (
	"slices"
	"sync"
)

type entry[T any] struct {
	id    uint64
	value T
}

// registry is an insertion-ordered set of handles owned by one node.
// Broadcasts iterate a snapshot, so entries added or removed while a
// broadcast runs do not affect that broadcast.
type registry[T any] struct {
	mu      sync.Mutex
	seq     uint64
	entries []entry[T]
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{}
}

func (r *registry[T]) add(v T) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.entries = append(r.entries, entry[T]{id: r.seq, value: v})
	return r.seq
}

// remove deletes the entry with id. It reports false when the entry was
// already gone.
func (r *registry[T]) remove(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.entries, func(e entry[T]) bool { return e.id == id })
	if i < 0 {
		return false
	}
	r.entries = slices.Delete(r.entries, i, i+1)
	return true
}

func (r *registry[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.value
	}
	return out
}

// drain empties the registry and returns what it held.
func (r *registry[T]) drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.value
	}
	r.entries = nil
	return out
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
