// Package history keeps a bounded, thread-safe record of recent items.
package history

import "sync"

// DefaultSize is the number of items kept when no size is given.
const DefaultSize = 100

// Ring is a fixed-capacity circular buffer. When full, Push overwrites the
// oldest item.
type Ring[T any] struct {
	mu sync.RWMutex
	// +checklocks:mu
	items []T
	size  int // immutable after creation
	// +checklocks:mu
	head int // next write position
	// +checklocks:mu
	count int
	// +checklocks:mu
	total uint64
}

// NewRing creates a ring holding up to size items.
// If size <= 0, DefaultSize is used.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Ring[T]{
		items: make([]T, size),
		size:  size,
	}
}

// Push appends an item.
func (r *Ring[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = item
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.total++
}

// Last returns up to n of the most recent items, oldest first.
// If n <= 0 or n > Len, every stored item is returned.
func (r *Ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > r.count {
		n = r.count
	}
	if n == 0 {
		return nil
	}

	result := make([]T, n)
	start := (r.head - n + r.size) % r.size
	for i := 0; i < n; i++ {
		result[i] = r.items[(start+i)%r.size]
	}
	return result
}

// Len returns the number of items currently stored.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the maximum number of items the ring holds.
func (r *Ring[T]) Cap() int {
	return r.size
}

// Total returns how many items were ever pushed.
func (r *Ring[T]) Total() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Clear removes every item.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.count = 0
}
