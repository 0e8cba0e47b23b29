package util

import "sync"

// RingBuffer keeps the most recent items up to a fixed capacity; older
// items fall off the front. It backs the log capture, so the write path
// must never grow and reads hand out copies. Safe for concurrent use.
type RingBuffer[T any] struct {
	mu    sync.RWMutex
	items []T
	start int // index of the oldest item
	n     int
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest once the buffer is full.
func (r *RingBuffer[T]) Push(item T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.items)
	r.items[(r.start+r.n)%size] = item
	if r.n < size {
		r.n++
		return
	}
	r.start = (r.start + 1) % size
}

// Snapshot copies the buffered items out, oldest first.
func (r *RingBuffer[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.n)
	for i := range out {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

func (r *RingBuffer[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.n
}
