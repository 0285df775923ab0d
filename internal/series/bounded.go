// Package series holds the bounded telemetry collections and the chart reducer.
package series

import "sync"

// Bounded is a FIFO collection capped at a maximum length. It is safe for one
// appender and any number of readers and trimmers.
type Bounded[T any] struct {
	mu    sync.RWMutex
	items []T
	max   int
}

// NewBounded returns a collection that evicts its oldest entry once capacity is exceeded.
// capacity <= 0 means no append-time cap.
func NewBounded[T any](capacity int) *Bounded[T] {
	return &Bounded[T]{max: capacity}
}

// Append adds v and returns how many entries were evicted.
func (b *Bounded[T]) Append(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, v)
	if b.max <= 0 || len(b.items) <= b.max {
		return 0
	}
	evicted := len(b.items) - b.max
	var zero T
	for i := 0; i < evicted; i++ {
		b.items[i] = zero
	}
	// Reslicing is amortised: the next growing append copies only the live tail.
	b.items = b.items[evicted:]
	return evicted
}

// Len returns the current number of entries.
func (b *Bounded[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Cap returns the append-time cap.
func (b *Bounded[T]) Cap() int { return b.max }

// Snapshot returns a copy of the entries, oldest first.
func (b *Bounded[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Last returns the newest entry.
func (b *Bounded[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// TrimTo keeps only the newest n entries and returns how many were dropped.
func (b *Bounded[T]) TrimTo(n int) int {
	if n < 0 {
		n = 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) <= n {
		return 0
	}
	dropped := len(b.items) - n
	b.dropFrontLocked(dropped)
	return dropped
}

// Reset empties the collection.
func (b *Bounded[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = nil
}

// dropFrontLocked copies the survivors into a fresh slice so the evicted
// prefix does not pin the old backing array.
func (b *Bounded[T]) dropFrontLocked(n int) {
	kept := make([]T, len(b.items)-n, max(len(b.items)-n, b.max))
	copy(kept, b.items[n:])
	b.items = kept
}
