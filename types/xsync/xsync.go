// Package xsync implements some extra synchronization tools.
package xsync

import "sync"

// Memo is a lazily-initialized cache cell: the first call to Get computes and
// stores the value, later calls return the stored value without recomputing.
//
// A Memo belongs to one owning instance and is never invalidated -- it is meant
// for derived properties of values that are immutable after construction (a
// network's backward adjacency, its topological order, etc.). Two instances
// never share cells, even if structurally identical.
//
// The zero value is ready to use. Get is safe for concurrent use.
type Memo[T any] struct {
	once  sync.Once
	value T
}

// Get returns the memoized value, calling compute to produce it on first use.
// compute is invoked at most once per Memo.
func (m *Memo[T]) Get(compute func() T) T {
	m.once.Do(func() { m.value = compute() })
	return m.value
}
