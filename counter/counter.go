// Package counter implements a generic multiset with Python-Counter-style
// most_common semantics, built on top of topk.
package counter

import "github.com/Scurrra/ubpe-go/topk"

// Counter tallies occurrences of values of type T. The zero value is ready
// to use.
type Counter[T comparable] struct {
	counts map[T]uint64
	order  []T // first-seen order, for stable MostCommon tie-breaks
}

// New creates an empty Counter.
func New[T comparable]() *Counter[T] {
	return &Counter[T]{counts: make(map[T]uint64)}
}

// Add increments the count for v by delta, inserting v on first use.
func (c *Counter[T]) Add(v T, delta uint64) {
	if c.counts == nil {
		c.counts = make(map[T]uint64)
	}
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v] += delta
}

// Get returns the count for v, or 0 if v has never been seen. It never
// mutates the counter.
func (c *Counter[T]) Get(v T) uint64 {
	return c.counts[v]
}

// Len reports the number of distinct values tallied.
func (c *Counter[T]) Len() int { return len(c.counts) }

// Clone returns a deep copy of c, independent of future mutations to
// either.
func (c *Counter[T]) Clone() *Counter[T] {
	clone := &Counter[T]{
		counts: make(map[T]uint64, len(c.counts)),
		order:  append([]T(nil), c.order...),
	}
	for v, n := range c.counts {
		clone.counts[v] = n
	}
	return clone
}

// Entries returns every tallied value paired with its count, in first-seen
// order.
func (c *Counter[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(c.order))
	for i, v := range c.order {
		out[i] = Entry[T]{Value: v, Count: c.counts[v]}
	}
	return out
}

// Entry pairs a value with its tally.
type Entry[T comparable] struct {
	Value T
	Count uint64
}

// MostCommon returns the n values with the highest counts, descending,
// ties broken by first-seen order.
func (c *Counter[T]) MostCommon(n int) []Entry[T] {
	entries := make([]Entry[T], len(c.order))
	for i, v := range c.order {
		entries[i] = Entry[T]{Value: v, Count: c.counts[v]}
	}
	return topk.Largest(entries, n, func(e Entry[T]) uint64 { return e.Count }, func(a, b uint64) bool { return a < b })
}
