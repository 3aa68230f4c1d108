// Package topk implements a capacity-bounded priority queue for retaining
// the k best elements of a stream, plus free-function wrappers that choose
// among a few algorithms depending on k relative to the input size.
package topk

import (
	"container/heap"
	"sort"
)

// innerHeap is a container/heap.Interface-conforming slice. less(i, j)
// reports whether the element at i is weaker (more evictable) than the
// element at j; the root of the heap is therefore always the weakest
// retained element.
type innerHeap[T any] struct {
	data []T
	less func(a, b T) bool
}

func (h *innerHeap[T]) Len() int           { return len(h.data) }
func (h *innerHeap[T]) Less(i, j int) bool { return h.less(h.data[i], h.data[j]) }
func (h *innerHeap[T]) Swap(i, j int)      { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *innerHeap[T]) Push(x any) { h.data = append(h.data, x.(T)) }

func (h *innerHeap[T]) Pop() any {
	old := h.data
	n := len(old)
	v := old[n-1]
	h.data = old[:n-1]
	return v
}

// Heap retains the k elements of a stream most preferred by less, where
// less(a, b) reports whether a is weaker (more evictable) than b. It is a
// thin wrapper over a capacity-k container/heap min-heap on "weakness": on
// each Push, the heap either grows (while under capacity) or, when full,
// replaces its weakest element if the incoming one is stronger.
type Heap[T any] struct {
	h *innerHeap[T]
	k int
}

// New creates a Heap retaining at most k elements, ranked by less.
func New[T any](k int, less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{h: &innerHeap[T]{less: less}, k: k}
}

// Push offers v to the heap. If the heap has spare capacity, v is kept
// unconditionally. Otherwise v replaces the current weakest element only if
// that element is strictly weaker than v; an equal v is dropped.
func (h *Heap[T]) Push(v T) {
	if h.k <= 0 {
		return
	}
	if h.h.Len() < h.k {
		heap.Push(h.h, v)
		return
	}
	if h.h.less(h.h.data[0], v) {
		h.h.data[0] = v
		heap.Fix(h.h, 0)
	}
}

// Len reports how many elements are currently retained.
func (h *Heap[T]) Len() int { return h.h.Len() }

// Sorted returns the retained elements ordered from strongest to weakest,
// leaving the heap itself untouched.
func (h *Heap[T]) Sorted() []T {
	clone := &innerHeap[T]{data: append([]T(nil), h.h.data...), less: h.h.less}
	out := make([]T, clone.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(clone).(T)
	}
	return out
}

// rankedEntry pairs a value with its extracted key and its arrival index, so
// that equal keys can be broken by stable insertion order the way Python's
// heapq.nlargest/nsmallest do.
type rankedEntry[T any, K any] struct {
	val   T
	key   K
	order int
}

// Largest returns up to n elements of data, ranked by key with less as the
// ascending comparator over keys (less(a, b) means a sorts before b, i.e. a
// is the smaller key). Ties are broken by arrival order: the earlier element
// wins. Three regimes apply depending on n relative to len(data), per the
// bounded top-k heap contract.
func Largest[T any, K any](data []T, n int, key func(T) K, less func(a, b K) bool) []T {
	return nBest(data, n, key, less, true)
}

// Smallest is the dual of Largest: it retains the n elements with the
// smallest keys, ties broken by arrival order.
func Smallest[T any, K any](data []T, n int, key func(T) K, less func(a, b K) bool) []T {
	return nBest(data, n, key, less, false)
}

func nBest[T any, K any](data []T, n int, key func(T) K, less func(a, b K) bool, wantLargest bool) []T {
	if n <= 0 || len(data) == 0 {
		return nil
	}

	wantsBefore := func(a, b K) bool {
		if wantLargest {
			return less(b, a) // a should precede b iff a's key is larger
		}
		return less(a, b)
	}

	if n == 1 {
		best := data[0]
		bestKey := key(best)
		for _, v := range data[1:] {
			k := key(v)
			if wantsBefore(k, bestKey) {
				best, bestKey = v, k
			}
		}
		return []T{best}
	}

	entries := make([]rankedEntry[T, K], len(data))
	for i, v := range data {
		entries[i] = rankedEntry[T, K]{val: v, key: key(v), order: i}
	}

	if n >= len(data) {
		sort.SliceStable(entries, func(i, j int) bool {
			if wantsBefore(entries[i].key, entries[j].key) {
				return true
			}
			if wantsBefore(entries[j].key, entries[i].key) {
				return false
			}
			return entries[i].order < entries[j].order
		})
		out := make([]T, len(entries))
		for i, e := range entries {
			out[i] = e.val
		}
		return out
	}

	// Bounded heap: an element is weaker than another if it is not preferred
	// by wantsBefore, with ties broken against later arrival (later loses).
	weaker := func(a, b rankedEntry[T, K]) bool {
		if wantsBefore(a.key, b.key) {
			return false
		}
		if wantsBefore(b.key, a.key) {
			return true
		}
		return a.order > b.order
	}
	h := New(n, weaker)
	for _, e := range entries {
		h.Push(e)
	}
	ranked := h.Sorted()
	out := make([]T, len(ranked))
	for i, e := range ranked {
		out[i] = e.val
	}
	return out
}
