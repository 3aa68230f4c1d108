// Package paircount implements the pair counter described by the UBPE
// core: for every adjacent pair in a corpus of sequences, it tracks both
// how many times the pair occurs and in how many distinct documents it
// occurs at least once.
package paircount

import "github.com/Scurrra/ubpe-go/topk"

// Pair is an ordered pair of adjacent tokens.
type Pair[T comparable] struct {
	First, Second T
}

// Counts holds the two tallies kept per pair.
type Counts struct {
	Documents   uint64
	Occurrences uint64
}

// Counter accumulates Counts for every adjacent pair seen across one or
// more sequences (documents). The zero value is ready to use.
type Counter[T comparable] struct {
	counts map[Pair[T]]Counts
	order  []Pair[T]
	docs   int
}

// New creates an empty Counter.
func New[T comparable]() *Counter[T] {
	return &Counter[T]{counts: make(map[Pair[T]]Counts)}
}

// NewFromDocs builds a Counter already updated with every document in docs.
func NewFromDocs[T comparable](docs [][]T) *Counter[T] {
	c := New[T]()
	for _, d := range docs {
		c.Update(d)
	}
	return c
}

// Update folds the adjacent pairs of doc into the counter: one occurrence
// increment per adjacent pair, and one document increment per distinct
// pair present in doc.
func (c *Counter[T]) Update(doc []T) {
	if c.counts == nil {
		c.counts = make(map[Pair[T]]Counts)
	}
	if len(doc) < 2 {
		return
	}
	c.docs++

	seen := make(map[Pair[T]]struct{}, len(doc)-1)
	for i := 0; i < len(doc)-1; i++ {
		p := Pair[T]{doc[i], doc[i+1]}
		if _, ok := c.counts[p]; !ok {
			c.order = append(c.order, p)
		}
		rec := c.counts[p]
		rec.Occurrences++
		c.counts[p] = rec
		seen[p] = struct{}{}
	}
	for p := range seen {
		rec := c.counts[p]
		rec.Documents++
		c.counts[p] = rec
	}
}

// Get returns the counts recorded for pair, or the zero Counts if pair was
// never observed.
func (c *Counter[T]) Get(pair Pair[T]) Counts {
	return c.counts[pair]
}

// NumDocuments reports how many documents contributed to this counter.
func (c *Counter[T]) NumDocuments() int { return c.docs }

// Entry pairs a pair with its tallies.
type Entry[T comparable] struct {
	Pair   Pair[T]
	Counts Counts
}

// MostCommon returns the n pairs ranked by the compound key
// (occurrences, -documents): primarily by occurrence count descending,
// then — on an occurrence tie — by document count ascending (the pair
// seen in fewer documents ranks first), then, if both tie, by the pair
// tuple itself descending via less (the bigger pair wins).
func (c *Counter[T]) MostCommon(n int, less func(a, b Pair[T]) bool) []Entry[T] {
	entries := make([]Entry[T], len(c.order))
	for i, p := range c.order {
		entries[i] = Entry[T]{Pair: p, Counts: c.counts[p]}
	}

	// keyLess is the ascending comparator expected by topk.Largest: it
	// reports whether a ranks below (is weaker than) b.
	keyLess := func(a, b Entry[T]) bool {
		if a.Counts.Occurrences != b.Counts.Occurrences {
			return a.Counts.Occurrences < b.Counts.Occurrences
		}
		if a.Counts.Documents != b.Counts.Documents {
			return a.Counts.Documents > b.Counts.Documents
		}
		return less(a.Pair, b.Pair)
	}

	return topk.Largest(entries, n, func(e Entry[T]) Entry[T] { return e }, keyLess)
}
