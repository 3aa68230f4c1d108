package ubpe

import (
	"math"
	"sort"
)

// Classic is the deterministic greedy UBPE variant: encoding applies every
// learned merge exactly once, in ascending merge-id order, to a document.
// Pruning renumbers merges by descending weight, so after a prune that order
// need not be the order in which the merges were learned.
type Classic[T comparable] struct {
	*state[T]
	// order holds backward's keys sorted ascending; it defines the
	// single-pass application order used by Encode.
	order []MergedId
}

// NewClassic creates an unfitted Classic tokenizer whose alphabet assigns
// base id i to T(i), for token types whose underlying representation is an
// integer (e.g. byte or rune).
func NewClassic[T Integer](nTokens, alphabetSize uint32) *Classic[T] {
	return &Classic[T]{state: newAutoAlphabet[T](nTokens, alphabetSize)}
}

// NewClassicWithAlphabet creates an unfitted Classic tokenizer over a
// caller-supplied alphabet bijection.
func NewClassicWithAlphabet[T comparable](nTokens, alphabetSize uint32, alphabet map[T]BaseId) (*Classic[T], error) {
	s, err := newWithAlphabet[T](nTokens, alphabetSize, alphabet)
	if err != nil {
		return nil, err
	}
	return &Classic[T]{state: s}, nil
}

// RestoreClassic rebuilds a fitted Classic tokenizer from a previously
// exported alphabet, backward map, and weights.
func RestoreClassic[T comparable](
	nTokens, alphabetSize uint32,
	alphabet map[T]BaseId,
	inverseAlphabet map[BaseId]T,
	backward map[MergedId][]uint32,
	weights map[MergedId]float64,
) (*Classic[T], error) {
	s, err := restoreState[T](nTokens, alphabetSize, alphabet, inverseAlphabet, backward, weights)
	if err != nil {
		return nil, err
	}
	c := &Classic[T]{state: s}
	c.rebuildOrder()
	return c, nil
}

func (c *Classic[T]) rebuildOrder() {
	ids := make([]MergedId, 0, len(c.backward))
	for id := range c.backward {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	c.order = ids
}

// Fit trains the merge table: every outer iteration rebuilds the pair
// counter over the current corpus, selects a non-overlapping batch of
// candidate pairs (the boundary-pair heuristic), and allocates one merged
// id per accepted pair, storing its immediate [first, second] children in
// the backward map. When rearrange is true, the trained table is pruned
// down to n_tokens and densely renumbered by descending weight.
func (c *Classic[T]) Fit(corpus [][]T, nCandidates uint32, rearrange bool) error {
	vecs := make([][]uint32, len(corpus))
	for i, doc := range corpus {
		v, err := c.docToVec(doc)
		if err != nil {
			return err
		}
		vecs[i] = v
	}

	pair := func(a, b uint32) []uint32 { return []uint32{a, b} }
	if err := fitLoop(c.state, vecs, nCandidates, rearrange, pair); err != nil {
		return err
	}
	c.rebuildOrder()
	return nil
}

// Encode tokenizes doc by applying every learned merge, in ascending merge
// id order, as a single left-to-right substitution pass over the whole
// document. It also returns the document's weight, the sum over its
// resulting tokens of (1 + log(count)) * weight for every merged token
// present (base alphabet tokens carry no weight and contribute nothing).
func (c *Classic[T]) Encode(doc []T) ([]uint32, float64, error) {
	if !c.IsFitted() {
		return nil, 0, newError("encode", NotFitted, errNotFitted)
	}
	vec, err := c.docToVec(doc)
	if err != nil {
		return nil, 0, err
	}

	for _, id := range c.order {
		children := c.backward[id]
		vec = substituteBatch(vec, map[uint32][2]uint32{children[0]: {children[1], id}})
	}

	counts := make(map[uint32]int, len(vec))
	for _, id := range vec {
		counts[id]++
	}
	var weight float64
	for id, n := range counts {
		w, ok := c.weights[id]
		if !ok {
			continue
		}
		weight += (1 + math.Log(float64(n))) * w
	}

	return vec, weight, nil
}

// Decode reverses Encode: every merged id in tokens is expanded to its
// immediate children, repeatedly, until only base alphabet ids remain.
func (c *Classic[T]) Decode(tokens []uint32) ([]T, error) {
	if !c.IsFitted() {
		return nil, newError("decode", NotFitted, errNotFitted)
	}

	vec := append([]uint32(nil), tokens...)
	for {
		expanded := false
		out := make([]uint32, 0, len(vec))
		for _, id := range vec {
			if children, ok := c.backward[id]; ok {
				out = append(out, children...)
				expanded = true
				continue
			}
			out = append(out, id)
		}
		vec = out
		if !expanded {
			break
		}
	}

	return c.vecToDoc(vec)
}
