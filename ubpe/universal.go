package ubpe

import (
	"math"

	"github.com/Scurrra/ubpe-go/counter"
	"github.com/Scurrra/ubpe-go/ssstree"
	"github.com/Scurrra/ubpe-go/topk"
)

// Universal is the weighted UBPE variant: encoding keeps the top-N
// highest-weight segmentations of a document rather than committing to a
// single greedy one, via a dynamic program over the vocabulary's
// subsequence-search tree.
type Universal[T comparable] struct {
	*state[T]
	tree *ssstree.Tree[MergedId]
}

// NewUniversal creates an unfitted Universal tokenizer whose alphabet
// assigns base id i to T(i).
func NewUniversal[T Integer](nTokens, alphabetSize uint32) *Universal[T] {
	return &Universal[T]{state: newAutoAlphabet[T](nTokens, alphabetSize)}
}

// NewUniversalWithAlphabet creates an unfitted Universal tokenizer over a
// caller-supplied alphabet bijection.
func NewUniversalWithAlphabet[T comparable](nTokens, alphabetSize uint32, alphabet map[T]BaseId) (*Universal[T], error) {
	s, err := newWithAlphabet[T](nTokens, alphabetSize, alphabet)
	if err != nil {
		return nil, err
	}
	return &Universal[T]{state: s}, nil
}

// RestoreUniversal rebuilds a fitted Universal tokenizer from a previously
// exported alphabet, backward map (full base-id expansions), and weights.
func RestoreUniversal[T comparable](
	nTokens, alphabetSize uint32,
	alphabet map[T]BaseId,
	inverseAlphabet map[BaseId]T,
	backward map[MergedId][]uint32,
	weights map[MergedId]float64,
) (*Universal[T], error) {
	s, err := restoreState[T](nTokens, alphabetSize, alphabet, inverseAlphabet, backward, weights)
	if err != nil {
		return nil, err
	}
	u := &Universal[T]{state: s}
	u.rebuildTree()
	return u, nil
}

// rebuildTree indexes every base alphabet id (as a length-1 key) and every
// learned merge (keyed by its full base-id expansion) into the
// subsequence-search tree used by Encode's backward dynamic program.
func (u *Universal[T]) rebuildTree() {
	t := ssstree.New[MergedId]()
	for i := BaseId(0); i < u.alphabetSize; i++ {
		t.Insert([]uint32{i}, i)
	}
	for id, seq := range u.backward {
		t.Insert(seq, id)
	}
	u.tree = t
}

// expandOne returns the full base-id expansion of id: its own backward
// entry if id is a merge, or the singleton [id] if it is a base token.
func (u *Universal[T]) expandOne(id uint32) []uint32 {
	if seq, ok := u.backward[id]; ok {
		return append([]uint32(nil), seq...)
	}
	return []uint32{id}
}

// Fit trains the merge table exactly as Classic does (see fitLoop), except
// that every accepted pair's backward entry is the concatenation of its
// children's own full expansions rather than the bare pair, and the
// subsequence-search tree is rebuilt from the result so Encode can use it
// immediately.
func (u *Universal[T]) Fit(corpus [][]T, nCandidates uint32, rearrange bool) error {
	vecs := make([][]uint32, len(corpus))
	for i, doc := range corpus {
		v, err := u.docToVec(doc)
		if err != nil {
			return err
		}
		vecs[i] = v
	}

	expand := func(a, b uint32) []uint32 {
		return append(u.expandOne(a), u.expandOne(b)...)
	}
	if err := fitLoop(u.state, vecs, nCandidates, rearrange, expand); err != nil {
		return err
	}
	u.rebuildTree()
	return nil
}

// completion is one candidate suffix segmentation discovered by Encode's
// backward dynamic program: the tokens chosen from some position to the end
// of the document, the per-id occurrence count among those tokens (mirroring
// the original's own Counter<uint32_t> over the tails table), and the
// weight derived from it (fewer tokens is preferred on a weight tie).
type completion struct {
	tokens []uint32
	counts *counter.Counter[uint32]
	weight float64
}

func completionLess(a, b completion) bool {
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return len(a.tokens) > len(b.tokens)
}

// extendCounts clones tail's occurrence counter (or starts a fresh one, for
// the empty tail at the document's end) and tallies one more occurrence of
// id, the token being prepended ahead of it.
func extendCounts(tail *counter.Counter[uint32], id uint32) *counter.Counter[uint32] {
	var counts *counter.Counter[uint32]
	if tail == nil {
		counts = counter.New[uint32]()
	} else {
		counts = tail.Clone()
	}
	counts.Add(id, 1)
	return counts
}

// weighCounts applies the same (1 + log(count)) * weight formula Classic's
// Encode uses, over a completion's per-id occurrence counts, so a merge id
// recurring within a segmentation is weighed logarithmically rather than
// additively.
func (u *Universal[T]) weighCounts(counts *counter.Counter[uint32]) float64 {
	var weight float64
	for _, e := range counts.Entries() {
		w, ok := u.weights[e.Value]
		if !ok {
			continue
		}
		weight += (1 + math.Log(float64(e.Count))) * w
	}
	return weight
}

// EncodeResult is one retained segmentation of a document, with its total
// weight: the sum, over its distinct tokens, of (1 + log(count)) * weight,
// where count is how many times that token id recurs in the segmentation.
type EncodeResult struct {
	Tokens []uint32
	Weight float64
}

// Encode finds the top-N highest-weight segmentations of doc. It sweeps the
// document once from the end backward; at each position i it enumerates,
// via the subsequence-search tree, every vocabulary entry that matches
// doc[i:] as a prefix, and extends each of position i+len's retained
// completions by that token, keeping only the topN best completions at i
// before moving on (shorter sequence wins a weight tie).
func (u *Universal[T]) Encode(doc []T, topN uint8) ([]EncodeResult, error) {
	if !u.IsFitted() {
		return nil, newError("encode", NotFitted, errNotFitted)
	}
	if topN == 0 {
		return nil, newError("encode", InvalidConfiguration, errZeroTopN)
	}
	vec, err := u.docToVec(doc)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, nil
	}

	n := len(vec)
	tails := make([][]completion, n+1)
	tails[n] = []completion{{}}

	for i := n - 1; i >= 0; i-- {
		matches, err := u.tree.PrefixEnumerate(vec, i, true)
		if err != nil {
			return nil, newError("encode", InvalidInput, err)
		}

		var candidates []completion
		for _, m := range matches {
			j := i + m.Len
			for _, tail := range tails[j] {
				tokens := append([]uint32{m.Value}, tail.tokens...)
				counts := extendCounts(tail.counts, m.Value)
				candidates = append(candidates, completion{
					tokens: tokens,
					counts: counts,
					weight: u.weighCounts(counts),
				})
			}
		}

		tails[i] = topk.Largest(candidates, int(topN), func(c completion) completion { return c }, completionLess)
	}

	out := make([]EncodeResult, len(tails[0]))
	for i, c := range tails[0] {
		out[i] = EncodeResult{Tokens: c.tokens, Weight: c.weight}
	}
	return out, nil
}

// Decode reverses Encode: every token is looked up in the backward map and
// replaced by its full base-id expansion in one linear pass (no iteration
// needed, since Universal's backward entries are already fully expanded).
func (u *Universal[T]) Decode(tokens []uint32) ([]T, error) {
	if !u.IsFitted() {
		return nil, newError("decode", NotFitted, errNotFitted)
	}

	vec := make([]uint32, 0, len(tokens))
	for _, id := range tokens {
		if seq, ok := u.backward[id]; ok {
			vec = append(vec, seq...)
			continue
		}
		vec = append(vec, id)
	}
	return u.vecToDoc(vec)
}
