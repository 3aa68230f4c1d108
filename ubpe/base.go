// Package ubpe implements the training and encoding core of a Universal
// Byte-Pair Encoding tokenizer: Classic (deterministic greedy) and
// Universal (weighted, top-N) variants sharing a common vocabulary state.
package ubpe

import (
	"encoding/binary"
	"sort"
)

// BaseId identifies a token of the fixed alphabet, in [0, alphabetSize).
type BaseId = uint32

// MergedId identifies a learned merge, in [alphabetSize, nextId).
type MergedId = uint32

// Integer constrains the token type T for the shape of constructor that
// auto-assigns base ids by converting BaseId values directly into T (the
// classic "T is basically a byte/rune" case).
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// state holds everything shared by Classic and Universal: the alphabet
// bijection, the merge maps, and the weights. It is composed into both
// concrete tokenizer types rather than inherited from, per the flat design
// favored over an inheritance chain.
type state[T comparable] struct {
	nTokens      uint32
	alphabetSize uint32

	alphabet        map[T]BaseId
	inverseAlphabet map[BaseId]T

	// backward holds, for Classic, the immediate pair [first, second] of
	// each merge (elements may themselves be merged ids); for Universal,
	// the full base-id expansion. Either way pruning operates on it
	// uniformly (see prune).
	backward map[MergedId][]uint32
	forward  map[string]MergedId

	weights map[MergedId]float64

	nextID uint32
	fitted bool
}

// seqKey turns a sequence of ids into a comparable, hashable map key, since
// Go slices cannot be used as map keys directly.
func seqKey(seq []uint32) string {
	buf := make([]byte, 4*len(seq))
	for i, id := range seq {
		binary.LittleEndian.PutUint32(buf[i*4:], id)
	}
	return string(buf)
}

func newBaseState[T comparable](nTokens, alphabetSize uint32) *state[T] {
	return &state[T]{
		nTokens:         nTokens,
		alphabetSize:    alphabetSize,
		alphabet:        make(map[T]BaseId, alphabetSize),
		inverseAlphabet: make(map[BaseId]T, alphabetSize),
		backward:        make(map[MergedId][]uint32),
		forward:         make(map[string]MergedId),
		weights:         make(map[MergedId]float64),
		nextID:          alphabetSize,
	}
}

// newAutoAlphabet builds a state whose alphabet assigns base id i to the
// value of T constructed from i itself (T(0), T(1), ...). It is valid only
// when T's underlying representation is an integer, e.g. T = byte or T =
// rune, mirroring the "TokenType convertible from uint32" constructor of
// the original implementation.
func newAutoAlphabet[T Integer](nTokens, alphabetSize uint32) *state[T] {
	s := newBaseState[T](nTokens, alphabetSize)
	for i := BaseId(0); i < alphabetSize; i++ {
		v := T(i)
		s.alphabet[v] = i
		s.inverseAlphabet[i] = v
	}
	return s
}

func newWithAlphabet[T comparable](nTokens, alphabetSize uint32, alphabet map[T]BaseId) (*state[T], error) {
	if uint32(len(alphabet)) != alphabetSize {
		return nil, newError("new", InvalidConfiguration,
			errSized("alphabet", len(alphabet), alphabetSize))
	}
	s := newBaseState[T](nTokens, alphabetSize)
	for t, id := range alphabet {
		s.alphabet[t] = id
		s.inverseAlphabet[id] = t
	}
	return s, nil
}

func restoreState[T comparable](
	nTokens, alphabetSize uint32,
	alphabet map[T]BaseId,
	inverseAlphabet map[BaseId]T,
	backward map[MergedId][]uint32,
	weights map[MergedId]float64,
) (*state[T], error) {
	if uint32(len(alphabet)) != alphabetSize {
		return nil, newError("restore", InvalidConfiguration,
			errSized("alphabet", len(alphabet), alphabetSize))
	}
	if len(alphabet) != len(inverseAlphabet) {
		return nil, newError("restore", InvalidConfiguration,
			errSized("inverse alphabet", len(inverseAlphabet), uint32(len(alphabet))))
	}

	s := newBaseState[T](nTokens, alphabetSize)
	for t, id := range alphabet {
		s.alphabet[t] = id
	}
	for id, t := range inverseAlphabet {
		s.inverseAlphabet[id] = t
	}
	s.backward = backward
	s.weights = weights
	s.forward = make(map[string]MergedId, len(backward))
	maxID := alphabetSize
	for id, seq := range backward {
		s.forward[seqKey(seq)] = id
		if id+1 > maxID {
			maxID = id + 1
		}
	}
	s.nextID = maxID
	s.fitted = len(backward) > 0
	return s, nil
}

// docToVec converts a document of T into base ids, failing on any value
// outside the fixed alphabet.
func (s *state[T]) docToVec(doc []T) ([]BaseId, error) {
	out := make([]BaseId, len(doc))
	for i, t := range doc {
		id, ok := s.alphabet[t]
		if !ok {
			return nil, newError("encode", InvalidInput, errUnknownToken)
		}
		out[i] = id
	}
	return out, nil
}

// vecToDoc converts base ids back into T, failing on any id outside the
// fixed alphabet (a programming error: decode should never produce one).
func (s *state[T]) vecToDoc(vec []BaseId) ([]T, error) {
	out := make([]T, len(vec))
	for i, id := range vec {
		t, ok := s.inverseAlphabet[id]
		if !ok {
			return nil, newError("decode", InvalidInput, errUnknownToken)
		}
		out[i] = t
	}
	return out, nil
}

// substituteBatch applies a batch of pairwise-disjoint merges to seq in a
// single left-to-right pass: sub maps the first id of an accepted pair to
// (second id, new id). Because the batch's pairs share no ids (the
// non-overlap rule enforced during candidate selection), one pass suffices.
func substituteBatch(seq []uint32, sub map[uint32][2]uint32) []uint32 {
	if len(seq) == 0 {
		return seq
	}
	out := make([]uint32, 0, len(seq))
	i := 0
	for i < len(seq)-1 {
		if rest, ok := sub[seq[i]]; ok && rest[0] == seq[i+1] {
			out = append(out, rest[1])
			i += 2
			continue
		}
		out = append(out, seq[i])
		i++
	}
	if i < len(seq) {
		out = append(out, seq[i])
	}
	return out
}

// prune implements the weight-based pruning/renumbering procedure of
// §4.5: when the vocabulary exceeds n_tokens, the lowest-weight merges are
// dropped (along with any merge that transitively refers to a dropped id),
// and survivors are renumbered densely, highest weight first.
func (s *state[T]) prune() {
	total := s.alphabetSize + uint32(len(s.backward))
	if total <= s.nTokens {
		return
	}

	type entry struct {
		id  MergedId
		seq []uint32
	}
	buf := make([]entry, 0, len(s.backward))
	for id, seq := range s.backward {
		buf = append(buf, entry{id: id, seq: seq})
	}
	sort.SliceStable(buf, func(i, j int) bool {
		wi, wj := s.weights[buf[i].id], s.weights[buf[j].id]
		if wi != wj {
			return wi < wj
		}
		return buf[i].id < buf[j].id
	})

	toDeleteQty := int(total) - int(s.nTokens)
	toDelete := make(map[int]struct{})
	// propagate marks every not-yet-marked index j>from whose seq refers to
	// from's id, and recurses on each index it marks, so a chain of any
	// depth (C refers to B, B refers to A) is caught, not just one hop.
	var propagate func(from int)
	propagate = func(from int) {
		for j := from + 1; j < len(buf); j++ {
			if _, marked := toDelete[j]; marked {
				continue
			}
			for _, el := range buf[j].seq {
				if el == buf[from].id {
					toDelete[j] = struct{}{}
					propagate(j)
					break
				}
			}
		}
	}
	for i := 0; i < len(buf); i++ {
		if _, marked := toDelete[i]; marked {
			continue
		}
		if len(toDelete) >= toDeleteQty {
			break
		}
		toDelete[i] = struct{}{}
		propagate(i)
	}

	deletedIDs := make(map[MergedId]struct{}, len(toDelete))
	for i := range toDelete {
		deletedIDs[buf[i].id] = struct{}{}
	}

	// Reverse the weight-sorted buffer so the highest-weight survivor gets
	// the smallest new id.
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}

	transformer := make(map[uint32]uint32, s.alphabetSize+uint32(len(buf)))
	for i := uint32(0); i < s.alphabetSize; i++ {
		transformer[i] = i
	}
	next := s.alphabetSize
	survivors := make([]entry, 0, len(buf)-len(deletedIDs))
	for _, e := range buf {
		if _, dead := deletedIDs[e.id]; dead {
			continue
		}
		transformer[e.id] = next
		next++
		survivors = append(survivors, e)
	}

	newBackward := make(map[MergedId][]uint32, len(survivors))
	newWeights := make(map[MergedId]float64, len(survivors))
	newForward := make(map[string]MergedId, len(survivors))
	for _, e := range survivors {
		newID := transformer[e.id]
		newSeq := make([]uint32, len(e.seq))
		for i, el := range e.seq {
			newSeq[i] = transformer[el]
		}
		newBackward[newID] = newSeq
		newWeights[newID] = s.weights[e.id]
		newForward[seqKey(newSeq)] = newID
	}

	s.backward = newBackward
	s.weights = newWeights
	s.forward = newForward
	s.nextID = next
}

// ForwardMapper returns the forward mapping (sequence key -> merged id) as
// used by serialization; the sequence key is the little-endian encoding
// produced by seqKey, not the raw []uint32.
func (s *state[T]) ForwardMapper() map[string]MergedId { return s.forward }

// BackwardMapper returns the backward mapping (merged id -> children).
func (s *state[T]) BackwardMapper() map[MergedId][]uint32 { return s.backward }

// Weights returns the information weight of every merge.
func (s *state[T]) Weights() map[MergedId]float64 { return s.weights }

// Alphabet returns the base alphabet bijection, T -> BaseId.
func (s *state[T]) Alphabet() map[T]BaseId { return s.alphabet }

// InverseAlphabet returns the inverse of Alphabet, BaseId -> T.
func (s *state[T]) InverseAlphabet() map[BaseId]T { return s.inverseAlphabet }

// IsFitted reports whether fit has been run (or state was restored from a
// non-empty dump).
func (s *state[T]) IsFitted() bool { return s.fitted }
