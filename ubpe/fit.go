package ubpe

import (
	"math"

	"github.com/Scurrra/ubpe-go/paircount"
)

func pairLess(a, b paircount.Pair[uint32]) bool {
	if a.First != b.First {
		return a.First < b.First
	}
	return a.Second < b.Second
}

// fitLoop runs the shared training loop described in §4.6/§4.7: rebuild a
// pair counter, select a non-overlapping batch of candidate pairs subject
// to the boundary-pair heuristic, allocate a merged id per accepted pair,
// and rewrite the corpus in place. expand computes the child expansion
// stored in the backward map for an accepted pair — [a, b] for Classic,
// the concatenated full expansion for Universal.
func fitLoop[T comparable](s *state[T], corpus [][]uint32, nCandidates uint32, rearrange bool, expand func(a, b uint32) []uint32) error {
	if nCandidates == 0 {
		return newError("fit", InvalidConfiguration, errNoCandidates)
	}

	for s.nextID < s.nTokens {
		counter := paircount.NewFromDocs(corpus)
		mc := counter.MostCommon(int(nCandidates), pairLess)
		if len(mc) == 0 {
			break
		}

		batch := make([]paircount.Entry[uint32], 0, len(mc))
		batch = append(batch, mc[0])
		used := map[uint32]struct{}{mc[0].Pair.First: {}, mc[0].Pair.Second: {}}

		for _, cand := range mc[1:] {
			if _, ok := used[cand.Pair.First]; ok {
				continue
			}
			if _, ok := used[cand.Pair.Second]; ok {
				continue
			}
			good := true
			for _, acc := range batch {
				left := counter.Get(paircount.Pair[uint32]{First: cand.Pair.Second, Second: acc.Pair.First}).Occurrences
				right := counter.Get(paircount.Pair[uint32]{First: acc.Pair.Second, Second: cand.Pair.First}).Occurrences
				if left >= cand.Counts.Occurrences || right >= cand.Counts.Occurrences {
					good = false
					break
				}
			}
			if !good {
				continue
			}
			batch = append(batch, cand)
			used[cand.Pair.First] = struct{}{}
			used[cand.Pair.Second] = struct{}{}
		}

		sub := make(map[uint32][2]uint32, len(batch))
		numDocs := float64(counter.NumDocuments())
		for _, acc := range batch {
			newID := s.nextID
			s.nextID++

			d := counter.Get(acc.Pair).Documents
			s.weights[newID] = math.Log((1 + numDocs) / (1 + float64(d)))

			seq := expand(acc.Pair.First, acc.Pair.Second)
			s.backward[newID] = seq
			s.forward[seqKey(seq)] = newID

			sub[acc.Pair.First] = [2]uint32{acc.Pair.Second, newID}
		}

		for i := range corpus {
			corpus[i] = substituteBatch(corpus[i], sub)
		}
	}

	if rearrange {
		s.prune()
	}
	s.fitted = true
	return nil
}
