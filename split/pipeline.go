// Package split is a reference implementation of the split pipeline the
// UBPE core is fed from externally. Package ubpe does not import split,
// and split does not import ubpe: callers run a raw document through a
// Pipeline first, then map the resulting substrings through their own
// alphabet before handing base-id sequences to the core.
package split

import (
	"runtime"
	"strings"
	"sync"

	"github.com/Scurrra/ubpe-go/ssstree"
	"github.com/dlclark/regexp2"
)

// Mode is a bitset selecting which stages of Pipeline.Split run, combined
// with |.
type Mode uint8

const (
	KnownWords Mode = 1 << iota
	BreakTokens
	Regex
	StopTokens
)

// Has reports whether mode includes flag.
func (mode Mode) Has(flag Mode) bool { return mode&flag != 0 }

// GPT4Pattern is the default regex used by Regex mode when no pattern was
// supplied to New.
const GPT4Pattern = `'(?i:[sdmt]|ll|ve|re)|(?>[^\r\n\p{L}\p{N}]?)\p{L}+|\p{N}{1,3}| ?(?>[^\s\p{L}\p{N}]+)[\r\n]*|\s*[\r\n]|\s+(?!\S)|\s+`

// Pipeline runs a document through up to four stages, in a fixed order
// regardless of which are requested by Mode: KnownWords and BreakTokens
// cut the document at occurrences of a literal in their respective sets
// (each occurrence becomes its own piece), Regex then splits whatever
// remains of each piece by pattern, and StopTokens finally drops any
// resulting piece that is itself a stop token.
type Pipeline struct {
	pattern     *regexp2.Regexp
	knownWords  *ssstree.Tree[string]
	breakTokens map[string]struct{}
	stopTokens  map[string]struct{}
}

// New creates a Pipeline. pattern may be empty, in which case GPT4Pattern
// is used. Any of knownWords, breakTokens, stopTokens may be nil.
func New(pattern string, knownWords, breakTokens, stopTokens []string) (*Pipeline, error) {
	if pattern == "" {
		pattern = GPT4Pattern
	}
	re, err := regexp2.Compile(pattern, 0)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		pattern:     re,
		knownWords:  buildKnownWordsTree(knownWords),
		breakTokens: toSet(breakTokens),
		stopTokens:  toSet(stopTokens),
	}, nil
}

// buildKnownWordsTree indexes words into a subsequence-search trie keyed by
// byte sequences, mirroring the original's kw_ssstree: words may overlap as
// prefixes of one another, so matching needs the trie's longest-prefix
// enumeration rather than a linear scan over the word set.
func buildKnownWordsTree(words []string) *ssstree.Tree[string] {
	t := ssstree.New[string]()
	found := false
	for _, w := range words {
		if w == "" {
			continue
		}
		t.Insert(bytesToUint32s(w), w)
		found = true
	}
	if !found {
		return nil
	}
	return t
}

func bytesToUint32s(s string) []uint32 {
	out := make([]uint32, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = uint32(s[i])
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Split cuts doc into substrings according to mode.
func (p *Pipeline) Split(doc string, mode Mode) ([]string, error) {
	chunks := []string{doc}

	if mode.Has(KnownWords) && p.knownWords != nil {
		next := make([]string, 0, len(chunks))
		for _, c := range chunks {
			next = append(next, splitChunkOnTree(c, p.knownWords)...)
		}
		chunks = next
	}
	if mode.Has(BreakTokens) && len(p.breakTokens) > 0 {
		chunks = splitOnSet(chunks, p.breakTokens)
	}
	if mode.Has(Regex) {
		next := make([]string, 0, len(chunks))
		for _, c := range chunks {
			matches, err := p.regexSplit(c)
			if err != nil {
				return nil, err
			}
			next = append(next, matches...)
		}
		chunks = next
	}
	if mode.Has(StopTokens) && len(p.stopTokens) > 0 {
		next := chunks[:0:0]
		for _, c := range chunks {
			if _, stop := p.stopTokens[c]; stop {
				continue
			}
			next = append(next, c)
		}
		chunks = next
	}
	return chunks, nil
}

// regexSplit matches pattern against s left to right, in the teacher's
// FindStringMatch/FindNextMatch idiom.
func (p *Pipeline) regexSplit(s string) ([]string, error) {
	var out []string
	m, err := p.pattern.FindStringMatch(s)
	if err != nil {
		return nil, err
	}
	for m != nil {
		out = append(out, m.String())
		m, err = p.pattern.FindNextMatch(m)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// splitOnSet cuts every chunk at each literal occurrence of a member of
// set, left to right, with no overlap; an occurrence becomes its own
// piece and runs of text between occurrences become their own pieces.
func splitOnSet(chunks []string, set map[string]struct{}) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, splitChunkOnSet(c, set)...)
	}
	return out
}

func splitChunkOnSet(s string, set map[string]struct{}) []string {
	if s == "" {
		return nil
	}
	var out []string
	i := 0
	for i < len(s) {
		if w, ok := matchAt(s[i:], set); ok {
			out = append(out, w)
			i += len(w)
			continue
		}
		j := i + 1
		for j < len(s) {
			if _, ok := matchAt(s[j:], set); ok {
				break
			}
			j++
		}
		out = append(out, s[i:j])
		i = j
	}
	return out
}

func matchAt(s string, set map[string]struct{}) (string, bool) {
	for w := range set {
		if strings.HasPrefix(s, w) {
			return w, true
		}
	}
	return "", false
}

// splitChunkOnTree cuts s at each occurrence of a known word, left to right,
// with no overlap, using tree's prefix enumeration to find the longest known
// word starting at a position -- mirroring the original's kw_ssstree usage,
// which takes kw_candidates.back() (the longest match, since PrefixEnumerate
// returns matches in non-decreasing length order).
func splitChunkOnTree(s string, tree *ssstree.Tree[string]) []string {
	if s == "" {
		return nil
	}
	seq := bytesToUint32s(s)
	var out []string
	i := 0
	for i < len(s) {
		if w, ok := longestKnownWordAt(seq, tree, i); ok {
			out = append(out, w)
			i += len(w)
			continue
		}
		j := i + 1
		for j < len(s) {
			if _, ok := longestKnownWordAt(seq, tree, j); ok {
				break
			}
			j++
		}
		out = append(out, s[i:j])
		i = j
	}
	return out
}

func longestKnownWordAt(seq []uint32, tree *ssstree.Tree[string], i int) (string, bool) {
	matches, err := tree.PrefixEnumerate(seq, i, true)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1].Value, true
}

// SplitBatch splits every document in docs concurrently, preserving input
// order in the output. Grounded on the teacher's countBufferParallel
// worker-pool shape: a fixed pool of runtime.NumCPU() goroutines drains a
// jobs channel of indices into an indexed results slice.
func (p *Pipeline) SplitBatch(docs []string, mode Mode) ([][]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	workerCount := runtime.NumCPU()
	if workerCount > len(docs) {
		workerCount = len(docs)
	}

	jobs := make(chan int, workerCount)
	out := make([][]string, len(docs))
	errCh := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := p.Split(docs[idx], mode)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					continue
				}
				out[idx] = res
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}
	return out, nil
}
