package ubpe

import (
	"math"
	"reflect"
	"testing"
)

// Hand-traced scenario: alphabet {a=0, b=1}, corpus "abab", n_tokens=3. The
// only learned merge is (a,b) -> 2 (weight 0, since the pair occurs in the
// corpus's single document). Encode's backward dynamic program prefers the
// two-token segmentation [ab, ab] over the three-token [a, b, ab] and
// four-token [a, b, a, b] segmentations on a weight tie, since fewer tokens
// wins.
func TestUniversalTrainEncodeDecodeRoundTrip(t *testing.T) {
	alphabet := map[byte]BaseId{'a': 0, 'b': 1}
	tok, err := NewUniversalWithAlphabet[byte](3, 2, alphabet)
	if err != nil {
		t.Fatalf("NewUniversalWithAlphabet failed: %v", err)
	}
	if err := tok.Fit([][]byte{[]byte("abab")}, 1, true); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if got := len(tok.BackwardMapper()); got != 1 {
		t.Fatalf("expected 1 merge, got %d", got)
	}
	if got, ok := tok.BackwardMapper()[2]; !ok || !reflect.DeepEqual(got, []uint32{0, 1}) {
		t.Fatalf("backward[2] = %v, %v, want [0 1], true", got, ok)
	}

	results, err := tok.Encode([]byte("abab"), 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	want := []uint32{2, 2}
	if !reflect.DeepEqual(results[0].Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", results[0].Tokens, want)
	}

	decoded, err := tok.Decode(results[0].Tokens)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if string(decoded) != "abab" {
		t.Fatalf("Decode = %q, want %q", decoded, "abab")
	}
}

func TestUniversalEncodeTopNNeverExceedsRequested(t *testing.T) {
	alphabet := map[byte]BaseId{'a': 0, 'b': 1}
	tok, err := NewUniversalWithAlphabet[byte](3, 2, alphabet)
	if err != nil {
		t.Fatalf("NewUniversalWithAlphabet failed: %v", err)
	}
	if err := tok.Fit([][]byte{[]byte("abab")}, 1, true); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	results, err := tok.Encode([]byte("abab"), 5)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(results) > 5 {
		t.Fatalf("got %d results, want at most 5", len(results))
	}
	for _, r := range results {
		decoded, err := tok.Decode(r.Tokens)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if string(decoded) != "abab" {
			t.Fatalf("Decode(%v) = %q, want %q", r.Tokens, decoded, "abab")
		}
	}
}

func TestUniversalEncodeBeforeFitReturnsNotFitted(t *testing.T) {
	tok := NewUniversal[byte](259, 256)
	if _, err := tok.Encode([]byte("a"), 1); !IsKind(err, NotFitted) {
		t.Fatalf("expected NotFitted, got %v", err)
	}
}

func TestUniversalEncodeZeroTopNReturnsInvalidConfiguration(t *testing.T) {
	tok := NewUniversal[byte](259, 256)
	if err := tok.Fit([][]byte{[]byte("aa")}, 1, true); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := tok.Encode([]byte("a"), 0); !IsKind(err, InvalidConfiguration) {
		t.Fatalf("expected InvalidConfiguration, got %v", err)
	}
}

func TestUniversalEncodeEmptyDocumentReturnsEmptyResult(t *testing.T) {
	tok := NewUniversal[byte](259, 256)
	if err := tok.Fit([][]byte{[]byte("aa")}, 1, true); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	results, err := tok.Encode(nil, 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Encode(nil) = %v, want an empty slice", results)
	}
}

func TestUniversalDecodeBeforeFitReturnsNotFitted(t *testing.T) {
	tok := NewUniversal[byte](259, 256)
	if _, err := tok.Decode([]uint32{0}); !IsKind(err, NotFitted) {
		t.Fatalf("expected NotFitted, got %v", err)
	}
}

// The single learned merge (id 2, weight 0.5) recurs twice in the winning
// segmentation of "abab" ([2, 2]). Its weight must be scaled logarithmically
// by occurrence count, (1 + log(2)) * 0.5, not summed additively (which
// would give 1.0): the additive total would also tie with, and so be
// indistinguishable from, two unrelated weight-0.5 merges occurring once
// each, which the log-scaled formula is specifically meant to avoid.
func TestUniversalEncodeWeighsRepeatedTokenLogarithmically(t *testing.T) {
	alphabet := map[byte]BaseId{'a': 0, 'b': 1}
	inverse := map[BaseId]byte{0: 'a', 1: 'b'}
	backward := map[MergedId][]uint32{2: {0, 1}}
	weights := map[MergedId]float64{2: 0.5}

	tok, err := RestoreUniversal[byte](3, 2, alphabet, inverse, backward, weights)
	if err != nil {
		t.Fatalf("RestoreUniversal failed: %v", err)
	}

	results, err := tok.Encode([]byte("abab"), 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	wantTokens := []uint32{2, 2}
	if !reflect.DeepEqual(results[0].Tokens, wantTokens) {
		t.Fatalf("Tokens = %v, want %v", results[0].Tokens, wantTokens)
	}

	wantWeight := (1 + math.Log(2)) * 0.5
	if math.Abs(results[0].Weight-wantWeight) > 1e-12 {
		t.Fatalf("Weight = %v, want %v", results[0].Weight, wantWeight)
	}
}

func TestRestoreUniversalDecodesFromExportedMaps(t *testing.T) {
	alphabet := map[byte]BaseId{'a': 0, 'b': 1}
	inverse := map[BaseId]byte{0: 'a', 1: 'b'}
	backward := map[MergedId][]uint32{2: {0, 1}}
	weights := map[MergedId]float64{2: 0}

	tok, err := RestoreUniversal[byte](3, 2, alphabet, inverse, backward, weights)
	if err != nil {
		t.Fatalf("RestoreUniversal failed: %v", err)
	}
	if !tok.IsFitted() {
		t.Fatal("expected a restored tokenizer with a non-empty backward map to be fitted")
	}

	results, err := tok.Encode([]byte("abab"), 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []uint32{2, 2}
	if !reflect.DeepEqual(results[0].Tokens, want) {
		t.Fatalf("Tokens = %v, want %v", results[0].Tokens, want)
	}
}
