package topk

import (
	"reflect"
	"testing"
)

func intLess(a, b int) bool { return a < b }

func TestHeapPushBoundedCapacity(t *testing.T) {
	h := New(3, intLess)
	for _, v := range []int{5, 1, 9, 2, 8, 3} {
		h.Push(v)
	}
	got := h.Sorted()
	want := []int{9, 8, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHeapPushTieDoesNotEvict(t *testing.T) {
	h := New(2, intLess)
	h.Push(2)
	h.Push(5)
	h.Push(2) // equal to the current weakest retained element: must not replace it
	got := h.Sorted()
	want := []int{5, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHeapZeroCapacityDropsEverything(t *testing.T) {
	h := New(0, intLess)
	h.Push(1)
	h.Push(2)
	if h.Len() != 0 {
		t.Fatalf("expected empty heap, got %d elements", h.Len())
	}
}

func TestLargestSmallRegime(t *testing.T) {
	data := []int{3, 1, 4, 1, 5, 9, 2, 6}
	got := Largest(data, 1, func(v int) int { return v }, intLess)
	want := []int{9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLargestFullSortRegime(t *testing.T) {
	data := []int{3, 1, 4, 1, 5}
	got := Largest(data, len(data), func(v int) int { return v }, intLess)
	want := []int{5, 4, 3, 1, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLargestBoundedHeapRegime(t *testing.T) {
	data := []int{3, 1, 4, 1, 5, 9, 2, 6}
	got := Largest(data, 3, func(v int) int { return v }, intLess)
	want := []int{9, 6, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLargestTiesBreakByArrivalOrder(t *testing.T) {
	type item struct {
		label string
		key   int
	}
	data := []item{{"a", 1}, {"b", 1}, {"c", 1}}
	got := Largest(data, 2, func(v item) int { return v.key }, intLess)
	if len(got) != 2 || got[0].label != "a" || got[1].label != "b" {
		t.Fatalf("expected earlier arrivals to win ties, got %v", got)
	}
}

func TestSmallestDual(t *testing.T) {
	data := []int{3, 1, 4, 1, 5, 9, 2, 6}
	got := Smallest(data, 3, func(v int) int { return v }, intLess)
	want := []int{1, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLargestEmptyAndZeroN(t *testing.T) {
	if got := Largest([]int{1, 2, 3}, 0, func(v int) int { return v }, intLess); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
	if got := Largest([]int{}, 3, func(v int) int { return v }, intLess); got != nil {
		t.Fatalf("expected nil for empty data, got %v", got)
	}
}
