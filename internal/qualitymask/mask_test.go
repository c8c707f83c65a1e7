package qualitymask

import (
	"errors"
	"testing"

	"nwbconv/internal/convert"
)

func TestBuildBoundariesInclusive(t *testing.T) {
	ts := []float64{0, 1, 2, 3, 4, 5}
	mask, err := Build(ts, []Interval{{Start: 1, End: 3}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []bool{false, true, true, true, false, false}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask[%d] = %v, want %v (mask=%v)", i, mask[i], want[i], mask)
		}
	}
}

func TestBuildUnionOfOverlappingUnsortedIntervals(t *testing.T) {
	ts := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	mask, err := Build(ts, []Interval{{Start: 5, End: 6}, {Start: 1, End: 3}, {Start: 2, End: 4}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []bool{false, true, true, true, true, true, true, false}
	for i := range want {
		if mask[i] != want[i] {
			t.Fatalf("mask[%d] = %v, want %v", i, mask[i], want[i])
		}
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	mask, err := Build(nil, []Interval{{Start: 0, End: 1}})
	if err != nil || len(mask) != 0 {
		t.Fatalf("expected empty mask for empty timestamps, got %v err=%v", mask, err)
	}

	mask, err = Build([]float64{0.5, 1.5, 2.5}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(mask) != 3 || Count(mask) != 0 {
		t.Fatalf("expected all-false mask of length 3, got %v", mask)
	}
}

func TestBuildRejectsMalformedIntervals(t *testing.T) {
	if _, err := Build([]float64{1}, []Interval{{Start: 3, End: 1}}); !errors.Is(err, convert.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch for inverted interval, got %v", err)
	}
}

func TestBuildSampleRange(t *testing.T) {
	ts := make([]float64, 100)
	for i := range ts {
		ts[i] = float64(i) / 10
	}
	mask, err := Build(ts, []Interval{{Start: ts[10], End: ts[50]}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := Count(mask); got != 41 {
		t.Fatalf("expected 41 accepted samples, got %d", got)
	}
	for i, ok := range mask {
		if ok != (i >= 10 && i <= 50) {
			t.Fatalf("unexpected mask value at %d: %v", i, ok)
		}
	}
}

func TestParseIntervals(t *testing.T) {
	single, err := ParseIntervals([]float64{1, 2}, []int{2})
	if err != nil || len(single) != 1 || single[0] != (Interval{Start: 1, End: 2}) {
		t.Fatalf("unexpected single interval: %v err=%v", single, err)
	}
	many, err := ParseIntervals([]float64{1, 2, 5, 8}, []int{2, 2})
	if err != nil || len(many) != 2 || many[1] != (Interval{Start: 5, End: 8}) {
		t.Fatalf("unexpected intervals: %v err=%v", many, err)
	}
	none, err := ParseIntervals(nil, nil)
	if err != nil || none != nil {
		t.Fatalf("expected no intervals, got %v err=%v", none, err)
	}
	if _, err := ParseIntervals([]float64{1, 2, 3}, []int{3}); !errors.Is(err, convert.ErrShapeMismatch) {
		t.Fatalf("expected shape mismatch, got %v", err)
	}
}
