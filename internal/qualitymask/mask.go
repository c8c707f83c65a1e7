// Package qualitymask marks which samples of a time series fall inside
// acceptable-quality intervals.
package qualitymask

import (
	"math"

	"nwbconv/internal/convert"
)

// Interval is an inclusive [Start, End] span in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Contains reports whether t lies within the interval, boundaries included.
func (iv Interval) Contains(t float64) bool {
	return iv.Start <= t && t <= iv.End
}

// Build returns a mask the same length as timestamps that is true where a
// timestamp lies inside at least one interval. With no intervals every
// sample is excluded. Intervals may overlap and need not be sorted.
func Build(timestamps []float64, intervals []Interval) ([]bool, error) {
	if err := Validate(intervals); err != nil {
		return nil, err
	}

	mask := make([]bool, len(timestamps))
	if len(intervals) == 0 {
		return mask, nil
	}
	for i, t := range timestamps {
		for _, iv := range intervals {
			if iv.Contains(t) {
				mask[i] = true
				break
			}
		}
	}
	return mask, nil
}

// Validate rejects intervals with NaN bounds or a start after the end.
func Validate(intervals []Interval) error {
	for i, iv := range intervals {
		if math.IsNaN(iv.Start) || math.IsNaN(iv.End) {
			return convert.Errorf(convert.ErrShapeMismatch, "quality mask", "interval %d has a NaN bound", i)
		}
		if iv.Start > iv.End {
			return convert.Errorf(convert.ErrShapeMismatch, "quality mask",
				"interval %d starts after it ends (%g > %g)", i, iv.Start, iv.End)
		}
	}
	return nil
}

// ParseIntervals interprets a numeric dataset as intervals. A single pair
// may be shaped [2] or [1 2]; a collection is shaped [n 2]. An empty dataset
// yields no intervals.
func ParseIntervals(values []float64, shape []int) ([]Interval, error) {
	if len(values) == 0 {
		return nil, nil
	}
	switch {
	case len(shape) == 1 && shape[0] == 2:
	case len(shape) == 2 && shape[1] == 2:
	case len(shape) == 2 && shape[0] == 2 && shape[1] == 1:
	default:
		return nil, convert.Errorf(convert.ErrShapeMismatch, "quality intervals",
			"expected [start end] pairs, got shape %v", shape)
	}
	if len(values)%2 != 0 {
		return nil, convert.Errorf(convert.ErrShapeMismatch, "quality intervals",
			"odd number of interval bounds (%d)", len(values))
	}
	out := make([]Interval, 0, len(values)/2)
	for i := 0; i < len(values); i += 2 {
		out = append(out, Interval{Start: values[i], End: values[i+1]})
	}
	return out, nil
}

// Count returns the number of accepted samples.
func Count(mask []bool) int {
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return n
}
