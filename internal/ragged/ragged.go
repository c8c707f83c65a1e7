package ragged

import (
	"slices"

	"nwbconv/internal/convert"
)

// Array is a flat data vector with one cumulative end offset per group.
type Array[T any] struct {
	Data  []T
	Index []int
}

// Encode concatenates groups in order and records their end offsets.
func Encode[T any](groups [][]T) Array[T] {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	out := Array[T]{
		Data:  make([]T, 0, total),
		Index: make([]int, len(groups)),
	}
	for i, g := range groups {
		out.Data = append(out.Data, g...)
		out.Index[i] = len(out.Data)
	}
	return out
}

// Len returns the number of groups.
func (a Array[T]) Len() int { return len(a.Index) }

// Validate checks the index against the data length.
func (a Array[T]) Validate() error {
	prev := 0
	for i, end := range a.Index {
		if end < prev {
			return convert.Errorf(convert.ErrShapeMismatch, "ragged index",
				"index[%d]=%d is below previous offset %d", i, end, prev)
		}
		prev = end
	}
	if prev != len(a.Data) {
		return convert.Errorf(convert.ErrShapeMismatch, "ragged index",
			"final offset %d does not match data length %d", prev, len(a.Data))
	}
	return nil
}

// Bounds returns the half-open data range of group i.
func (a Array[T]) Bounds(i int) (start, end int) {
	if i > 0 {
		start = a.Index[i-1]
	}
	return start, a.Index[i]
}

// Group returns group i as a subslice of Data.
func (a Array[T]) Group(i int) []T {
	start, end := a.Bounds(i)
	return a.Data[start:end:end]
}

// Decode splits the flat data back into groups. It is the inverse of Encode
// up to element-wise equality: zero-length groups, nil or not, come back as
// non-nil empty slices so they serialise as [] rather than null.
func Decode[T any](a Array[T]) ([][]T, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	out := make([][]T, a.Len())
	for i := range out {
		out[i] = slices.Clone(a.Group(i))
		if out[i] == nil {
			out[i] = []T{}
		}
	}
	return out, nil
}

// Lengths returns the element count of every group.
func (a Array[T]) Lengths() []int {
	out := make([]int, a.Len())
	for i := range out {
		start, end := a.Bounds(i)
		out[i] = end - start
	}
	return out
}
