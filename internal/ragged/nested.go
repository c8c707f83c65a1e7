package ragged

import "nwbconv/internal/convert"

// Regroup builds the next index level above inner. The returned array's data
// are inner's index entries, partitioned so that outer group j owns
// counts[j] consecutive inner groups.
func Regroup[T any](inner Array[T], counts []int) (Array[int], error) {
	total := 0
	for j, c := range counts {
		if c < 0 {
			return Array[int]{}, convert.Errorf(convert.ErrShapeMismatch, "ragged regroup",
				"group %d has negative count %d", j, c)
		}
		total += c
	}
	if total != inner.Len() {
		return Array[int]{}, convert.Errorf(convert.ErrShapeMismatch, "ragged regroup",
			"counts cover %d groups but inner level has %d", total, inner.Len())
	}
	out := Array[int]{
		Data:  append([]int(nil), inner.Index...),
		Index: make([]int, len(counts)),
	}
	end := 0
	for j, c := range counts {
		end += c
		out.Index[j] = end
	}
	return out, nil
}

// Nested is a value level plus a stack of index levels. Levels[0] indexes
// Values; Levels[k] indexes the offsets stored in Levels[k-1].Index.
type Nested[T any] struct {
	Values []T
	Levels [][]int
}

// Depth returns the number of index levels.
func (n Nested[T]) Depth() int { return len(n.Levels) }

// Flatten converts an Array and its Regroup ancestors into a Nested value.
// levels must be ordered innermost first.
func Flatten[T any](inner Array[T], levels ...Array[int]) Nested[T] {
	out := Nested[T]{Values: inner.Data, Levels: make([][]int, 0, len(levels)+1)}
	out.Levels = append(out.Levels, inner.Index)
	for _, lvl := range levels {
		out.Levels = append(out.Levels, lvl.Index)
	}
	return out
}

// EncodeNested2 encodes groups of groups as a two-level hierarchy.
func EncodeNested2[T any](groups [][][]T) (Nested[T], error) {
	counts := make([]int, len(groups))
	var leaves [][]T
	for j, g := range groups {
		counts[j] = len(g)
		leaves = append(leaves, g...)
	}
	inner := Encode(leaves)
	outer, err := Regroup(inner, counts)
	if err != nil {
		return Nested[T]{}, err
	}
	return Flatten(inner, outer), nil
}

// DecodeNested2 is the inverse of EncodeNested2. Empty groups at either
// level are returned as non-nil empty slices, as with Decode.
func DecodeNested2[T any](n Nested[T]) ([][][]T, error) {
	if n.Depth() != 2 {
		return nil, convert.Errorf(convert.ErrShapeMismatch, "ragged decode", "expected 2 index levels, got %d", n.Depth())
	}
	leaves, err := Decode(Array[T]{Data: n.Values, Index: n.Levels[0]})
	if err != nil {
		return nil, err
	}
	outer := Array[int]{Data: n.Levels[0], Index: n.Levels[1]}
	if err := outer.Validate(); err != nil {
		return nil, err
	}
	out := make([][][]T, outer.Len())
	for j := range out {
		start, end := outer.Bounds(j)
		out[j] = leaves[start:end:end]
		if out[j] == nil {
			out[j] = [][]T{}
		}
	}
	return out, nil
}

// Resolve returns the value range spanned by group j of level k, following
// the index-of-indices chain down to Values.
func (n Nested[T]) Resolve(k, j int) (start, end int, err error) {
	if k < 0 || k >= n.Depth() {
		return 0, 0, convert.Errorf(convert.ErrShapeMismatch, "ragged resolve", "level %d outside 0..%d", k, n.Depth()-1)
	}
	level := n.Levels[k]
	if j < 0 || j >= len(level) {
		return 0, 0, convert.Errorf(convert.ErrShapeMismatch, "ragged resolve", "group %d outside level %d", j, k)
	}
	start, end = 0, level[j]
	if j > 0 {
		start = level[j-1]
	}
	for k--; k >= 0; k-- {
		below := n.Levels[k]
		lo := 0
		if start > 0 {
			lo = below[start-1]
		}
		hi := lo
		if end > 0 {
			hi = below[end-1]
		}
		start, end = lo, hi
	}
	return start, end, nil
}
