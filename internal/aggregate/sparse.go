package aggregate

import (
	"slices"

	"nwbconv/internal/convert"
)

// SparseMatrix is a coordinate-list units × samples activity matrix. Values
// is optional; when present, zero entries are ignored.
type SparseMatrix struct {
	NumRows int
	NumCols int
	Rows    []int
	Cols    []int
	Values  []float64
}

// Validate checks that the coordinate lists agree and stay in bounds.
func (m SparseMatrix) Validate() error {
	if m.NumRows < 0 || m.NumCols < 0 {
		return convert.Errorf(convert.ErrShapeMismatch, "sparse matrix", "negative shape %dx%d", m.NumRows, m.NumCols)
	}
	if len(m.Rows) != len(m.Cols) {
		return convert.Errorf(convert.ErrShapeMismatch, "sparse matrix",
			"%d row coordinates but %d column coordinates", len(m.Rows), len(m.Cols))
	}
	if m.Values != nil && len(m.Values) != len(m.Rows) {
		return convert.Errorf(convert.ErrShapeMismatch, "sparse matrix",
			"%d values for %d coordinates", len(m.Values), len(m.Rows))
	}
	for i := range m.Rows {
		if m.Rows[i] < 0 || m.Rows[i] >= m.NumRows || m.Cols[i] < 0 || m.Cols[i] >= m.NumCols {
			return convert.Errorf(convert.ErrShapeMismatch, "sparse matrix",
				"entry %d at (%d,%d) outside %dx%d", i, m.Rows[i], m.Cols[i], m.NumRows, m.NumCols)
		}
	}
	return nil
}

// RowSpikes returns, for every row, the sorted column indices of its
// non-zero entries.
func (m SparseMatrix) RowSpikes() [][]int {
	out := make([][]int, m.NumRows)
	for i := range out {
		out[i] = []int{}
	}
	for i, r := range m.Rows {
		if m.Values != nil && m.Values[i] == 0 {
			continue
		}
		out[r] = append(out[r], m.Cols[i])
	}
	for _, cols := range out {
		slices.Sort(cols)
	}
	return out
}
