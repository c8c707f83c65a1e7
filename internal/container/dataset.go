package container

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"nwbconv/internal/convert"
)

// Kind distinguishes the dataset encodings a container may hold.
type Kind string

const (
	KindDense  Kind = "dense"
	KindSparse Kind = "sparse"
	KindText   Kind = "text"
)

// Numbers is a float64 vector whose JSON form writes NaN as null.
type Numbers []float64

func (n Numbers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		switch {
		case math.IsNaN(v):
			buf.WriteString("null")
		case math.IsInf(v, 0):
			return nil, fmt.Errorf("cannot encode infinite value at %d", i)
		default:
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (n *Numbers) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Numbers, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*n = out
	return nil
}

// Dataset is a leaf of the container tree. Dense data is row-major over
// Shape; sparse data is a coordinate list over a two-axis Shape.
type Dataset struct {
	Kind    Kind     `json:"kind"`
	Shape   []int    `json:"shape"`
	Data    Numbers  `json:"data,omitempty"`
	Rows    []int    `json:"rows,omitempty"`
	Cols    []int    `json:"cols,omitempty"`
	Values  Numbers  `json:"values,omitempty"`
	Strings []string `json:"strings,omitempty"`
}

// Dense returns a dense dataset.
func Dense(shape []int, data []float64) *Dataset {
	return &Dataset{Kind: KindDense, Shape: append([]int(nil), shape...), Data: Numbers(data)}
}

// Scalar returns a zero-axis dense dataset.
func Scalar(v float64) *Dataset {
	return &Dataset{Kind: KindDense, Shape: []int{}, Data: Numbers{v}}
}

// Vector returns a one-axis dense dataset.
func Vector(data []float64) *Dataset {
	return Dense([]int{len(data)}, data)
}

// Matrix returns a two-axis dense dataset from equal-length rows.
func Matrix(rows [][]float64) *Dataset {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		data = append(data, r...)
	}
	return Dense([]int{len(rows), cols}, data)
}

// Sparse returns a coordinate-list dataset. values may be nil.
func Sparse(numRows, numCols int, rows, cols []int, values []float64) *Dataset {
	return &Dataset{Kind: KindSparse, Shape: []int{numRows, numCols}, Rows: rows, Cols: cols, Values: Numbers(values)}
}

// Text returns a string dataset.
func Text(values ...string) *Dataset {
	return &Dataset{Kind: KindText, Shape: []int{len(values)}, Strings: values}
}

// Size returns the element count implied by Shape.
func (d *Dataset) Size() int {
	n := 1
	for _, s := range d.Shape {
		n *= s
	}
	return n
}

// Validate checks the dataset is internally consistent.
func (d *Dataset) Validate() error {
	for _, s := range d.Shape {
		if s < 0 {
			return fmt.Errorf("negative axis length in shape %v", d.Shape)
		}
	}
	switch d.Kind {
	case KindDense:
		if len(d.Data) != d.Size() {
			return fmt.Errorf("dense dataset has %d values for shape %v", len(d.Data), d.Shape)
		}
	case KindSparse:
		if len(d.Shape) != 2 {
			return fmt.Errorf("sparse dataset needs 2 axes, shape is %v", d.Shape)
		}
		if len(d.Rows) != len(d.Cols) {
			return fmt.Errorf("sparse dataset has %d rows and %d cols coordinates", len(d.Rows), len(d.Cols))
		}
		if d.Values != nil && len(d.Values) != len(d.Rows) {
			return fmt.Errorf("sparse dataset has %d values for %d coordinates", len(d.Values), len(d.Rows))
		}
	case KindText:
		if len(d.Shape) > 1 || (len(d.Shape) == 1 && d.Shape[0] != len(d.Strings)) {
			return fmt.Errorf("text dataset has %d strings for shape %v", len(d.Strings), d.Shape)
		}
	default:
		return fmt.Errorf("unknown dataset kind %q", d.Kind)
	}
	return nil
}

func (d *Dataset) require(kind Kind, op string) error {
	if d == nil {
		return convert.Errorf(convert.ErrSourceFormat, op, "dataset is missing")
	}
	if d.Kind != kind {
		return convert.Errorf(convert.ErrSourceFormat, op, "expected %s dataset, found %s", kind, d.Kind)
	}
	if err := d.Validate(); err != nil {
		return convert.Errorf(convert.ErrSourceFormat, op, "%v", err)
	}
	return nil
}

// ScalarValue returns the single value of a dense dataset of size one.
func (d *Dataset) ScalarValue() (float64, error) {
	if err := d.require(KindDense, "read scalar"); err != nil {
		return 0, err
	}
	if len(d.Data) != 1 {
		return 0, convert.Errorf(convert.ErrSourceFormat, "read scalar", "dataset has %d values", len(d.Data))
	}
	return d.Data[0], nil
}

// Floats returns the flat row-major values of a dense dataset.
func (d *Dataset) Floats() ([]float64, error) {
	if err := d.require(KindDense, "read values"); err != nil {
		return nil, err
	}
	return append([]float64(nil), d.Data...), nil
}

// Ints returns the values of a dense dataset, which must all be integral.
func (d *Dataset) Ints() ([]int, error) {
	vals, err := d.Floats()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || v != math.Trunc(v) {
			return nil, convert.Errorf(convert.ErrSourceFormat, "read integers", "value %g at %d is not an integer", v, i)
		}
		out[i] = int(v)
	}
	return out, nil
}

// Rows2D returns a dense dataset as rows. A one-axis dataset is a single row;
// an empty dataset yields no rows.
func (d *Dataset) Rows2D() ([][]float64, error) {
	if err := d.require(KindDense, "read matrix"); err != nil {
		return nil, err
	}
	switch len(d.Shape) {
	case 1:
		if d.Shape[0] == 0 {
			return nil, nil
		}
		return [][]float64{append([]float64(nil), d.Data...)}, nil
	case 2:
		rows, cols := d.Shape[0], d.Shape[1]
		out := make([][]float64, rows)
		for r := range out {
			out[r] = append([]float64(nil), d.Data[r*cols:(r+1)*cols]...)
		}
		return out, nil
	default:
		return nil, convert.Errorf(convert.ErrSourceFormat, "read matrix", "expected 1 or 2 axes, shape is %v", d.Shape)
	}
}
