package export

import (
	"encoding/binary"
	"fmt"
	"math"
)

func encodeFloats(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

func decodeFloats(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("float64 blob has %d bytes", len(data))
	}
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return out, nil
}

func encodeInts(values []int) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(int64(v)))
	}
	return out
}

func decodeInts(data []byte) ([]int, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("int64 blob has %d bytes", len(data))
	}
	out := make([]int, len(data)/8)
	for i := range out {
		out[i] = int(int64(binary.LittleEndian.Uint64(data[8*i:])))
	}
	return out, nil
}

func encodeBools(values []bool) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		if v {
			out[i] = 1
		}
	}
	return out
}

func decodeBools(data []byte) []bool {
	out := make([]bool, len(data))
	for i, b := range data {
		out[i] = b != 0
	}
	return out
}

// flattenRows packs equal-width rows row-major.
func flattenRows(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return []float64{}
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

func splitRows(flat []float64, rows, columns int) ([][]float64, error) {
	if rows*columns != len(flat) {
		return nil, fmt.Errorf("%d values do not fill %d x %d", len(flat), rows, columns)
	}
	out := make([][]float64, rows)
	for i := range out {
		out[i] = flat[i*columns : (i+1)*columns : (i+1)*columns]
	}
	return out, nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

var nan = math.NaN()
