// Package waveform reshapes per-probe waveform snippet blocks into the
// per-unit layouts exported alongside the unit table.
package waveform

import (
	"fmt"
	"math"

	"nwbconv/internal/convert"
	"nwbconv/internal/ragged"
)

// Block is a unit × sample × channel snippet array in row-major order.
// PeakChannels, when set, gives the 0-based peak channel of every unit.
type Block struct {
	Samples      int
	Channels     int
	Data         []float64
	ClusterIDs   []int
	PeakChannels []int
}

// Units returns the number of units held by the block.
func (b *Block) Units() int { return len(b.ClusterIDs) }

func (b *Block) at(unit, sample, channel int) float64 {
	return b.Data[(unit*b.Samples+sample)*b.Channels+channel]
}

// Validate checks the block against the probe's declared channel count.
func (b *Block) Validate(channelSlots int) error {
	if b.Channels != channelSlots {
		return fmt.Errorf("block has %d channels, probe declares %d", b.Channels, channelSlots)
	}
	if b.Samples <= 0 {
		return fmt.Errorf("block has %d samples", b.Samples)
	}
	if want := b.Units() * b.Samples * b.Channels; len(b.Data) != want {
		return fmt.Errorf("block data has %d values, expected %d units x %d samples x %d channels = %d",
			len(b.Data), b.Units(), b.Samples, b.Channels, want)
	}
	if b.PeakChannels != nil {
		if len(b.PeakChannels) != b.Units() {
			return fmt.Errorf("%d peak channels for %d units", len(b.PeakChannels), b.Units())
		}
		for i, ch := range b.PeakChannels {
			if ch < 0 || ch >= b.Channels {
				return fmt.Errorf("peak channel %d of unit %d outside 0..%d", ch, b.ClusterIDs[i], b.Channels-1)
			}
		}
	}
	seen := make(map[int]struct{}, b.Units())
	for _, id := range b.ClusterIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("cluster %d appears twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Result holds the reshaped waveforms of one probe's units in table order.
type Result struct {
	// UnitSlots holds the channel slot count of every unit.
	UnitSlots []int
	// Flattened holds channel × sample rows of present units only.
	Flattened [][]float64
	// Grouped holds one channel × sample block per unit; absent units are empty.
	Grouped [][][]float64
	// PerChannel holds UnitSlots[i] sample rows for unit i; absent units get
	// empty placeholders.
	PerChannel [][]float64
	// Mean holds the peak-channel waveform per unit, all NaN when absent.
	Mean [][]float64
	// Present counts units found in the block.
	Present int
}

// Reshape arranges block waveforms for clusters, which lists the probe's
// cluster ids in unit table order. A nil block marks every unit absent.
func Reshape(block *Block, clusters []int, channelSlots, expectedSamples int) (Result, error) {
	if channelSlots <= 0 {
		return Result{}, convert.Errorf(convert.ErrConfiguration, "waveform reshape", "channel slot count %d must be positive", channelSlots)
	}
	samples := expectedSamples
	index := map[int]int{}
	if block != nil {
		if err := block.Validate(channelSlots); err != nil {
			return Result{}, convert.Errorf(convert.ErrShapeMismatch, "waveform reshape", "%v", err)
		}
		samples = block.Samples
		for i, id := range block.ClusterIDs {
			index[id] = i
		}
	}
	if samples <= 0 {
		return Result{}, convert.Errorf(convert.ErrConfiguration, "waveform reshape", "expected sample length %d must be positive", samples)
	}

	res := Result{
		UnitSlots:  make([]int, 0, len(clusters)),
		Grouped:    make([][][]float64, 0, len(clusters)),
		PerChannel: make([][]float64, 0, len(clusters)*channelSlots),
		Mean:       make([][]float64, 0, len(clusters)),
	}
	for _, cluster := range clusters {
		res.UnitSlots = append(res.UnitSlots, channelSlots)
		u, ok := index[cluster]
		if !ok {
			res.Grouped = append(res.Grouped, [][]float64{})
			for range channelSlots {
				res.PerChannel = append(res.PerChannel, []float64{})
			}
			res.Mean = append(res.Mean, nanVector(samples))
			continue
		}
		res.Present++
		rows := transpose(block, u)
		res.Flattened = append(res.Flattened, rows...)
		res.Grouped = append(res.Grouped, rows)
		res.PerChannel = append(res.PerChannel, rows...)
		res.Mean = append(res.Mean, append([]float64(nil), rows[peakChannel(block, u, rows)]...))
	}
	return res, nil
}

func transpose(b *Block, unit int) [][]float64 {
	rows := make([][]float64, b.Channels)
	for ch := range rows {
		row := make([]float64, b.Samples)
		for s := range row {
			row[s] = b.at(unit, s, ch)
		}
		rows[ch] = row
	}
	return rows
}

func peakChannel(b *Block, unit int, rows [][]float64) int {
	if b.PeakChannels != nil {
		return b.PeakChannels[unit]
	}
	best, bestSpan := 0, math.Inf(-1)
	for ch, row := range rows {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
		if span := hi - lo; span > bestSpan {
			best, bestSpan = ch, span
		}
	}
	return best
}

func nanVector(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Exported is the ragged layout written to the export artifact.
type Exported struct {
	// Waveforms has two index levels: one entry per channel slot, then one
	// entry per unit.
	Waveforms ragged.Nested[float64]
	Mean      ragged.Array[float64]
}

// Ragged encodes the result into the exported nested ragged arrays.
func (r Result) Ragged() (Exported, error) {
	inner := ragged.Encode(r.PerChannel)
	outer, err := ragged.Regroup(inner, r.UnitSlots)
	if err != nil {
		return Exported{}, err
	}
	return Exported{
		Waveforms: ragged.Flatten(inner, outer),
		Mean:      ragged.Encode(r.Mean),
	}, nil
}

// Concat joins per-probe results in probe order so the exported arrays cover
// the whole unit table.
func Concat(results ...Result) Result {
	var out Result
	for _, r := range results {
		out.UnitSlots = append(out.UnitSlots, r.UnitSlots...)
		out.Flattened = append(out.Flattened, r.Flattened...)
		out.Grouped = append(out.Grouped, r.Grouped...)
		out.PerChannel = append(out.PerChannel, r.PerChannel...)
		out.Mean = append(out.Mean, r.Mean...)
		out.Present += r.Present
	}
	return out
}
