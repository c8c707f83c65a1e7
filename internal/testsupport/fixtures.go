package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"nwbconv/internal/container"
	"nwbconv/internal/source"
	"nwbconv/internal/waveform"
)

// Region describes one synthetic brain region. Units are listed by cluster
// id; Channels gives each unit's 1-based peak channel and Spikes its spike
// columns.
type Region struct {
	Name      string
	Clusters  []int
	Channels  []int
	Spikes    [][]int
	Confirmed []int
}

// Stream describes one synthetic behavioural stream sampled at Rate Hz.
type Stream struct {
	Key       string
	Samples   int
	Rate      float64
	Columns   int
	Intervals [][2]float64
}

// Session describes one synthetic session group.
type Session struct {
	Name string
	// ID, when non-zero, is stored as the id dataset.
	ID int
	// SamplingRate, when non-zero, is stored as samplingRate.
	SamplingRate float64
	Samples      int
	Regions      []Region
	Streams      []Stream
}

// Animal builds a container root holding the given sessions.
func Animal(sessions ...Session) *container.Group {
	root := container.NewGroup("animal")
	for _, s := range sessions {
		g := root.Ensure(s.Name)
		if s.ID != 0 {
			g.Set(source.IDDataset, container.Scalar(float64(s.ID)))
		}
		if s.SamplingRate != 0 {
			g.Set(source.SamplingRateDataset, container.Scalar(s.SamplingRate))
		}
		for _, r := range s.Regions {
			addRegion(g.Ensure(r.Name), r, s.Samples)
		}
		for _, st := range s.Streams {
			addStream(g.Ensure(st.Key), st)
		}
	}
	return root
}

func addRegion(g *container.Group, r Region, samples int) {
	var rows, cols []int
	meta := make([][]float64, len(r.Clusters))
	for i, cluster := range r.Clusters {
		channel := 1
		if i < len(r.Channels) {
			channel = r.Channels[i]
		}
		meta[i] = []float64{float64(cluster), float64(channel), float64(10 * i), float64(20 * i), 0.01, 25}
		if i < len(r.Spikes) {
			for _, c := range r.Spikes[i] {
				rows = append(rows, i)
				cols = append(cols, c)
			}
		}
	}
	pop := g.Ensure(source.PopulationGroup)
	pop.Set(source.ActivityDataset, container.Sparse(len(r.Clusters), samples, rows, cols, nil))
	pop.Set(source.MetadataDataset, container.Matrix(meta))
	if r.Confirmed != nil {
		ids := make([]float64, len(r.Confirmed))
		for i, c := range r.Confirmed {
			ids[i] = float64(c)
		}
		g.Ensure(source.ShankGroup).Set(source.ConfirmedDataset, container.Vector(ids))
	}
}

func addStream(g *container.Group, st Stream) {
	columns := st.Columns
	if columns <= 0 {
		columns = 1
	}
	values := make([]float64, 0, st.Samples*columns)
	timestamps := make([]float64, st.Samples)
	for i := range timestamps {
		timestamps[i] = float64(i) / st.Rate
		for c := range columns {
			values = append(values, float64(i*columns+c))
		}
	}
	g.Set(source.ValuesDataset, container.Dense([]int{st.Samples, columns}, values))
	g.Set(source.TimestampsDataset, container.Vector(timestamps))
	if st.Intervals != nil {
		flat := make([]float64, 0, 2*len(st.Intervals))
		for _, iv := range st.Intervals {
			flat = append(flat, iv[0], iv[1])
		}
		g.Set(source.IntervalsDataset, container.Dense([]int{len(st.Intervals), 2}, flat))
	}
}

// WriteContainer stores root at path, creating parent directories.
func WriteContainer(t testing.TB, path string, root *container.Group) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := container.Write(path, root, true); err != nil {
		t.Fatalf("write container %s: %v", path, err)
	}
}

// WriteWaveforms stores a waveform block as <dir>/<session>/<probe>.json.
func WriteWaveforms(t testing.TB, dir, session, probe string, b *waveform.Block) string {
	t.Helper()
	path := filepath.Join(dir, session, probe+".json")
	WriteContainer(t, path, source.BlockGroupFor(b))
	return path
}
