package export_test

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"nwbconv/internal/convert"
	"nwbconv/internal/electrode"
	"nwbconv/internal/export"
	"nwbconv/internal/fileutil"
	"nwbconv/internal/ragged"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

func sampleArtifact(t *testing.T) *export.Artifact {
	t.Helper()
	imp := 1.5e6
	nested, err := ragged.EncodeNested2([][][]float64{
		{{1, 2, 3}, {}},
		{{}, {}},
	})
	if err != nil {
		t.Fatalf("EncodeNested2: %v", err)
	}
	return &export.Artifact{
		Info: export.Info{
			FormatVersion: export.FormatVersion,
			SessionID:     3,
			Animal:        "rat7",
			RunID:         "run-1",
			CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Groups: []electrode.ElectrodeGroup{
			{Name: "probe1_shank1", ProbeLabel: "probe1", ShankIndex: 1, Description: "shank 1", Manufacturer: "NeuroNexus"},
		},
		Electrodes: []electrode.ChannelRecord{
			{ID: 31001, LocalIndex: 1, ProbeLabel: "probe1", Group: "probe1_shank1", Y: 0, Location: "CA1", Impedance: &imp},
			{ID: 31002, LocalIndex: 2, ProbeLabel: "probe1", Group: "probe1_shank1", Y: 25, Location: "CA1"},
		},
		Units: []units.Record{
			{ID: 310004, ClusterID: 4, ActivityType: units.SingleUnit, PeakChannelIndex: 2, PeakChannelID: 31002,
				RelativeHorizontal: 1, RelativeVertical: 2, ISIViolationRate: 0.01, IsolationDistance: 20,
				Location: "CA1", ProbeLabel: "probe1", ElectrodeGroup: "probe1_shank1"},
			{ID: 310009, ClusterID: 9, ActivityType: units.MultiUnit, PeakChannelIndex: 1, PeakChannelID: 31001,
				RelativeHorizontal: 0, RelativeVertical: 0, ISIViolationRate: 0.2, IsolationDistance: math.NaN(),
				Location: "CA1", ProbeLabel: "probe1", ElectrodeGroup: "probe1_shank1"},
		},
		SpikeTimes: ragged.Encode([][]float64{{0.1, 0.2}, {}}),
		Waveforms: waveform.Exported{
			Waveforms: nested,
			Mean:      ragged.Encode([][]float64{{1, 2, 3}, {math.NaN(), math.NaN(), math.NaN()}}),
		},
		TimeSeries: []export.TimeSeries{
			{Name: "EyeTracking", Unit: "degrees", Values: [][]float64{{1, 2}, {3, 4}, {5, 6}},
				Timestamps: []float64{0, 0.1, 0.2}, Quality: []bool{false, true, true}},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "session3.nwb.db")
	want := sampleArtifact(t)
	if err := export.Write(context.Background(), path, want, export.Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := export.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Info.SessionID != 3 || got.Info.Animal != "rat7" || got.Info.RunID != "run-1" ||
		got.Info.FormatVersion != export.FormatVersion || !got.Info.CreatedAt.Equal(want.Info.CreatedAt) {
		t.Fatalf("info = %+v, want %+v", got.Info, want.Info)
	}
	if !slices.Equal(got.Groups, want.Groups) {
		t.Fatalf("groups = %+v", got.Groups)
	}
	if len(got.Electrodes) != 2 || got.Electrodes[0].Impedance == nil || *got.Electrodes[0].Impedance != 1.5e6 {
		t.Fatalf("electrodes = %+v", got.Electrodes)
	}
	if got.Electrodes[1].Impedance != nil || got.Electrodes[1].Y != 25 {
		t.Fatalf("second electrode = %+v", got.Electrodes[1])
	}
	if len(got.Units) != 2 || got.Units[0].PeakChannelID != 31002 || got.Units[1].ActivityType != units.MultiUnit {
		t.Fatalf("units = %+v", got.Units)
	}
	if !math.IsNaN(got.Units[1].IsolationDistance) {
		t.Fatalf("NaN isolation distance read back as %v", got.Units[1].IsolationDistance)
	}
	if !slices.Equal(got.SpikeTimes.Data, []float64{0.1, 0.2}) || !slices.Equal(got.SpikeTimes.Index, []int{2, 2}) {
		t.Fatalf("spike times = %+v", got.SpikeTimes)
	}
	if !got.HasWaveforms() || got.Waveforms.Waveforms.Depth() != 2 {
		t.Fatalf("waveforms missing: %+v", got.Waveforms)
	}
	for k, level := range want.Waveforms.Waveforms.Levels {
		if !slices.Equal(got.Waveforms.Waveforms.Levels[k], level) {
			t.Fatalf("waveform level %d = %v, want %v", k, got.Waveforms.Waveforms.Levels[k], level)
		}
	}
	if mean := got.Waveforms.Mean.Group(1); len(mean) != 3 || !math.IsNaN(mean[0]) {
		t.Fatalf("placeholder mean = %v", mean)
	}
	ts, ok := got.TimeSeriesByName("EyeTracking")
	if !ok || ts.Columns() != 2 || ts.Values[2][1] != 6 || !slices.Equal(ts.Quality, []bool{false, true, true}) {
		t.Fatalf("timeseries = %+v", ts)
	}
}

func TestWriteWithoutWaveforms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session3.nwb.db")
	a := sampleArtifact(t)
	a.Waveforms = waveform.Exported{}
	if err := export.Write(context.Background(), path, a, export.Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := export.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.HasWaveforms() {
		t.Fatal("expected no waveform columns")
	}
}

func TestWriteRefusesExistingArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session3.nwb.db")
	if err := export.Write(context.Background(), path, sampleArtifact(t), export.Options{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err := export.Write(context.Background(), path, sampleArtifact(t), export.Options{})
	if !errors.Is(err, fileutil.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	a := sampleArtifact(t)
	a.Info.RunID = "run-2"
	if err := export.Write(context.Background(), path, a, export.Options{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := export.Read(context.Background(), path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Info.RunID != "run-2" {
		t.Fatalf("run id = %q after overwrite", got.Info.RunID)
	}
}

func TestWriteFailureLeavesNoArtifact(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*export.Artifact)
		marker error
	}{
		{
			name:   "spike groups do not cover units",
			mutate: func(a *export.Artifact) { a.SpikeTimes = ragged.Encode([][]float64{{0.1}}) },
			marker: convert.ErrShapeMismatch,
		},
		{
			name:   "mask shorter than timestamps",
			mutate: func(a *export.Artifact) { a.TimeSeries[0].Quality = []bool{true} },
			marker: convert.ErrShapeMismatch,
		},
		{
			name:   "unit references unknown electrode",
			mutate: func(a *export.Artifact) { a.Units[0].PeakChannelID = 99999 },
		},
		{
			name:   "duplicate electrode id",
			mutate: func(a *export.Artifact) { a.Electrodes[1].ID = a.Electrodes[0].ID },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "session3.nwb.db")
			a := sampleArtifact(t)
			tt.mutate(a)
			err := export.Write(context.Background(), path, a, export.Options{})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.marker != nil && !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			entries, readErr := os.ReadDir(dir)
			if readErr != nil {
				t.Fatalf("ReadDir: %v", readErr)
			}
			if len(entries) != 0 {
				t.Fatalf("failed write left %d files behind: %v", len(entries), entries[0].Name())
			}
		})
	}
}

func TestWriteHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := export.Write(ctx, filepath.Join(dir, "session3.nwb.db"), sampleArtifact(t), export.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("cancelled write left files: %d", len(entries))
	}
}

func TestAcquireLockContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session3.nwb.db")
	first, err := export.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if first.Path() != path+".lock" {
		t.Fatalf("lock path = %q", first.Path())
	}
	if _, err := export.AcquireLock(path); !errors.Is(err, export.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := export.AcquireLock(path)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = second.Release()
}

func TestReadRejectsForeignDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE notes (body TEXT)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = db.Close()

	if _, err := export.Read(context.Background(), path); !errors.Is(err, export.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := export.Read(context.Background(), filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestSummarize(t *testing.T) {
	s := sampleArtifact(t).Summarize()
	if s.Units != 2 || s.SingleUnits != 1 || s.Spikes != 2 || !s.Waveforms {
		t.Fatalf("summary = %+v", s)
	}
	if s.UnitsByProbe["probe1"] != 2 || s.Locations["CA1"] != 2 {
		t.Fatalf("breakdowns = %+v %+v", s.UnitsByProbe, s.Locations)
	}
	if len(s.TimeSeries) != 1 || s.TimeSeries[0].Accepted != 2 || s.TimeSeries[0].Columns != 2 {
		t.Fatalf("series = %+v", s.TimeSeries)
	}
}
