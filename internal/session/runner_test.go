package session_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"nwbconv/internal/config"
	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/export"
	"nwbconv/internal/fileutil"
	"nwbconv/internal/session"
	"nwbconv/internal/testsupport"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

// fixture has probe1/CA1 with three units, CA3 absent and probe2/PFC with
// two units, plus a 100-sample eye tracking stream whose acceptable
// interval covers samples 10..50.
func fixture() *container.Group {
	return testsupport.Animal(testsupport.Session{
		Name:         "3",
		SamplingRate: 1000,
		Samples:      1000,
		Regions: []testsupport.Region{
			{
				Name:      "CA1",
				Clusters:  []int{4, 7, 9},
				Channels:  []int{1, 2, 8},
				Spikes:    [][]int{{10, 20}, {}, {999}},
				Confirmed: []int{4},
			},
			{
				Name:     "PFC",
				Clusters: []int{2, 5},
				Channels: []int{3, 3},
				Spikes:   [][]int{{1}, {2, 3, 4}},
			},
		},
		Streams: []testsupport.Stream{
			{Key: "eyeTracking", Samples: 100, Rate: 100, Columns: 2, Intervals: [][2]float64{{0.10, 0.50}}},
		},
	})
}

func probe1Block() *waveform.Block {
	const samples, channels = 4, 8
	clusters := []int{4, 9}
	data := make([]float64, len(clusters)*samples*channels)
	for i := range data {
		data[i] = float64(i)
	}
	return &waveform.Block{Samples: samples, Channels: channels, Data: data, ClusterIDs: clusters}
}

func newRunner(t *testing.T, cfg *config.Config) *session.Runner {
	t.Helper()
	r, err := session.NewRunner(cfg, nil, "run-test")
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestConvertEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteWaveforms(t, cfg.Paths.WaveformDir, "3", "probe1", probe1Block())

	res, err := newRunner(t, cfg).Convert(context.Background(), session.Request{Root: fixture(), Name: "3"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.SessionID != 3 || res.Channels != 16 || res.Units != 5 || res.SingleUnits != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Spikes != 7 || res.Waveforms != 2 || res.Streams != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if want := filepath.Join(cfg.Paths.OutputDir, "rat7_session3.nwb.db"); res.Artifact != want {
		t.Fatalf("artifact = %q, want %q", res.Artifact, want)
	}

	a, err := export.Read(context.Background(), res.Artifact)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(a.Electrodes) != 16 || a.Electrodes[0].ID != 31001 || a.Electrodes[15].ID != 32008 {
		t.Fatalf("electrodes = %d, first %d, last %d", len(a.Electrodes), a.Electrodes[0].ID, a.Electrodes[len(a.Electrodes)-1].ID)
	}
	if len(a.Groups) != 2 {
		t.Fatalf("groups = %+v", a.Groups)
	}
	if len(a.Units) != 5 {
		t.Fatalf("units = %d, want aggregated rows 5", len(a.Units))
	}
	wantTags := []string{"CA1", "CA1", "CA1", "PFC", "PFC"}
	for i, u := range a.Units {
		if u.Location != wantTags[i] {
			t.Fatalf("unit %d location = %q, want %q", i, u.Location, wantTags[i])
		}
	}
	first, pfc := a.Units[0], a.Units[3]
	if first.ID != 310004 || first.ActivityType != units.SingleUnit || first.PeakChannelID != 31001 {
		t.Fatalf("first unit = %+v", first)
	}
	if pfc.ID != 320002 || pfc.ProbeLabel != "probe2" || pfc.PeakChannelID != 32003 || pfc.ActivityType != units.MultiUnit {
		t.Fatalf("pfc unit = %+v", pfc)
	}
	if got := a.SpikeTimes.Group(0); len(got) != 2 || got[0] != 0.01 || got[1] != 0.02 {
		t.Fatalf("spike times of first unit = %v", got)
	}
	if a.SpikeTimes.Len() != 5 || len(a.SpikeTimes.Group(1)) != 0 {
		t.Fatalf("spike index = %v", a.SpikeTimes.Index)
	}

	nested := a.Waveforms.Waveforms
	if nested.Depth() != 2 || len(nested.Levels[1]) != 5 || len(nested.Levels[0]) != 40 || len(nested.Values) != 2*8*4 {
		t.Fatalf("waveform layout: depth %d levels %v values %d", nested.Depth(), len(nested.Levels), len(nested.Values))
	}
	if start, end, err := nested.Resolve(1, 1); err != nil || start != end {
		t.Fatalf("missing cluster 7 should span no values, got %d..%d err=%v", start, end, err)
	}
	for _, unit := range []int{1, 3, 4} {
		mean := a.Waveforms.Mean.Group(unit)
		if len(mean) != 4 || !math.IsNaN(mean[0]) {
			t.Fatalf("unit %d mean = %v, want NaN placeholder of length 4", unit, mean)
		}
	}

	eye, ok := a.TimeSeriesByName("EyeTracking")
	if !ok {
		t.Fatalf("EyeTracking missing: %+v", a.TimeSeries)
	}
	if len(eye.Quality) != 100 {
		t.Fatalf("mask length = %d", len(eye.Quality))
	}
	accepted := 0
	for i, ok := range eye.Quality {
		if ok {
			accepted++
		}
		if want := i >= 10 && i <= 50; ok != want {
			t.Fatalf("mask[%d] = %v, want %v", i, ok, want)
		}
	}
	if accepted != 41 {
		t.Fatalf("accepted = %d, want 41", accepted)
	}
	if _, ok := a.TimeSeriesByName("MotionTracking"); ok {
		t.Fatal("unrecorded stream should not be exported")
	}
	if a.Info.RunID != "run-test" || a.Info.Animal != "rat7" || a.Info.SessionID != 3 {
		t.Fatalf("info = %+v", a.Info)
	}
}

func TestConvertRespectsExistingArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutWaveforms())
	r := newRunner(t, cfg)
	req := session.Request{Root: fixture(), Name: "3"}
	if _, err := r.Convert(context.Background(), req); err != nil {
		t.Fatalf("first Convert: %v", err)
	}
	if _, err := r.Convert(context.Background(), req); !errors.Is(err, fileutil.ErrExists) {
		t.Fatalf("expected ErrExists on second run, got %v", err)
	}

	cfg.Convert.Overwrite = true
	res, err := newRunner(t, cfg).Convert(context.Background(), req)
	if err != nil {
		t.Fatalf("overwrite Convert: %v", err)
	}
	a, err := export.Read(context.Background(), res.Artifact)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if a.HasWaveforms() {
		t.Fatal("waveforms exported although disabled")
	}
}

func TestConvertFailsWhileArtifactLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	artifact := filepath.Join(cfg.Paths.OutputDir, session.ArtifactName(cfg.Recording.Animal, 3))
	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	lock, err := export.AcquireLock(artifact)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, err = newRunner(t, cfg).Convert(context.Background(), session.Request{Root: fixture(), Name: "3"})
	if !errors.Is(err, export.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if _, statErr := os.Stat(artifact); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("artifact should not exist, stat err = %v", statErr)
	}
}

func TestConvertFailuresLeaveNoArtifact(t *testing.T) {
	tests := []struct {
		name   string
		root   func() *container.Group
		opts   []testsupport.ConfigOption
		marker error
	}{
		{
			name: "peak channel outside probe",
			root: func() *container.Group {
				return testsupport.Animal(testsupport.Session{Name: "3", Samples: 10, Regions: []testsupport.Region{
					{Name: "CA1", Clusters: []int{1}, Channels: []int{12}},
				}})
			},
			marker: convert.ErrJoinIntegrity,
		},
		{
			name: "region not assigned to a probe",
			root: func() *container.Group {
				return testsupport.Animal(testsupport.Session{Name: "3", Samples: 10, Regions: []testsupport.Region{
					{Name: "V1", Clusters: []int{1}, Channels: []int{1}},
				}})
			},
			marker: convert.ErrConfiguration,
		},
		{
			name: "cluster beyond unit width",
			root: func() *container.Group {
				return testsupport.Animal(testsupport.Session{Name: "3", Samples: 10, Regions: []testsupport.Region{
					{Name: "CA1", Clusters: []int{12345}, Channels: []int{1}},
				}})
			},
			marker: convert.ErrIdentifierCollision,
		},
		{
			name: "too many channels for channel width",
			root: fixture,
			opts: []testsupport.ConfigOption{testsupport.WithProbes(
				testsupport.Probe("probe1", 1, 2, 600, "CA1"),
				testsupport.Probe("probe2", 2, 1, 8, "CA3", "PFC"),
			)},
			marker: convert.ErrIdentifierCollision,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, tt.opts...)
			_, err := newRunner(t, cfg).Convert(context.Background(), session.Request{Root: tt.root(), Name: "3"})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			entries, _ := os.ReadDir(cfg.Paths.OutputDir)
			for _, e := range entries {
				if filepath.Ext(e.Name()) != ".lock" {
					t.Fatalf("failed conversion left %s", e.Name())
				}
			}
		})
	}
}

func TestConvertHonoursCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(t, cfg).Convert(ctx, session.Request{Root: fixture(), Name: "3"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvertRejectsUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := newRunner(t, cfg).Convert(context.Background(), session.Request{Root: fixture(), Name: "99"})
	if !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected ErrSourceFormat, got %v", err)
	}
}
