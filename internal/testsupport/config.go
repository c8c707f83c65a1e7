package testsupport

import (
	"path/filepath"
	"testing"

	"nwbconv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It declares two single-shank eight-channel probes: probe1 records CA1,
// probe2 records CA3 and PFC.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "exports")
	cfgVal.Paths.WaveformDir = filepath.Join(base, "waveforms")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Recording.Animal = "rat7"
	cfgVal.Waveforms.Samples = 4
	cfgVal.Probes = []config.Probe{
		Probe("probe1", 1, 1, 8, "CA1"),
		Probe("probe2", 2, 1, 8, "CA3", "PFC"),
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// Probe returns a linear-geometry probe declaration.
func Probe(label string, number, shanks, perShank int, regions ...string) config.Probe {
	return config.Probe{
		Label:            label,
		Number:           number,
		Shanks:           shanks,
		ChannelsPerShank: perShank,
		Device:           "test probe",
		Manufacturer:     "test",
		Location:         "hippocampus",
		PitchUM:          25,
		ShankSpacingUM:   200,
		Regions:          regions,
	}
}

// WithProbes replaces the probe declarations.
func WithProbes(probes ...config.Probe) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Probes = probes
	}
}

// WithoutWaveforms disables waveform export.
func WithoutWaveforms() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Waveforms.Enabled = false
	}
}

// WithOverwrite allows replacing existing artifacts.
func WithOverwrite() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Convert.Overwrite = true
	}
}

// WithAnimal sets the recording animal label.
func WithAnimal(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Recording.Animal = name
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
