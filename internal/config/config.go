package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"nwbconv/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir    string `toml:"input_dir"`
	OutputDir   string `toml:"output_dir"`
	WaveformDir string `toml:"waveform_dir"`
	LogDir      string `toml:"log_dir"`
}

// Identifiers contains the zero-padding widths used for synthesized ids.
type Identifiers struct {
	ChannelWidth int `toml:"channel_width"`
	UnitWidth    int `toml:"unit_width"`
}

// Recording contains session-wide acquisition settings.
type Recording struct {
	Animal string `toml:"animal"`
	// SamplingRate (Hz) is used when a session container carries none.
	SamplingRate float64 `toml:"sampling_rate"`
}

// MetadataColumns maps unit metadata fields to 0-based matrix columns.
type MetadataColumns struct {
	ClusterID         int `toml:"cluster_id"`
	Channel           int `toml:"channel"`
	Horizontal        int `toml:"horizontal"`
	Vertical          int `toml:"vertical"`
	ISIViolation      int `toml:"isi_violation"`
	IsolationDistance int `toml:"isolation_distance"`
}

// Stream describes one behavioural time series.
type Stream struct {
	Key         string `toml:"key"`
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Unit        string `toml:"unit"`
}

// Behavior contains the behavioural streams exported with each session.
type Behavior struct {
	EyeTracking    Stream `toml:"eye_tracking"`
	MotionTracking Stream `toml:"motion_tracking"`
}

// Waveforms contains waveform export settings.
type Waveforms struct {
	Enabled bool `toml:"enabled"`
	// Samples is the expected waveform length, used for NaN placeholders.
	Samples int `toml:"samples"`
}

// Probe describes one recording probe and the regions it samples.
type Probe struct {
	Label            string      `toml:"label"`
	Number           int         `toml:"number"`
	Shanks           int         `toml:"shanks"`
	ChannelsPerShank int         `toml:"channels_per_shank"`
	Device           string      `toml:"device"`
	Manufacturer     string      `toml:"manufacturer"`
	Reference        string      `toml:"reference"`
	Location         string      `toml:"location"`
	ChannelLocations []string    `toml:"channel_locations"`
	PitchUM          float64     `toml:"pitch_um"`
	ShankSpacingUM   float64     `toml:"shank_spacing_um"`
	Coordinates      [][]float64 `toml:"coordinates"`
	ImpedanceOhms    []float64   `toml:"impedance_ohms"`
	// Regions lists the brain regions recorded by this probe, in canonical
	// export order.
	Regions []string `toml:"regions"`
}

// Channels returns the declared channel count of the probe.
func (p Probe) Channels() int {
	return p.Shanks * p.ChannelsPerShank
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Convert contains batch execution settings.
type Convert struct {
	Jobs      int  `toml:"jobs"`
	Overwrite bool `toml:"overwrite"`
}

// Config encapsulates all configuration values for nwbconv.
//
// Configuration sections by subsystem:
//   - Paths: input containers, export destination, waveform artifacts, logs
//   - Identifiers: padding widths for synthesized channel/unit ids
//   - Recording: animal label and fallback sampling rate
//   - MetadataColumns: column layout of per-unit metadata matrices
//   - Behavior: behavioural streams and their container keys
//   - Waveforms: waveform export toggle and expected sample length
//   - Probes: probe geometry and the canonical region order
//   - Logging: log format, level, and retention
//   - Convert: batch parallelism and overwrite policy
type Config struct {
	Paths           Paths           `toml:"paths"`
	Identifiers     Identifiers     `toml:"identifiers"`
	Recording       Recording       `toml:"recording"`
	MetadataColumns MetadataColumns `toml:"metadata_columns"`
	Behavior        Behavior        `toml:"behavior"`
	Waveforms       Waveforms       `toml:"waveforms"`
	Probes          []Probe         `toml:"probes"`
	Logging         Logging         `toml:"logging"`
	Convert         Convert         `toml:"convert"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/nwbconv/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("nwbconv.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegionOrder returns the canonical region order: each probe's regions in
// probe order. The order is part of the exported data contract.
func (c *Config) RegionOrder() []string {
	var out []string
	for _, p := range c.Probes {
		out = append(out, p.Regions...)
	}
	return out
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// WriteSample writes the annotated sample configuration to w.
func WriteSample(w io.Writer) error {
	_, err := io.WriteString(w, sampleConfig)
	return err
}

// CreateSample writes the sample configuration to path. Without overwrite an
// existing file is kept and fileutil.ErrExists is returned.
func CreateSample(path string, overwrite bool) error {
	if err := fileutil.WriteFileAtomic(path, overwrite, WriteSample); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
