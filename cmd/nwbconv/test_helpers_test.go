package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"nwbconv/internal/config"
	"nwbconv/internal/container"
	"nwbconv/internal/testsupport"
	"nwbconv/internal/waveform"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "nwbconv", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// sampleAnimal has session "3" with units on probe1/CA1 and probe2/PFC and
// an eye tracking stream.
func sampleAnimal() *container.Group {
	return testsupport.Animal(testsupport.Session{
		Name:         "3",
		SamplingRate: 1000,
		Samples:      500,
		Regions: []testsupport.Region{
			{Name: "CA1", Clusters: []int{4, 7}, Channels: []int{1, 2}, Spikes: [][]int{{10, 20}, {30}}, Confirmed: []int{4}},
			{Name: "PFC", Clusters: []int{2}, Channels: []int{3}, Spikes: [][]int{{1, 2, 3}}},
		},
		Streams: []testsupport.Stream{
			{Key: "eyeTracking", Samples: 50, Rate: 100, Columns: 2, Intervals: [][2]float64{{0.1, 0.2}}},
		},
	})
}

func sampleBlock() *waveform.Block {
	const samples, channels = 4, 8
	data := make([]float64, samples*channels)
	for i := range data {
		data[i] = float64(i)
	}
	return &waveform.Block{Samples: samples, Channels: channels, Data: data, ClusterIDs: []int{4}}
}
