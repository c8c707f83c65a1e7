package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"nwbconv/internal/export"
	"nwbconv/internal/testsupport"
)

func TestConvertCommandWritesArtifact(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteContainer(t, filepath.Join(env.cfg.Paths.InputDir, "rat7.json"), sampleAnimal())
	testsupport.WriteWaveforms(t, env.cfg.Paths.WaveformDir, "3", "probe1", sampleBlock())

	out, _, err := runCLI(t, []string{"convert", "rat7.json"}, env.configPath)
	if err != nil {
		t.Fatalf("convert: %v\n%s", err, out)
	}
	requireContains(t, out, "rat7_session3.nwb.db")

	artifact := filepath.Join(env.cfg.Paths.OutputDir, "rat7_session3.nwb.db")
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if _, err := os.Stat(artifact + ".lock"); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	logs, err := filepath.Glob(filepath.Join(env.cfg.Paths.LogDir, "convert-*.log"))
	if err != nil || len(logs) != 1 {
		t.Fatalf("expected one run log, got %v (%v)", logs, err)
	}

	out, _, err = runCLI(t, []string{"inspect", artifact, "--json"}, "")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var summary export.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.SessionID != 3 || summary.Animal != "rat7" || summary.Electrodes != 16 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Units != 3 || summary.SingleUnits != 1 || summary.Spikes != 6 || !summary.Waveforms {
		t.Fatalf("unexpected unit summary %+v", summary)
	}
	if summary.UnitsByProbe["probe1"] != 2 || summary.UnitsByProbe["probe2"] != 1 {
		t.Fatalf("unexpected units by probe %v", summary.UnitsByProbe)
	}
	if len(summary.TimeSeries) != 1 || summary.TimeSeries[0].Samples != 50 {
		t.Fatalf("unexpected time series %+v", summary.TimeSeries)
	}

	out, _, err = runCLI(t, []string{"inspect", artifact}, "")
	if err != nil {
		t.Fatalf("inspect tables: %v", err)
	}
	requireContains(t, out, "Electrodes")
	requireContains(t, out, "Units")
	requireContains(t, out, "Session:   3 (rat7)")
}

func TestConvertCommandRefusesExistingArtifact(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutWaveforms())
	testsupport.WriteContainer(t, filepath.Join(env.cfg.Paths.InputDir, "rat7.json"), sampleAnimal())

	if _, _, err := runCLI(t, []string{"convert", "rat7.json"}, env.configPath); err != nil {
		t.Fatalf("first convert: %v", err)
	}
	out, _, err := runCLI(t, []string{"convert", "rat7.json"}, env.configPath)
	if err == nil {
		t.Fatal("expected second convert to fail")
	}
	requireContains(t, out, "failed")

	if _, _, err := runCLI(t, []string{"convert", "rat7.json", "--overwrite"}, env.configPath); err != nil {
		t.Fatalf("convert --overwrite: %v", err)
	}
}

func TestConvertCommandContinuesPastFailedSessions(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutWaveforms())
	path := filepath.Join(env.cfg.Paths.InputDir, "rat7.json")
	testsupport.WriteContainer(t, path, sampleAnimal())
	outDir := filepath.Join(env.baseDir, "elsewhere")

	out, _, err := runCLI(t, []string{
		"convert", path, "--session", "9", "--session", "3", "--out", outDir, "--jobs", "2",
	}, env.configPath)
	if err == nil {
		t.Fatal("expected an error for the unknown session")
	}
	requireContains(t, out, "failed")
	requireContains(t, out, "ok")
	if _, err := os.Stat(filepath.Join(outDir, "rat7_session3.nwb.db")); err != nil {
		t.Fatalf("session 3 artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "rat7_session9.nwb.db")); !os.IsNotExist(err) {
		t.Fatalf("unexpected artifact for session 9: %v", err)
	}
}

func TestConvertCommandMissingContainer(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"convert", "absent.json"}, env.configPath); err == nil {
		t.Fatal("expected error for missing container")
	}
}
