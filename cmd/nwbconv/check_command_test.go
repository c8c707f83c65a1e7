package main

import (
	"os"
	"path/filepath"
	"testing"

	"nwbconv/internal/testsupport"
)

func TestCheckCommandPasses(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.cfg.Paths.InputDir, "rat7.json")
	testsupport.WriteContainer(t, path, sampleAnimal())

	out, _, err := runCLI(t, []string{"check", "--container", path}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Output directory")
	requireContains(t, out, "Waveform directory")
	requireContains(t, out, "Source container")
	requireContains(t, out, "1 session(s)")
}

func TestCheckCommandFailsForMissingInput(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(env.cfg.Paths.InputDir); err != nil {
		t.Fatalf("remove input dir: %v", err)
	}
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check to fail\n%s", out)
	}
	requireContains(t, out, "Input directory")
}
