package main

import (
	"path/filepath"
	"slices"
	"testing"

	"nwbconv/internal/container"
	"nwbconv/internal/source"
	"nwbconv/internal/testsupport"
)

func TestPackConvertsJSONToBolt(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "rat7.json")
	out := filepath.Join(dir, "rat7.db")
	testsupport.WriteContainer(t, in, sampleAnimal())

	stdout, _, err := runCLI(t, []string{"pack", in, out}, "")
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	requireContains(t, stdout, "Packed")

	packed, err := container.Open(out)
	if err != nil {
		t.Fatalf("open packed container: %v", err)
	}
	if got := source.SessionNames(packed); !slices.Equal(got, []string{"3"}) {
		t.Fatalf("sessions = %v", got)
	}

	if _, _, err := runCLI(t, []string{"pack", in, out}, ""); err == nil {
		t.Fatal("expected pack to refuse an existing output")
	}
	if _, _, err := runCLI(t, []string{"pack", in, out, "--overwrite"}, ""); err != nil {
		t.Fatalf("pack --overwrite: %v", err)
	}
}

func TestPackRejectsSamePath(t *testing.T) {
	in := filepath.Join(t.TempDir(), "rat7.json")
	testsupport.WriteContainer(t, in, sampleAnimal())
	if _, _, err := runCLI(t, []string{"pack", in, in}, ""); err == nil {
		t.Fatal("expected error when input equals output")
	}
}
