package container_test

import (
	"errors"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/fileutil"
)

func sampleTree() *container.Group {
	root := container.NewGroup("")
	session := root.Ensure("12")
	session.Set("samplingRate", container.Scalar(20000))
	session.SetPath("CA1/popData/spkDB", container.Sparse(2, 50, []int{0, 1, 1}, []int{3, 7, 9}, nil))
	session.SetPath("CA1/popData/muaMetadata", container.Matrix([][]float64{{1, 2, 0, 0, 0.1, 9}, {2, 4, 1, 1, math.NaN(), 3}}))
	session.SetPath("CA1/shankData/units", container.Vector([]float64{2}))
	session.SetPath("notes", container.Text("awake", "head-fixed"))
	return root
}

func assertSampleTree(t *testing.T, root *container.Group) {
	t.Helper()
	session, ok := root.Group("12")
	if !ok {
		t.Fatalf("session group missing, groups=%v", root.Groups())
	}
	rate, ok := session.Dataset("samplingRate")
	if !ok {
		t.Fatal("samplingRate missing")
	}
	if v, err := rate.ScalarValue(); err != nil || v != 20000 {
		t.Fatalf("sampling rate = %v err=%v", v, err)
	}
	spk, ok := session.DatasetAt("CA1/popData/spkDB")
	if !ok || spk.Kind != container.KindSparse || !slices.Equal(spk.Cols, []int{3, 7, 9}) {
		t.Fatalf("unexpected sparse dataset %+v", spk)
	}
	meta, ok := session.DatasetAt("CA1/popData/muaMetadata")
	if !ok {
		t.Fatal("metadata missing")
	}
	rows, err := meta.Rows2D()
	if err != nil {
		t.Fatalf("Rows2D: %v", err)
	}
	if len(rows) != 2 || rows[1][1] != 4 || !math.IsNaN(rows[1][4]) {
		t.Fatalf("unexpected metadata rows %v", rows)
	}
	units, ok := session.DatasetAt("CA1/shankData/units")
	if !ok {
		t.Fatal("units missing")
	}
	if ids, err := units.Ints(); err != nil || !slices.Equal(ids, []int{2}) {
		t.Fatalf("units = %v err=%v", ids, err)
	}
	notes, _ := session.Dataset("notes")
	if notes == nil || !slices.Equal(notes.Strings, []string{"awake", "head-fixed"}) {
		t.Fatalf("unexpected notes %+v", notes)
	}
}

func TestRoundTripBackends(t *testing.T) {
	for _, ext := range []string{".json", ".db", ".bolt"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "animal"+ext)
			if err := container.Write(path, sampleTree(), false); err != nil {
				t.Fatalf("Write: %v", err)
			}
			root, err := container.Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if root.Name != "animal" {
				t.Fatalf("root name = %q", root.Name)
			}
			assertSampleTree(t, root)
		})
	}
}

func TestPackJSONToBoltAndBack(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	boltPath := filepath.Join(dir, "a.db")
	backPath := filepath.Join(dir, "b.json")
	if err := container.Write(jsonPath, sampleTree(), false); err != nil {
		t.Fatal(err)
	}
	root, err := container.Open(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Write(boltPath, root, false); err != nil {
		t.Fatal(err)
	}
	root, err = container.Open(boltPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Write(backPath, root, false); err != nil {
		t.Fatal(err)
	}
	root, err = container.Open(backPath)
	if err != nil {
		t.Fatal(err)
	}
	assertSampleTree(t, root)
}

func TestWriteRefusesExistingWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.db")
	if err := container.Write(path, sampleTree(), false); err != nil {
		t.Fatal(err)
	}
	err := container.Write(path, sampleTree(), false)
	if !errors.Is(err, fileutil.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if err := container.Write(path, sampleTree(), true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestBoltRejectsRootDatasets(t *testing.T) {
	root := sampleTree()
	root.Set("loose", container.Scalar(1))
	if err := container.Write(filepath.Join(t.TempDir(), "a.db"), root, false); err == nil {
		t.Fatal("expected error for root dataset")
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := container.Open(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, container.ErrNotFound) || !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected not found source format error, got %v", err)
	}
	_, err = container.Open("animal.mat")
	if !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestDecodeJSONDocument(t *testing.T) {
	doc := `{
	  "7": {
	    "id": {"kind": "dense", "shape": [], "data": [7]},
	    "eyeTracking": {
	      "timestamps": {"kind": "dense", "data": [0, 0.5, 1]},
	      "values": {"kind": "dense", "shape": [3, 1], "data": [1, null, 3]}
	    }
	  }
	}`
	root, err := container.DecodeJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	ts, ok := root.DatasetAt("7/eyeTracking/timestamps")
	if !ok || !slices.Equal(ts.Shape, []int{3}) {
		t.Fatalf("expected inferred shape, got %+v", ts)
	}
	vals, _ := root.DatasetAt("7/eyeTracking/values")
	if err := vals.Validate(); err != nil || !math.IsNaN(vals.Data[1]) {
		t.Fatalf("expected NaN from null, got %+v err=%v", vals, err)
	}
	var paths []string
	_ = root.Walk(func(path string, _ *container.Dataset) error {
		paths = append(paths, path)
		return nil
	})
	want := []string{"7/id", "7/eyeTracking/timestamps", "7/eyeTracking/values"}
	if !slices.Equal(paths, want) {
		t.Fatalf("walk order = %v, want %v", paths, want)
	}
}

func TestDatasetAccessorsRejectWrongKinds(t *testing.T) {
	text := container.Text("a")
	if _, err := text.Floats(); !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected source format error, got %v", err)
	}
	frac := container.Vector([]float64{1.5})
	if _, err := frac.Ints(); !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected source format error for fractional ints, got %v", err)
	}
	bad := container.Dense([]int{2, 2}, []float64{1, 2, 3})
	if _, err := bad.Rows2D(); !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected source format error for short data, got %v", err)
	}
	cube := container.Dense([]int{1, 1, 1}, []float64{1})
	if _, err := cube.Rows2D(); !errors.Is(err, convert.ErrSourceFormat) {
		t.Fatalf("expected source format error for 3 axes, got %v", err)
	}
}
