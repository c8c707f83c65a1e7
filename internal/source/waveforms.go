package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/waveform"
)

// Waveform artifact dataset names. Bolt artifacts keep them in BlockGroup
// since bbolt has no root keys; JSON artifacts may use either layout.
const (
	BlockGroup          = "block"
	WaveformsDataset    = "waveforms"
	ClusterIDsDataset   = "clusterIds"
	PeakChannelsDataset = "peakChannels"
)

var waveformExtensions = []string{".json", ".db", ".bolt"}

// WaveformPath returns the first existing waveform artifact for a session
// probe, or "" when none exists.
func WaveformPath(dir, session, probe string) string {
	if dir == "" {
		return ""
	}
	for _, ext := range waveformExtensions {
		path := filepath.Join(dir, session, probe+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// LoadWaveforms reads the waveform block of one probe. A missing artifact is
// the absent state and returns nil without error.
func LoadWaveforms(dir, session, probe string) (*waveform.Block, error) {
	path := WaveformPath(dir, session, probe)
	if path == "" {
		return nil, nil
	}
	root, err := container.Open(path)
	if err != nil {
		if errors.Is(err, container.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	block, err := BlockFromGroup(root)
	if err != nil {
		return nil, convert.Wrap(convert.ErrSourceFormat, convert.Scope{}.Probe(probe), "load waveforms", path, err)
	}
	return block, nil
}

// BlockFromGroup decodes a waveform block from a container tree.
func BlockFromGroup(root *container.Group) (*waveform.Block, error) {
	g := root
	if inner, ok := root.Group(BlockGroup); ok {
		g = inner
	}
	wf, ok := g.Dataset(WaveformsDataset)
	if !ok {
		return nil, fmt.Errorf("%s dataset is missing", WaveformsDataset)
	}
	if wf.Kind != container.KindDense || len(wf.Shape) != 3 {
		return nil, fmt.Errorf("%s must be a dense units x samples x channels array, shape is %v", WaveformsDataset, wf.Shape)
	}
	data, err := wf.Floats()
	if err != nil {
		return nil, err
	}
	idsDS, ok := g.Dataset(ClusterIDsDataset)
	if !ok {
		return nil, fmt.Errorf("%s dataset is missing", ClusterIDsDataset)
	}
	ids, err := idsDS.Ints()
	if err != nil {
		return nil, err
	}
	if len(ids) != wf.Shape[0] {
		return nil, convert.Errorf(convert.ErrShapeMismatch, "load waveforms",
			"%d cluster ids for %d waveform units", len(ids), wf.Shape[0])
	}
	block := &waveform.Block{
		Samples:    wf.Shape[1],
		Channels:   wf.Shape[2],
		Data:       data,
		ClusterIDs: ids,
	}
	if ds, ok := g.Dataset(PeakChannelsDataset); ok {
		peaks, err := ds.Ints()
		if err != nil {
			return nil, err
		}
		block.PeakChannels = peaks
	}
	return block, nil
}

// BlockGroupFor encodes a waveform block in the artifact layout.
func BlockGroupFor(b *waveform.Block) *container.Group {
	root := container.NewGroup("")
	g := root.Ensure(BlockGroup)
	g.Set(WaveformsDataset, container.Dense([]int{b.Units(), b.Samples, b.Channels}, b.Data))
	ids := make([]float64, len(b.ClusterIDs))
	for i, id := range b.ClusterIDs {
		ids[i] = float64(id)
	}
	g.Set(ClusterIDsDataset, container.Vector(ids))
	if b.PeakChannels != nil {
		peaks := make([]float64, len(b.PeakChannels))
		for i, p := range b.PeakChannels {
			peaks[i] = float64(p)
		}
		g.Set(PeakChannelsDataset, container.Vector(peaks))
	}
	return root
}
