// Package source extracts one recording session's raw records from a
// container tree.
package source

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"nwbconv/internal/aggregate"
	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/qualitymask"
)

// Dataset and group names of the per-session layout.
const (
	IDDataset           = "id"
	SamplingRateDataset = "samplingRate"
	PopulationGroup     = "popData"
	ActivityDataset     = "spkDB"
	MetadataDataset     = "muaMetadata"
	ShankGroup          = "shankData"
	ConfirmedDataset    = "units"
	ValuesDataset       = "values"
	TimestampsDataset   = "timestamps"
	IntervalsDataset    = "intervals"
)

// Stream is one behavioural time series. Values has one row per timestamp.
type Stream struct {
	Key        string
	Values     [][]float64
	Timestamps []float64
	Intervals  []qualitymask.Interval
}

// Session is the raw content of one session group. Regions maps container
// region names to their data; streams are keyed by container key, and a
// missing key means the stream was not recorded.
type Session struct {
	Name         string
	ID           int
	SamplingRate float64
	Regions      map[string]*aggregate.RegionData
	Streams      map[string]*Stream
}

// Options control extraction.
type Options struct {
	// SamplingRate is used when the session carries none.
	SamplingRate float64
	// StreamKeys names the behavioural groups to read.
	StreamKeys []string
}

// SessionNames lists session groups below root in numeric order when names
// are integers, lexical order otherwise.
func SessionNames(root *container.Group) []string {
	names := root.Groups()
	slices.SortStableFunc(names, func(a, b string) int {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		switch {
		case aerr == nil && berr == nil:
			return ai - bi
		case aerr == nil:
			return -1
		case berr == nil:
			return 1
		}
		return 0
	})
	return names
}

// Extract reads the session group called name.
func Extract(root *container.Group, name string, opts Options) (*Session, error) {
	g, ok := root.Group(name)
	if !ok {
		return nil, convert.Errorf(convert.ErrSourceFormat, "extract session", "session %q not found in container", name)
	}
	id, err := sessionID(g, name)
	if err != nil {
		return nil, err
	}
	scope := convert.SessionScope(id)

	s := &Session{
		Name:         name,
		ID:           id,
		SamplingRate: opts.SamplingRate,
		Regions:      map[string]*aggregate.RegionData{},
		Streams:      map[string]*Stream{},
	}
	if ds, ok := g.Dataset(SamplingRateDataset); ok {
		rate, err := ds.ScalarValue()
		if err != nil {
			return nil, convert.Wrap(convert.ErrSourceFormat, scope, "sampling rate", "", err)
		}
		s.SamplingRate = rate
	}
	if !(s.SamplingRate > 0) || math.IsInf(s.SamplingRate, 0) {
		return nil, convert.Wrap(convert.ErrSourceFormat, scope, "sampling rate",
			fmt.Sprintf("sampling rate %g must be a positive number", s.SamplingRate), nil)
	}

	streamKeys := make(map[string]struct{}, len(opts.StreamKeys))
	for _, key := range opts.StreamKeys {
		streamKeys[key] = struct{}{}
		sg, ok := g.Group(key)
		if !ok {
			continue
		}
		stream, err := readStream(sg, key)
		if err != nil {
			return nil, convert.Wrap(convert.ErrShapeMismatch, scope, "behaviour stream "+key, "", err)
		}
		if stream != nil {
			s.Streams[key] = stream
		}
	}

	for _, child := range g.Groups() {
		if _, isStream := streamKeys[child]; isStream {
			continue
		}
		rg, _ := g.Group(child)
		if _, ok := rg.Group(PopulationGroup); !ok {
			continue
		}
		rd, err := readRegion(rg)
		if err != nil {
			return nil, convert.Wrap(convert.ErrSourceFormat, scope.Region(child), "read region", "", err)
		}
		s.Regions[child] = rd
	}
	return s, nil
}

func sessionID(g *container.Group, name string) (int, error) {
	if ds, ok := g.Dataset(IDDataset); ok {
		v, err := ds.ScalarValue()
		if err != nil {
			return 0, convert.Wrap(convert.ErrSourceFormat, convert.Scope{}, "session id", name, err)
		}
		if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
			return 0, convert.Errorf(convert.ErrSourceFormat, "session id", "session %q id %g is not a non-negative integer", name, v)
		}
		return int(v), nil
	}
	id, err := strconv.Atoi(name)
	if err != nil || id < 0 {
		return 0, convert.Errorf(convert.ErrSourceFormat, "session id",
			"session group %q has no %s dataset and its name is not a non-negative integer", name, IDDataset)
	}
	return id, nil
}

func readRegion(g *container.Group) (*aggregate.RegionData, error) {
	pop, _ := g.Group(PopulationGroup)
	spk, ok := pop.Dataset(ActivityDataset)
	if !ok {
		return nil, fmt.Errorf("%s/%s is missing", PopulationGroup, ActivityDataset)
	}
	if spk.Kind != container.KindSparse {
		return nil, fmt.Errorf("%s/%s must be sparse, found %s", PopulationGroup, ActivityDataset, spk.Kind)
	}
	if err := spk.Validate(); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", PopulationGroup, ActivityDataset, err)
	}
	metaDS, ok := pop.Dataset(MetadataDataset)
	if !ok {
		return nil, fmt.Errorf("%s/%s is missing", PopulationGroup, MetadataDataset)
	}
	meta, err := metaDS.Rows2D()
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", PopulationGroup, MetadataDataset, err)
	}

	rd := &aggregate.RegionData{
		Activity: aggregate.SparseMatrix{
			NumRows: spk.Shape[0],
			NumCols: spk.Shape[1],
			Rows:    append([]int(nil), spk.Rows...),
			Cols:    append([]int(nil), spk.Cols...),
		},
		Metadata: meta,
	}
	if spk.Values != nil {
		rd.Activity.Values = append([]float64(nil), spk.Values...)
	}
	if ds, ok := g.DatasetAt(ShankGroup + "/" + ConfirmedDataset); ok {
		ids, err := ds.Ints()
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", ShankGroup, ConfirmedDataset, err)
		}
		rd.Confirmed = ids
	}
	return rd, nil
}

func readStream(g *container.Group, key string) (*Stream, error) {
	valuesDS, ok := g.Dataset(ValuesDataset)
	if !ok {
		return nil, nil
	}
	tsDS, ok := g.Dataset(TimestampsDataset)
	if !ok {
		return nil, fmt.Errorf("%s has values but no timestamps", key)
	}
	timestamps, err := tsDS.Floats()
	if err != nil {
		return nil, err
	}
	values, err := timeRows(valuesDS)
	if err != nil {
		return nil, err
	}
	if len(values) != len(timestamps) {
		return nil, fmt.Errorf("%s has %d value rows for %d timestamps", key, len(values), len(timestamps))
	}
	stream := &Stream{Key: key, Values: values, Timestamps: timestamps}
	if ds, ok := g.Dataset(IntervalsDataset); ok {
		raw, err := ds.Floats()
		if err != nil {
			return nil, err
		}
		stream.Intervals, err = qualitymask.ParseIntervals(raw, ds.Shape)
		if err != nil {
			return nil, err
		}
		if err := qualitymask.Validate(stream.Intervals); err != nil {
			return nil, err
		}
	}
	return stream, nil
}

// timeRows reads a values dataset as one row per sample; a vector is a
// single-column series.
func timeRows(ds *container.Dataset) ([][]float64, error) {
	if len(ds.Shape) == 1 {
		flat, err := ds.Floats()
		if err != nil {
			return nil, err
		}
		rows := make([][]float64, len(flat))
		for i, v := range flat {
			rows[i] = []float64{v}
		}
		return rows, nil
	}
	return ds.Rows2D()
}
