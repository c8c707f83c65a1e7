package export

import (
	"fmt"
	"time"

	"nwbconv/internal/convert"
	"nwbconv/internal/electrode"
	"nwbconv/internal/ragged"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

// FormatVersion is recorded in export_info for readers of the artifact.
const FormatVersion = 1

// Names of the ragged columns attached to the units table.
const (
	SpikeTimes          = "spike_times"
	WaveformMean        = "waveform_mean"
	Waveforms           = "waveforms"
	indexSuffix         = "_index"
	unitsTable          = "units"
	dtypeFloat64        = "float64"
	dtypeInt64          = "int64"
	infoFormatVersion   = "format_version"
	infoSessionID       = "session_id"
	infoAnimal          = "animal"
	infoRunID           = "run_id"
	infoCreatedAt       = "created_at"
	createdAtTimeFormat = time.RFC3339Nano
)

// Info holds artifact-level metadata.
type Info struct {
	FormatVersion int
	SessionID     int
	Animal        string
	RunID         string
	CreatedAt     time.Time
}

// TimeSeries is one behavioural stream with its quality mask.
type TimeSeries struct {
	Name        string
	Description string
	Unit        string
	// Values has one row per timestamp.
	Values     [][]float64
	Timestamps []float64
	Quality    []bool
}

// Columns returns the width of the value rows.
func (ts TimeSeries) Columns() int {
	if len(ts.Values) == 0 {
		return 0
	}
	return len(ts.Values[0])
}

// Artifact is the in-memory model of one export file.
type Artifact struct {
	Info       Info
	Groups     []electrode.ElectrodeGroup
	Electrodes []electrode.ChannelRecord
	Units      []units.Record
	SpikeTimes ragged.Array[float64]
	// Waveforms is empty when waveform export is disabled.
	Waveforms  waveform.Exported
	TimeSeries []TimeSeries
}

// HasWaveforms reports whether the artifact carries waveform columns.
func (a *Artifact) HasWaveforms() bool {
	return a.Waveforms.Waveforms.Depth() > 0
}

// Validate checks that every unit-aligned column covers the unit table and
// that time series are rectangular and aligned with their masks.
func (a *Artifact) Validate() error {
	scope := convert.SessionScope(a.Info.SessionID)
	n := len(a.Units)
	if err := a.SpikeTimes.Validate(); err != nil {
		return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact", SpikeTimes, err)
	}
	if a.SpikeTimes.Len() != n {
		return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact",
			SpikeTimes, fmt.Errorf("%d groups for %d units", a.SpikeTimes.Len(), n))
	}
	if a.HasWaveforms() {
		nested := a.Waveforms.Waveforms
		if nested.Depth() != 2 {
			return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact",
				Waveforms, fmt.Errorf("expected 2 index levels, got %d", nested.Depth()))
		}
		if len(nested.Levels[1]) != n {
			return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact",
				Waveforms, fmt.Errorf("%d unit groups for %d units", len(nested.Levels[1]), n))
		}
		if a.Waveforms.Mean.Len() != n {
			return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact",
				WaveformMean, fmt.Errorf("%d groups for %d units", a.Waveforms.Mean.Len(), n))
		}
	}
	seen := make(map[string]struct{}, len(a.TimeSeries))
	for _, ts := range a.TimeSeries {
		if _, dup := seen[ts.Name]; dup || ts.Name == "" {
			return convert.Wrap(convert.ErrConfiguration, scope, "validate artifact",
				"time series name", fmt.Errorf("%q is empty or repeated", ts.Name))
		}
		seen[ts.Name] = struct{}{}
		if len(ts.Values) != len(ts.Timestamps) || len(ts.Quality) != len(ts.Timestamps) {
			return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact", ts.Name,
				fmt.Errorf("%d rows, %d timestamps, %d mask values", len(ts.Values), len(ts.Timestamps), len(ts.Quality)))
		}
		width := ts.Columns()
		for i, row := range ts.Values {
			if len(row) != width {
				return convert.Wrap(convert.ErrShapeMismatch, scope, "validate artifact", ts.Name,
					fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width))
			}
		}
	}
	return nil
}

// Summary is the machine-readable overview printed by inspect.
type Summary struct {
	SessionID     int             `json:"session_id"`
	Animal        string          `json:"animal,omitempty"`
	RunID         string          `json:"run_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	FormatVersion int             `json:"format_version"`
	Groups        int             `json:"electrode_groups"`
	Electrodes    int             `json:"electrodes"`
	Units         int             `json:"units"`
	SingleUnits   int             `json:"single_units"`
	Spikes        int             `json:"spikes"`
	Waveforms     bool            `json:"waveforms"`
	TimeSeries    []SeriesSummary `json:"timeseries,omitempty"`
	UnitsByProbe  map[string]int  `json:"units_by_probe,omitempty"`
	Locations     map[string]int  `json:"units_by_location,omitempty"`
}

// SeriesSummary describes one time series in a Summary.
type SeriesSummary struct {
	Name     string `json:"name"`
	Samples  int    `json:"samples"`
	Columns  int    `json:"columns"`
	Accepted int    `json:"accepted"`
}

// Summarize reports counts for the artifact.
func (a *Artifact) Summarize() Summary {
	s := Summary{
		SessionID:     a.Info.SessionID,
		Animal:        a.Info.Animal,
		RunID:         a.Info.RunID,
		CreatedAt:     a.Info.CreatedAt,
		FormatVersion: a.Info.FormatVersion,
		Groups:        len(a.Groups),
		Electrodes:    len(a.Electrodes),
		Units:         len(a.Units),
		Spikes:        len(a.SpikeTimes.Data),
		Waveforms:     a.HasWaveforms(),
		UnitsByProbe:  map[string]int{},
		Locations:     map[string]int{},
	}
	for _, u := range a.Units {
		if u.ActivityType == units.SingleUnit {
			s.SingleUnits++
		}
		s.UnitsByProbe[u.ProbeLabel]++
		s.Locations[u.Location]++
	}
	for _, ts := range a.TimeSeries {
		accepted := 0
		for _, ok := range ts.Quality {
			if ok {
				accepted++
			}
		}
		s.TimeSeries = append(s.TimeSeries, SeriesSummary{
			Name:     ts.Name,
			Samples:  len(ts.Timestamps),
			Columns:  ts.Columns(),
			Accepted: accepted,
		})
	}
	return s
}
