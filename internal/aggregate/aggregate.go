// Package aggregate merges per-region unit records into one session-wide
// population in canonical region order.
package aggregate

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"

	"nwbconv/internal/convert"
	"nwbconv/internal/logging"
)

// RegionSpec names a region in canonical order and the probe recording it.
type RegionSpec struct {
	Name        string
	Probe       string
	ProbeNumber int
}

// RegionData holds the raw records of one present region.
type RegionData struct {
	Activity  SparseMatrix
	Metadata  [][]float64
	Confirmed []int
}

// Row is one unit of the merged population. Probe is the explicit provenance
// tag used by the unit joiner.
type Row struct {
	Region      string
	Probe       string
	ProbeNumber int
	Metadata    []float64
	Spikes      []int
}

// Population is the ordered merge of all present regions.
type Population struct {
	Rows    []Row
	Samples int
	// Confirmed maps canonical region names to their curated cluster sets.
	Confirmed map[string]map[int]struct{}
}

// Merge concatenates present regions in the order of specs. Regions keyed
// in data are matched to specs by case-folded name; a nil entry is absent.
func Merge(sessionID int, specs []RegionSpec, data map[string]*RegionData, logger *slog.Logger) (Population, error) {
	logger = logging.NewComponentLogger(logger, "aggregate")
	fold := cases.Fold()

	byKey := make(map[string]*RegionData, len(data))
	for name, rd := range data {
		key := fold.String(name)
		if _, dup := byKey[key]; dup {
			return Population{}, convert.Wrap(convert.ErrConfiguration, convert.SessionScope(sessionID).Region(name),
				"aggregate regions", "region appears twice after case folding", nil)
		}
		byKey[key] = rd
	}

	known := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		known[fold.String(spec.Name)] = struct{}{}
	}
	for name, rd := range data {
		if rd == nil {
			continue
		}
		if _, ok := known[fold.String(name)]; !ok {
			return Population{}, convert.Wrap(convert.ErrConfiguration, convert.SessionScope(sessionID).Region(name),
				"aggregate regions", "region is not assigned to any probe", nil)
		}
	}

	pop := Population{Samples: -1, Confirmed: make(map[string]map[int]struct{})}
	width := -1
	for _, spec := range specs {
		rd := byKey[fold.String(spec.Name)]
		scope := convert.SessionScope(sessionID).Probe(spec.Probe).Region(spec.Name)
		if rd == nil {
			logger.Debug("region absent",
				logging.Region(spec.Name),
				logging.Probe(spec.Probe),
			)
			continue
		}
		if err := rd.Activity.Validate(); err != nil {
			return Population{}, convert.Wrap(convert.ErrShapeMismatch, scope, "aggregate regions", "activity matrix", err)
		}
		if pop.Samples >= 0 && rd.Activity.NumCols != pop.Samples {
			return Population{}, convert.Wrap(convert.ErrShapeMismatch, scope, "aggregate regions",
				fmt.Sprintf("activity has %d samples, earlier regions have %d", rd.Activity.NumCols, pop.Samples), nil)
		}
		pop.Samples = rd.Activity.NumCols
		if rd.Activity.NumRows != len(rd.Metadata) {
			return Population{}, convert.Wrap(convert.ErrShapeMismatch, scope, "aggregate regions",
				fmt.Sprintf("activity has %d units but metadata has %d rows", rd.Activity.NumRows, len(rd.Metadata)), nil)
		}
		for i, meta := range rd.Metadata {
			if width >= 0 && len(meta) != width {
				return Population{}, convert.Wrap(convert.ErrShapeMismatch, scope, "aggregate regions",
					fmt.Sprintf("metadata row %d has %d columns, expected %d", i, len(meta), width), nil)
			}
			width = len(meta)
		}

		confirmed := make(map[int]struct{}, len(rd.Confirmed))
		for _, id := range rd.Confirmed {
			confirmed[id] = struct{}{}
		}
		pop.Confirmed[spec.Name] = confirmed

		spikes := rd.Activity.RowSpikes()
		for i, meta := range rd.Metadata {
			pop.Rows = append(pop.Rows, Row{
				Region:      spec.Name,
				Probe:       spec.Probe,
				ProbeNumber: spec.ProbeNumber,
				Metadata:    append([]float64(nil), meta...),
				Spikes:      spikes[i],
			})
		}
		logger.Debug("region merged",
			logging.Region(spec.Name),
			logging.Probe(spec.Probe),
			logging.Int("units", len(rd.Metadata)),
			logging.Int("confirmed", len(confirmed)),
		)
	}
	if pop.Samples < 0 {
		pop.Samples = 0
	}
	return pop, nil
}

// SpikeTimes converts every row's spike columns to seconds.
func (p Population) SpikeTimes(samplingRate float64) ([][]float64, error) {
	if samplingRate <= 0 {
		return nil, convert.Errorf(convert.ErrConfiguration, "spike times", "sampling rate %g must be positive", samplingRate)
	}
	out := make([][]float64, len(p.Rows))
	for i, row := range p.Rows {
		times := make([]float64, len(row.Spikes))
		for j, col := range row.Spikes {
			times[j] = float64(col) / samplingRate
		}
		out[i] = times
	}
	return out, nil
}

// AreaTags returns the region label of every row.
func (p Population) AreaTags() []string {
	out := make([]string, len(p.Rows))
	for i, row := range p.Rows {
		out[i] = row.Region
	}
	return out
}

// IsConfirmed reports whether cluster belongs to region's curated set.
func (p Population) IsConfirmed(region string, cluster int) bool {
	_, ok := p.Confirmed[region][cluster]
	return ok
}
