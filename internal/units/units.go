// Package units joins the aggregated population with the electrode table to
// produce the session's unit metadata table.
package units

import (
	"fmt"
	"log/slog"
	"math"

	"nwbconv/internal/aggregate"
	"nwbconv/internal/convert"
	"nwbconv/internal/electrode"
	"nwbconv/internal/identifier"
	"nwbconv/internal/logging"
)

// ActivityType distinguishes curated single units from multi-unit activity.
type ActivityType string

const (
	SingleUnit ActivityType = "single-unit"
	MultiUnit  ActivityType = "multi-unit"
)

// Columns maps metadata fields to 0-based positions in a metadata row.
type Columns struct {
	ClusterID         int
	Channel           int
	Horizontal        int
	Vertical          int
	ISIViolation      int
	IsolationDistance int
}

func (c Columns) width() int {
	return max(c.ClusterID, c.Channel, c.Horizontal, c.Vertical, c.ISIViolation, c.IsolationDistance) + 1
}

// Record is one row of the unit table.
type Record struct {
	ID                 int64
	ClusterID          int
	ActivityType       ActivityType
	PeakChannelIndex   int
	PeakChannelID      int64
	RelativeHorizontal float64
	RelativeVertical   float64
	ISIViolationRate   float64
	IsolationDistance  float64
	Location           string
	ProbeLabel         string
	ElectrodeGroup     string
}

// Table is the ordered unit table; row i corresponds to population row i.
type Table struct {
	Records []Record
}

// Joiner resolves population rows against the electrode table.
type Joiner struct {
	SessionID int
	Columns   Columns
	IDs       identifier.Synthesizer
	Logger    *slog.Logger
}

// Join builds one unit record per population row, in population order.
func (j Joiner) Join(pop aggregate.Population, channels electrode.Table) (Table, error) {
	logger := logging.NewComponentLogger(j.Logger, "units")
	registry := identifier.NewRegistry("unit")
	need := j.Columns.width()

	table := Table{Records: make([]Record, 0, len(pop.Rows))}
	singles := 0
	for i, row := range pop.Rows {
		scope := convert.SessionScope(j.SessionID).Probe(row.Probe).Region(row.Region)
		if len(row.Metadata) < need {
			return Table{}, convert.Wrap(convert.ErrShapeMismatch, scope, "unit join",
				fmt.Sprintf("metadata row %d has %d columns, layout needs %d", i, len(row.Metadata), need), nil)
		}
		cluster, err := integral(row.Metadata[j.Columns.ClusterID])
		if err != nil {
			return Table{}, convert.Wrap(convert.ErrShapeMismatch, scope, "unit join",
				fmt.Sprintf("metadata row %d cluster id", i), err)
		}
		channel, err := integral(row.Metadata[j.Columns.Channel])
		if err != nil {
			return Table{}, convert.Wrap(convert.ErrShapeMismatch, scope.Unit(cluster), "unit join",
				fmt.Sprintf("metadata row %d channel", i), err)
		}
		scope = scope.Unit(cluster).Channel(channel)

		matches := channels.Lookup(row.Probe, channel)
		if len(matches) != 1 {
			return Table{}, convert.Wrap(convert.ErrJoinIntegrity, scope, "unit join",
				fmt.Sprintf("expected exactly one electrode, found %d", len(matches)), nil)
		}
		peak := matches[0]

		id, err := j.IDs.UnitID(j.SessionID, row.ProbeNumber, cluster)
		if err != nil {
			return Table{}, err
		}
		if err := registry.Claim(id, identifier.Owner(row.Probe, cluster)); err != nil {
			return Table{}, err
		}

		activity := MultiUnit
		if pop.IsConfirmed(row.Region, cluster) {
			activity = SingleUnit
			singles++
		}
		table.Records = append(table.Records, Record{
			ID:                 id,
			ClusterID:          cluster,
			ActivityType:       activity,
			PeakChannelIndex:   channel,
			PeakChannelID:      peak.ID,
			RelativeHorizontal: row.Metadata[j.Columns.Horizontal],
			RelativeVertical:   row.Metadata[j.Columns.Vertical],
			ISIViolationRate:   row.Metadata[j.Columns.ISIViolation],
			IsolationDistance:  row.Metadata[j.Columns.IsolationDistance],
			Location:           row.Region,
			ProbeLabel:         row.Probe,
			ElectrodeGroup:     peak.Group,
		})
	}
	logger.Debug("unit table joined",
		logging.Int(logging.FieldSessionID, j.SessionID),
		logging.Int("units", len(table.Records)),
		logging.Int("single_units", singles),
	)
	return table, nil
}

func integral(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("value %g is not an integer", v)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("value %g out of range", v)
	}
	return int(v), nil
}

// ForProbe returns the records recorded on probeLabel, in table order.
func (t Table) ForProbe(probeLabel string) []Record {
	var out []Record
	for _, r := range t.Records {
		if r.ProbeLabel == probeLabel {
			out = append(out, r)
		}
	}
	return out
}

// ClusterIDs returns the cluster ids of records in order.
func ClusterIDs(records []Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ClusterID
	}
	return out
}

// Count returns how many records have the given activity type.
func (t Table) Count(kind ActivityType) int {
	n := 0
	for _, r := range t.Records {
		if r.ActivityType == kind {
			n++
		}
	}
	return n
}
