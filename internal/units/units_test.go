package units_test

import (
	"errors"
	"testing"

	"nwbconv/internal/aggregate"
	"nwbconv/internal/convert"
	"nwbconv/internal/electrode"
	"nwbconv/internal/identifier"
	"nwbconv/internal/units"
)

var layout = units.Columns{ClusterID: 0, Channel: 1, Horizontal: 2, Vertical: 3, ISIViolation: 4, IsolationDistance: 5}

func joiner(t *testing.T) units.Joiner {
	t.Helper()
	ids, err := identifier.New(3, 4)
	if err != nil {
		t.Fatalf("identifier.New: %v", err)
	}
	return units.Joiner{SessionID: 5, Columns: layout, IDs: ids}
}

func channelTable() electrode.Table {
	return electrode.Table{Channels: []electrode.ChannelRecord{
		{ID: 1041, LocalIndex: 1, ProbeLabel: "probe1", Group: "probe1_shank1"},
		{ID: 1042, LocalIndex: 2, ProbeLabel: "probe1", Group: "probe1_shank1"},
		{ID: 2002, LocalIndex: 2, ProbeLabel: "probe2", Group: "probe2_shank1"},
	}}
}

func population(rows ...aggregate.Row) aggregate.Population {
	return aggregate.Population{
		Rows: rows,
		Confirmed: map[string]map[int]struct{}{
			"CA1": {17: {}},
		},
	}
}

func TestJoinResolvesPeakChannelByProbe(t *testing.T) {
	pop := population(
		aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: []float64{17, 2, 10.5, -3, 0.01, 22}},
		aggregate.Row{Region: "PFC", Probe: "probe2", ProbeNumber: 2, Metadata: []float64{4, 2, 0, 0, 0.2, 9}},
	)
	table, err := joiner(t).Join(pop, channelTable())
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(table.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(table.Records))
	}
	first := table.Records[0]
	if first.PeakChannelID != 1042 {
		t.Fatalf("peak channel id = %d, want 1042", first.PeakChannelID)
	}
	if first.ID != 510017 || first.ActivityType != units.SingleUnit || first.ElectrodeGroup != "probe1_shank1" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.RelativeHorizontal != 10.5 || first.IsolationDistance != 22 || first.Location != "CA1" {
		t.Fatalf("metadata columns not copied: %+v", first)
	}
	second := table.Records[1]
	if second.PeakChannelID != 2002 || second.ActivityType != units.MultiUnit {
		t.Fatalf("unexpected second record %+v", second)
	}
	if got := table.ForProbe("probe2"); len(got) != 1 || got[0].ClusterID != 4 {
		t.Fatalf("ForProbe returned %+v", got)
	}
	if table.Count(units.SingleUnit) != 1 {
		t.Fatalf("expected one single unit")
	}
}

func TestJoinFailsWithoutMatchingChannel(t *testing.T) {
	pop := population(aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: []float64{3, 9, 0, 0, 0, 0}})
	_, err := joiner(t).Join(pop, channelTable())
	if !errors.Is(err, convert.ErrJoinIntegrity) {
		t.Fatalf("expected join integrity error, got %v", err)
	}
}

func TestJoinFailsOnAmbiguousChannel(t *testing.T) {
	channels := channelTable()
	channels.Channels = append(channels.Channels, electrode.ChannelRecord{ID: 9999, LocalIndex: 2, ProbeLabel: "probe1"})
	pop := population(aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: []float64{3, 2, 0, 0, 0, 0}})
	_, err := joiner(t).Join(pop, channels)
	if !errors.Is(err, convert.ErrJoinIntegrity) {
		t.Fatalf("expected join integrity error, got %v", err)
	}
}

func TestJoinRejectsMalformedMetadata(t *testing.T) {
	cases := map[string][]float64{
		"short row":          {1, 2, 3},
		"fractional cluster": {1.5, 2, 0, 0, 0, 0},
		"fractional channel": {1, 2.25, 0, 0, 0, 0},
	}
	for name, meta := range cases {
		t.Run(name, func(t *testing.T) {
			pop := population(aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: meta})
			_, err := joiner(t).Join(pop, channelTable())
			if !errors.Is(err, convert.ErrShapeMismatch) {
				t.Fatalf("expected shape mismatch, got %v", err)
			}
		})
	}
}

func TestJoinRejectsDuplicateClusterOnProbe(t *testing.T) {
	pop := population(
		aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: []float64{3, 1, 0, 0, 0, 0}},
		aggregate.Row{Region: "CA1", Probe: "probe1", ProbeNumber: 1, Metadata: []float64{3, 2, 0, 0, 0, 0}},
	)
	_, err := joiner(t).Join(pop, channelTable())
	if !errors.Is(err, convert.ErrIdentifierCollision) {
		t.Fatalf("expected identifier collision, got %v", err)
	}
}
