package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"nwbconv/internal/config"
	"nwbconv/internal/export"
)

func newInspectCommand() *cobra.Command {
	var jsonOutput bool
	var limit int

	cmd := &cobra.Command{
		Use:         "inspect <artifact>",
		Short:       "Show the tables of an export artifact",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve artifact path: %w", err)
			}
			a, err := export.Read(cmd.Context(), path)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a.Summarize())
			}
			renderArtifact(cmd.OutOrStdout(), path, a, limit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a machine-readable summary")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows per table (0 for all)")
	return cmd
}

func renderArtifact(out io.Writer, path string, a *export.Artifact, limit int) {
	s := a.Summarize()
	fmt.Fprintf(out, "Artifact:  %s\n", path)
	fmt.Fprintf(out, "Session:   %d", s.SessionID)
	if s.Animal != "" {
		fmt.Fprintf(out, " (%s)", s.Animal)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run:       %s at %s\n", s.RunID, s.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(out, "Units:     %d (%d single-unit), %d spikes, waveforms %s\n",
		s.Units, s.SingleUnits, s.Spikes, yesNo(s.Waveforms))
	fmt.Fprintln(out)

	electrodeRows := make([][]string, 0, len(a.Electrodes))
	for i, ch := range a.Electrodes {
		if limit > 0 && i >= limit {
			break
		}
		imp := "-"
		if ch.Impedance != nil {
			imp = formatFloat(*ch.Impedance)
		}
		electrodeRows = append(electrodeRows, []string{
			strconv.FormatInt(ch.ID, 10), ch.ProbeLabel, strconv.Itoa(ch.LocalIndex), ch.Group,
			formatFloat(ch.X), formatFloat(ch.Y), ch.Location, imp,
		})
	}
	fmt.Fprintln(out, renderTable(
		tableTitle("Electrodes", len(a.Electrodes), limit),
		[]column{num("ID"), col("Probe"), num("Local"), col("Group"), num("X"), num("Y"), col("Location"), num("Imp")},
		electrodeRows, nil,
	))

	unitRows := make([][]string, 0, len(a.Units))
	for i, u := range a.Units {
		if limit > 0 && i >= limit {
			break
		}
		unitRows = append(unitRows, []string{
			strconv.FormatInt(u.ID, 10), strconv.Itoa(u.ClusterID), string(u.ActivityType), u.Location,
			u.ProbeLabel, strconv.FormatInt(u.PeakChannelID, 10),
			strconv.Itoa(len(a.SpikeTimes.Group(i))), formatFloat(u.IsolationDistance),
		})
	}
	fmt.Fprintln(out, renderTable(
		tableTitle("Units", len(a.Units), limit),
		[]column{num("ID"), num("Cluster"), col("Type"), col("Location"), col("Probe"), num("Peak Channel"), num("Spikes"), num("Isolation")},
		unitRows, nil,
	))

	if len(s.TimeSeries) > 0 {
		seriesRows := make([][]string, 0, len(s.TimeSeries))
		for _, ts := range s.TimeSeries {
			seriesRows = append(seriesRows, []string{
				ts.Name, strconv.Itoa(ts.Samples), strconv.Itoa(ts.Columns),
				fmt.Sprintf("%d (%s)", ts.Accepted, percent(ts.Accepted, ts.Samples)),
			})
		}
		fmt.Fprintln(out, renderTable("Time series",
			[]column{col("Name"), num("Samples"), num("Columns"), num("Accepted")},
			seriesRows, nil,
		))
	}

	if len(s.Locations) > 0 {
		locations := make([]string, 0, len(s.Locations))
		for loc := range s.Locations {
			locations = append(locations, loc)
		}
		sort.Strings(locations)
		rows := make([][]string, 0, len(locations))
		for _, loc := range locations {
			rows = append(rows, []string{loc, strconv.Itoa(s.Locations[loc])})
		}
		fmt.Fprintln(out, renderTable("Units by location", []column{col("Location"), num("Units")}, rows,
			[]string{"Total", strconv.Itoa(s.Units)}))
	}
}

func tableTitle(name string, total, limit int) string {
	if limit > 0 && total > limit {
		return fmt.Sprintf("%s (first %d of %d)", name, limit, total)
	}
	return fmt.Sprintf("%s (%d)", name, total)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func percent(part, whole int) string {
	if whole == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(whole))
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
