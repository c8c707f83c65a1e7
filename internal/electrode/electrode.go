// Package electrode builds the per-session registry of recording channels and
// the shank groups they belong to.
package electrode

import (
	"fmt"
	"strings"

	"nwbconv/internal/convert"
	"nwbconv/internal/identifier"
)

// ProbeLayout declares one probe's geometry. Coordinates and Locations must
// cover every channel in tip-to-base order; Impedances is optional.
type ProbeLayout struct {
	Label            string
	Number           int
	Shanks           int
	ChannelsPerShank int
	Coordinates      [][3]float64
	Locations        []string
	Impedances       []*float64
	Device           string
	Manufacturer     string
	Reference        string
}

// Channels returns the declared channel count.
func (p ProbeLayout) Channels() int { return p.Shanks * p.ChannelsPerShank }

// ChannelRecord is one row of the electrode table.
type ChannelRecord struct {
	ID         int64
	LocalIndex int
	ProbeLabel string
	Group      string
	X, Y, Z    float64
	Location   string
	Impedance  *float64
}

// ElectrodeGroup is one shank of one probe.
type ElectrodeGroup struct {
	Name         string
	ProbeLabel   string
	ShankIndex   int
	Description  string
	Manufacturer string
	Reference    string
}

// Table is the session's electrode registry.
type Table struct {
	Channels []ChannelRecord
	Groups   []ElectrodeGroup
}

// GroupName returns the electrode group name for a probe shank (1-based).
func GroupName(probeLabel string, shank int) string {
	return fmt.Sprintf("%s_shank%d", probeLabel, shank)
}

// Build produces channel records for every probe in caller order. Any
// inconsistent declaration fails the whole table.
func Build(sessionID int, probes []ProbeLayout, ids identifier.Synthesizer) (Table, error) {
	var table Table
	seen := make(map[string]struct{}, len(probes))
	registry := identifier.NewRegistry("channel")

	for _, p := range probes {
		scope := convert.SessionScope(sessionID).Probe(p.Label)
		if err := checkLayout(p, seen); err != nil {
			return Table{}, convert.Wrap(convert.ErrConfiguration, scope, "electrode table", err.Error(), nil)
		}
		seen[p.Label] = struct{}{}

		for shank := 1; shank <= p.Shanks; shank++ {
			table.Groups = append(table.Groups, ElectrodeGroup{
				Name:         GroupName(p.Label, shank),
				ProbeLabel:   p.Label,
				ShankIndex:   shank,
				Description:  groupDescription(p, shank),
				Manufacturer: p.Manufacturer,
				Reference:    p.Reference,
			})
		}

		for i := 0; i < p.Channels(); i++ {
			local := i + 1
			id, err := ids.ChannelID(sessionID, p.Number, local)
			if err != nil {
				return Table{}, err
			}
			if err := registry.Claim(id, identifier.Owner(p.Label, local)); err != nil {
				return Table{}, err
			}
			rec := ChannelRecord{
				ID:         id,
				LocalIndex: local,
				ProbeLabel: p.Label,
				Group:      GroupName(p.Label, i/p.ChannelsPerShank+1),
				X:          p.Coordinates[i][0],
				Y:          p.Coordinates[i][1],
				Z:          p.Coordinates[i][2],
				Location:   p.Locations[i],
			}
			if len(p.Impedances) > 0 {
				rec.Impedance = p.Impedances[i]
			}
			table.Channels = append(table.Channels, rec)
		}
	}
	return table, nil
}

func checkLayout(p ProbeLayout, seen map[string]struct{}) error {
	if strings.TrimSpace(p.Label) == "" {
		return fmt.Errorf("probe label is empty")
	}
	if _, dup := seen[p.Label]; dup {
		return fmt.Errorf("probe label %q declared twice", p.Label)
	}
	if p.Shanks <= 0 || p.ChannelsPerShank <= 0 {
		return fmt.Errorf("shank count %d and channels per shank %d must be positive", p.Shanks, p.ChannelsPerShank)
	}
	n := p.Channels()
	if len(p.Coordinates) != n {
		return fmt.Errorf("%d coordinates declared for %d channels", len(p.Coordinates), n)
	}
	if len(p.Locations) != n {
		return fmt.Errorf("%d locations declared for %d channels", len(p.Locations), n)
	}
	for i, loc := range p.Locations {
		if strings.TrimSpace(loc) == "" {
			return fmt.Errorf("channel %d has no location label", i+1)
		}
	}
	if len(p.Impedances) > 0 && len(p.Impedances) != n {
		return fmt.Errorf("%d impedances declared for %d channels", len(p.Impedances), n)
	}
	return nil
}

func groupDescription(p ProbeLayout, shank int) string {
	device := p.Device
	if device == "" {
		device = "probe"
	}
	return fmt.Sprintf("%s %s shank %d of %d", device, p.Label, shank, p.Shanks)
}

// Lookup returns every channel on probeLabel with the given local index.
func (t Table) Lookup(probeLabel string, localIndex int) []ChannelRecord {
	var out []ChannelRecord
	for _, ch := range t.Channels {
		if ch.LocalIndex == localIndex && ch.ProbeLabel == probeLabel {
			out = append(out, ch)
		}
	}
	return out
}
