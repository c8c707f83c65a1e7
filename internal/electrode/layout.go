package electrode

import "nwbconv/internal/config"

// LayoutsFromConfig converts configured probes into layouts, generating
// geometry where the configuration leaves it implicit.
func LayoutsFromConfig(probes []config.Probe) []ProbeLayout {
	out := make([]ProbeLayout, 0, len(probes))
	for _, p := range probes {
		coords, locations, impedances := p.Geometry()
		out = append(out, ProbeLayout{
			Label:            p.Label,
			Number:           p.Number,
			Shanks:           p.Shanks,
			ChannelsPerShank: p.ChannelsPerShank,
			Coordinates:      coords,
			Locations:        locations,
			Impedances:       impedances,
			Device:           p.Device,
			Manufacturer:     p.Manufacturer,
			Reference:        p.Reference,
		})
	}
	return out
}
