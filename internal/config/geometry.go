package config

// Geometry returns per-channel coordinates, locations, and impedances in
// tip-to-base order. Explicit values are passed through untouched so the
// electrode table can reject incomplete declarations; otherwise channels are
// laid out linearly with x across shanks and y along each shank from the tip,
// and the probe-level location is repeated. Impedances of zero or below are
// reported as unknown.
func (p Probe) Geometry() (coords [][3]float64, locations []string, impedances []*float64) {
	n := p.Channels()

	if len(p.Coordinates) > 0 {
		coords = make([][3]float64, 0, len(p.Coordinates))
		for _, xyz := range p.Coordinates {
			if len(xyz) != 3 {
				break
			}
			coords = append(coords, [3]float64{xyz[0], xyz[1], xyz[2]})
		}
	} else if p.ChannelsPerShank > 0 {
		coords = make([][3]float64, n)
		for i := range coords {
			shank := i / p.ChannelsPerShank
			pos := i % p.ChannelsPerShank
			coords[i] = [3]float64{float64(shank) * p.ShankSpacingUM, float64(pos) * p.PitchUM, 0}
		}
	}

	if len(p.ChannelLocations) > 0 {
		locations = append([]string(nil), p.ChannelLocations...)
	} else if p.Location != "" {
		locations = make([]string, n)
		for i := range locations {
			locations[i] = p.Location
		}
	}

	if len(p.ImpedanceOhms) > 0 {
		impedances = make([]*float64, len(p.ImpedanceOhms))
		for i, v := range p.ImpedanceOhms {
			if v > 0 {
				value := v
				impedances[i] = &value
			}
		}
	}
	return coords, locations, impedances
}
