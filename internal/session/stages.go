package session

import (
	"context"
	"fmt"
	"time"

	"nwbconv/internal/aggregate"
	"nwbconv/internal/electrode"
	"nwbconv/internal/export"
	"nwbconv/internal/logging"
	"nwbconv/internal/qualitymask"
	"nwbconv/internal/ragged"
	"nwbconv/internal/source"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

func (r *Runner) buildElectrodes(_ context.Context, p *pipeline) error {
	table, err := electrode.Build(p.session.ID, r.layouts, r.ids)
	if err != nil {
		return err
	}
	p.channels = table
	p.logger.Debug("electrode table built",
		logging.Int("channels", len(table.Channels)),
		logging.Int("groups", len(table.Groups)),
	)
	return nil
}

func (r *Runner) aggregate(_ context.Context, p *pipeline) error {
	pop, err := aggregate.Merge(p.session.ID, r.specs, p.session.Regions, p.logger)
	if err != nil {
		return err
	}
	p.population = pop
	return nil
}

func (r *Runner) joinUnits(_ context.Context, p *pipeline) error {
	j := units.Joiner{SessionID: p.session.ID, Columns: r.columns, IDs: r.ids, Logger: p.logger}
	table, err := j.Join(p.population, p.channels)
	if err != nil {
		return err
	}
	p.units = table
	return nil
}

func (r *Runner) spikeTimes(_ context.Context, p *pipeline) error {
	trains, err := p.population.SpikeTimes(p.session.SamplingRate)
	if err != nil {
		return err
	}
	p.spikes = ragged.Encode(trains)
	silent := 0
	for _, n := range p.spikes.Lengths() {
		if n == 0 {
			silent++
		}
	}
	if silent > 0 {
		p.logger.Debug("units without spikes",
			logging.String(logging.FieldEventType, "silent_units"),
			logging.Int("units", silent),
			logging.Int("total", p.spikes.Len()),
		)
	}
	return nil
}

func (r *Runner) reshapeWaveforms(ctx context.Context, p *pipeline) error {
	if !r.cfg.Waveforms.Enabled {
		return nil
	}
	dir := p.req.WaveformDir
	if dir == "" {
		dir = r.cfg.Paths.WaveformDir
	}
	results := make([]waveform.Result, 0, len(r.layouts))
	for _, layout := range r.layouts {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := p.logger.With(logging.Probe(layout.Label))
		block, err := source.LoadWaveforms(dir, p.session.Name, layout.Label)
		if err != nil {
			return err
		}
		clusters := units.ClusterIDs(p.units.ForProbe(layout.Label))
		res, err := waveform.Reshape(block, clusters, layout.ChannelsPerShank, r.cfg.Waveforms.Samples)
		if err != nil {
			return fmt.Errorf("probe %s waveforms: %w", layout.Label, err)
		}
		if block == nil && len(clusters) > 0 {
			logging.WarnWithContext(logger, "waveforms not extracted for probe", "waveforms_missing",
				logging.Int("units", len(clusters)),
				logging.String(logging.FieldImpact, "units exported with NaN mean waveforms"),
				logging.String(logging.FieldErrorHint, "extract waveforms into "+dir),
			)
		} else if missing := len(clusters) - res.Present; missing > 0 {
			logging.WarnWithContext(logger, "units missing from waveform block", "waveforms_partial",
				logging.Int("missing", missing),
				logging.Int("present", res.Present),
				logging.String(logging.FieldImpact, "missing units exported with NaN mean waveforms"),
			)
		}
		results = append(results, res)
	}
	all := waveform.Concat(results...)
	exported, err := all.Ragged()
	if err != nil {
		return err
	}
	p.waveforms = exported
	p.present = all.Present
	return nil
}

func (r *Runner) behavior(_ context.Context, p *pipeline) error {
	for _, cfgStream := range r.streams {
		stream, ok := p.session.Streams[cfgStream.Key]
		if !ok || stream == nil {
			p.logger.Info("behavioural stream not recorded",
				logging.String(logging.FieldEventType, "stream_absent"),
				logging.String("stream", cfgStream.Name),
			)
			continue
		}
		mask, err := qualitymask.Build(stream.Timestamps, stream.Intervals)
		if err != nil {
			return fmt.Errorf("%s quality mask: %w", cfgStream.Name, err)
		}
		p.series = append(p.series, export.TimeSeries{
			Name:        cfgStream.Name,
			Description: cfgStream.Description,
			Unit:        cfgStream.Unit,
			Values:      stream.Values,
			Timestamps:  stream.Timestamps,
			Quality:     mask,
		})
		p.logger.Debug("quality mask built",
			logging.String("stream", cfgStream.Name),
			logging.Int("samples", len(mask)),
			logging.Int("accepted", qualitymask.Count(mask)),
		)
	}
	return nil
}

func (r *Runner) export(ctx context.Context, p *pipeline) error {
	a := &export.Artifact{
		Info: export.Info{
			FormatVersion: export.FormatVersion,
			SessionID:     p.session.ID,
			Animal:        r.cfg.Recording.Animal,
			RunID:         r.runID,
			CreatedAt:     r.now().UTC().Truncate(time.Millisecond),
		},
		Groups:     p.channels.Groups,
		Electrodes: p.channels.Channels,
		Units:      p.units.Records,
		SpikeTimes: p.spikes,
		Waveforms:  p.waveforms,
		TimeSeries: p.series,
	}
	return export.Write(ctx, p.artifact, a, export.Options{Overwrite: r.cfg.Convert.Overwrite})
}
