package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nwbconv/internal/aggregate"
	"nwbconv/internal/config"
	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/electrode"
	"nwbconv/internal/export"
	"nwbconv/internal/identifier"
	"nwbconv/internal/logging"
	"nwbconv/internal/ragged"
	"nwbconv/internal/source"
	"nwbconv/internal/units"
	"nwbconv/internal/waveform"
)

// Runner converts sessions with one configuration. A Runner holds no
// per-session state and may be shared by concurrent conversions.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	runID   string
	ids     identifier.Synthesizer
	layouts []electrode.ProbeLayout
	specs   []aggregate.RegionSpec
	columns units.Columns
	streams []config.Stream
	now     func() time.Time
}

// Request names one session of a loaded container.
type Request struct {
	Root *container.Group
	// Name is the session group below Root.
	Name string
	// OutputDir overrides paths.output_dir.
	OutputDir string
	// WaveformDir overrides paths.waveform_dir.
	WaveformDir string
}

// Result summarizes a converted session.
type Result struct {
	Name        string
	SessionID   int
	Artifact    string
	Channels    int
	Units       int
	SingleUnits int
	Spikes      int
	Waveforms   int
	Streams     int
	Duration    time.Duration
}

// NewRunner validates the identifier widths and precomputes the probe
// layouts and canonical region order from cfg.
func NewRunner(cfg *config.Config, logger *slog.Logger, runID string) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", convert.ErrConfiguration)
	}
	ids, err := identifier.New(cfg.Identifiers.ChannelWidth, cfg.Identifiers.UnitWidth)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "session"),
		runID:   runID,
		ids:     ids,
		layouts: electrode.LayoutsFromConfig(cfg.Probes),
		columns: ColumnsFromConfig(cfg.MetadataColumns),
		now:     time.Now,
	}
	for _, p := range cfg.Probes {
		for _, region := range p.Regions {
			r.specs = append(r.specs, aggregate.RegionSpec{Name: region, Probe: p.Label, ProbeNumber: p.Number})
		}
	}
	for _, s := range []config.Stream{cfg.Behavior.EyeTracking, cfg.Behavior.MotionTracking} {
		if strings.TrimSpace(s.Key) != "" {
			r.streams = append(r.streams, s)
		}
	}
	return r, nil
}

// ColumnsFromConfig maps the configured metadata layout to the joiner's.
func ColumnsFromConfig(c config.MetadataColumns) units.Columns {
	return units.Columns{
		ClusterID:         c.ClusterID,
		Channel:           c.Channel,
		Horizontal:        c.Horizontal,
		Vertical:          c.Vertical,
		ISIViolation:      c.ISIViolation,
		IsolationDistance: c.IsolationDistance,
	}
}

// ArtifactName returns the export file name of a session.
func ArtifactName(animal string, sessionID int) string {
	animal = strings.TrimSpace(animal)
	if animal == "" {
		return fmt.Sprintf("session%d.nwb.db", sessionID)
	}
	return fmt.Sprintf("%s_session%d.nwb.db", animal, sessionID)
}

// pipeline carries the intermediate products of one conversion.
type pipeline struct {
	req        Request
	session    *source.Session
	artifact   string
	channels   electrode.Table
	population aggregate.Population
	units      units.Table
	spikes     ragged.Array[float64]
	waveforms  waveform.Exported
	present    int
	series     []export.TimeSeries
	logger     *slog.Logger
}

type stage struct {
	name string
	run  func(context.Context, *pipeline) error
}

// Convert runs the full pipeline for one session. The artifact lock is held
// from the electrode stage until the artifact is published.
func (r *Runner) Convert(ctx context.Context, req Request) (Result, error) {
	start := r.now()
	if req.Root == nil {
		return Result{}, fmt.Errorf("%w: session %q: container root is required", convert.ErrConfiguration, req.Name)
	}
	if r.runID != "" {
		ctx = convert.WithRunID(ctx, r.runID)
	}

	sess, err := source.Extract(req.Root, req.Name, source.Options{
		SamplingRate: r.cfg.Recording.SamplingRate,
		StreamKeys:   r.streamKeys(),
	})
	if err != nil {
		return Result{}, err
	}
	ctx = convert.WithSession(ctx, sess.ID)
	p := &pipeline{req: req, session: sess, logger: logging.WithContext(ctx, r.logger)}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = r.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	p.artifact = filepath.Join(outDir, ArtifactName(r.cfg.Recording.Animal, sess.ID))
	p.logger = p.logger.With(logging.Artifact(p.artifact))

	lock, err := export.AcquireLock(p.artifact)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logging.WarnWithContext(p.logger, "failed to release artifact lock", "lock_release_failed",
				logging.Error(releaseErr),
				logging.String(logging.FieldErrorHint, "remove "+lock.Path()+" if no conversion is running"),
			)
		}
	}()

	stages := []stage{
		{"electrodes", r.buildElectrodes},
		{"aggregate", r.aggregate},
		{"units", r.joinUnits},
		{"spike_times", r.spikeTimes},
		{"waveforms", r.reshapeWaveforms},
		{"behavior", r.behavior},
		{"export", r.export},
	}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		stageStart := time.Now()
		p.logger.Debug("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String("stage", st.name),
		)
		if err := st.run(ctx, p); err != nil {
			return Result{}, fmt.Errorf("session %d: %s: %w", sess.ID, st.name, err)
		}
		p.logger.Debug("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("stage", st.name),
			logging.Duration("elapsed", time.Since(stageStart)),
		)
	}

	res := Result{
		Name:        req.Name,
		SessionID:   sess.ID,
		Artifact:    p.artifact,
		Channels:    len(p.channels.Channels),
		Units:       len(p.units.Records),
		SingleUnits: p.units.Count(units.SingleUnit),
		Spikes:      len(p.spikes.Data),
		Waveforms:   p.present,
		Streams:     len(p.series),
		Duration:    r.now().Sub(start),
	}
	p.logger.Info("session converted",
		logging.String(logging.FieldEventType, "session_complete"),
		logging.Int("channels", res.Channels),
		logging.Int("units", res.Units),
		logging.Int("single_units", res.SingleUnits),
		logging.Int("spikes", res.Spikes),
		logging.Int("streams", res.Streams),
		logging.Duration("elapsed", res.Duration),
	)
	return res, nil
}

func (r *Runner) streamKeys() []string {
	keys := make([]string, 0, len(r.streams))
	for _, s := range r.streams {
		keys = append(keys, s.Key)
	}
	return keys
}
