package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nwbconv/internal/config"
	"nwbconv/internal/container"
	"nwbconv/internal/convert"
	"nwbconv/internal/logging"
	"nwbconv/internal/preflight"
	"nwbconv/internal/session"
	"nwbconv/internal/source"
)

type convertOptions struct {
	sessions    []string
	outputDir   string
	waveformDir string
	jobs        int
	overwrite   bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert <container>",
		Short: "Convert the sessions of a recording container into export artifacts",
		Long: "Convert reads a .json or bbolt (.db, .bolt) container and writes one SQLite\n" +
			"artifact per session. Relative container paths are resolved against\n" +
			"paths.input_dir when not found in the working directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("jobs") {
				cfg.Convert.Jobs = opts.jobs
			}
			if opts.overwrite {
				cfg.Convert.Overwrite = true
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.sessions, "session", "s", nil, "Session group to convert (repeatable; default all)")
	cmd.Flags().StringVarP(&opts.outputDir, "out", "o", "", "Export directory (overrides paths.output_dir)")
	cmd.Flags().StringVar(&opts.waveformDir, "waveforms", "", "Waveform artifact directory (overrides paths.waveform_dir)")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 1, "Sessions converted in parallel")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Replace existing artifacts")
	return cmd
}

type sessionOutcome struct {
	name   string
	result session.Result
	err    error
}

func runConvert(ctx context.Context, out io.Writer, cfg *config.Config, arg string, opts convertOptions) error {
	path, err := resolveContainerPath(cfg, arg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger, runLog, err := logging.NewRunLogger(cfg, runID)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "convert")
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     cfg.Paths.LogDir,
		Pattern: "convert-*.log",
		Exclude: []string{runLog},
	})

	if opts.outputDir != "" {
		expanded, err := config.ExpandPath(opts.outputDir)
		if err != nil {
			return fmt.Errorf("resolve output directory: %w", err)
		}
		cfg.Paths.OutputDir = expanded
		if err := os.MkdirAll(expanded, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if opts.waveformDir != "" {
		expanded, err := config.ExpandPath(opts.waveformDir)
		if err != nil {
			return fmt.Errorf("resolve waveform directory: %w", err)
		}
		cfg.Paths.WaveformDir = expanded
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
		for _, r := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "run nwbconv check for details"),
			)
		}
		return fmt.Errorf("preflight failed: %s: %s", failed[0].Name, failed[0].Detail)
	}

	root, err := container.Open(path)
	if err != nil {
		return err
	}
	names := opts.sessions
	if len(names) == 0 {
		names = source.SessionNames(root)
	}
	if len(names) == 0 {
		return fmt.Errorf("%s contains no session groups", path)
	}

	runner, err := session.NewRunner(cfg, logger, runID)
	if err != nil {
		return err
	}

	logger.Info("conversion started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("container", path),
		logging.Int("sessions", len(names)),
		logging.Int("jobs", max(cfg.Convert.Jobs, 1)),
		logging.String("run_log", runLog),
	)
	start := time.Now()
	outcomes := convertSessions(ctx, runner, logger, root, names, cfg.Convert.Jobs)

	failures := 0
	for _, o := range outcomes {
		if o.err != nil {
			failures++
		}
	}
	logger.Info("conversion finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("converted", len(outcomes)-failures),
		logging.Int("failed", failures),
		logging.Duration("elapsed", time.Since(start)),
	)

	renderOutcomes(out, outcomes)
	if err := ctx.Err(); err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d session(s) failed; see %s", failures, len(outcomes), runLog)
	}
	return nil
}

// convertSessions runs every session, up to jobs at a time. A failing
// session never cancels the others.
func convertSessions(ctx context.Context, runner *session.Runner, logger *slog.Logger, root *container.Group, names []string, jobs int) []sessionOutcome {
	outcomes := make([]sessionOutcome, len(names))
	progress := logging.NewBatchProgress(logger, len(names), 10)

	var g errgroup.Group
	g.SetLimit(max(jobs, 1))
	for i, name := range names {
		g.Go(func() error {
			outcomes[i].name = name
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				progress.Done(true)
				return nil
			}
			res, err := runner.Convert(ctx, session.Request{Root: root, Name: name})
			outcomes[i].result, outcomes[i].err = res, err
			if err != nil {
				attrs := append([]logging.Attr{
					logging.String("session", name),
					logging.String(logging.FieldErrorHint, hintFor(err)),
				}, logging.Failure(err)...)
				logging.ErrorWithContext(logger, "session conversion failed", "session_failed", attrs...)
			}
			progress.Done(err != nil)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, convert.ErrConfiguration):
		return "check [[probes]] and region assignments in the config"
	case errors.Is(err, convert.ErrIdentifierCollision):
		return "increase identifiers.channel_width or identifiers.unit_width"
	case errors.Is(err, convert.ErrJoinIntegrity):
		return "verify unit peak channels against the probe geometry"
	case errors.Is(err, convert.ErrShapeMismatch):
		return "inspect the session's source matrices for inconsistent shapes"
	case errors.Is(err, convert.ErrSourceFormat):
		return "verify the container with nwbconv check --container"
	default:
		return "check logs for details"
	}
}

func renderOutcomes(out io.Writer, outcomes []sessionOutcome) {
	rows := make([][]string, 0, len(outcomes))
	var channels, units, spikes, ok int
	for _, o := range outcomes {
		if o.err != nil {
			rows = append(rows, []string{o.name, "failed", "", "", "", firstLine(o.err.Error())})
			continue
		}
		r := o.result
		ok++
		channels += r.Channels
		units += r.Units
		spikes += r.Spikes
		rows = append(rows, []string{
			o.name, "ok", strconv.Itoa(r.Channels), strconv.Itoa(r.Units),
			strconv.Itoa(r.Spikes), filepath.Base(r.Artifact),
		})
	}
	fmt.Fprintln(out, renderTable("Sessions",
		[]column{col("Session"), col("Status"), num("Channels"), num("Units"), num("Spikes"), col("Artifact / Error")},
		rows,
		[]string{"Total", fmt.Sprintf("%d/%d ok", ok, len(outcomes)), strconv.Itoa(channels), strconv.Itoa(units), strconv.Itoa(spikes)},
	))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// resolveContainerPath expands arg and falls back to paths.input_dir for
// relative paths that do not exist in the working directory.
func resolveContainerPath(cfg *config.Config, arg string) (string, error) {
	path, err := config.ExpandPath(strings.TrimSpace(arg))
	if err != nil {
		return "", fmt.Errorf("resolve container path: %w", err)
	}
	if _, err := os.Stat(path); err == nil || filepath.IsAbs(arg) || cfg.Paths.InputDir == "" {
		return path, nil
	}
	candidate := filepath.Join(cfg.Paths.InputDir, arg)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return path, nil
}
