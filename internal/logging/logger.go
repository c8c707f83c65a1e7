package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nwbconv/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists destinations: "stdout", "stderr" or a file path.
	// Empty means stderr.
	Outputs []string
	// Source annotates every record with file:line. Debug level implies it.
	Source bool
	// ComponentLevels overrides the minimum level for loggers derived with
	// NewComponentLogger, keyed by component name.
	ComponentLevels map[string]string
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]slog.Level, len(opts.ComponentLevels))
	floor := level
	for component, raw := range opts.ComponentLevels {
		lvl, err := parseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", component, err)
		}
		overrides[strings.ToLower(strings.TrimSpace(component))] = lvl
		floor = min(floor, lvl)
	}

	w, err := openOutputs(opts.Outputs)
	if err != nil {
		return nil, err
	}
	source := opts.Source || level <= slog.LevelDebug

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		handler = newPrettyHandler(w, floor, source)
	case "json":
		handler = newJSONHandler(w, floor, source)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if len(overrides) > 0 {
		handler = newComponentLevelHandler(handler, level, overrides)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates the stderr console logger described by cfg.Logging.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	return New(Options{
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		ComponentLevels: cfg.Logging.ComponentOverrides,
	})
}

// NewRunLogger returns the console logger from cfg teed into a JSON debug log
// for runID inside the log directory. Every record carries the run id. The
// returned path is empty when no log directory is configured.
func NewRunLogger(cfg *config.Config, runID string) (*slog.Logger, string, error) {
	console, err := NewFromConfig(cfg)
	if err != nil {
		return nil, "", err
	}
	var runLog string
	if cfg != nil {
		runLog = RunLogPath(cfg.Paths.LogDir, runID)
	}
	if runLog == "" {
		return slog.New(WithRunID(console.Handler(), runID)), "", nil
	}
	file, err := New(Options{Level: "debug", Format: "json", Outputs: []string{runLog}})
	if err != nil {
		return nil, "", fmt.Errorf("run log: %w", err)
	}
	tee := TeeLogger(console, file.Handler())
	return slog.New(WithRunID(tee.Handler(), runID)), runLog, nil
}

// RunLogPath returns the per-run log file path inside logDir.
func RunLogPath(logDir, runID string) string {
	if strings.TrimSpace(logDir) == "" {
		return ""
	}
	return filepath.Join(logDir, "convert-"+runID+".log")
}

func parseLevel(raw string) (slog.Level, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("log level: unsupported value %q", raw)
	}
	return lvl, nil
}

func openOutputs(outputs []string) (io.Writer, error) {
	seen := make(map[string]struct{}, len(outputs))
	var writers []io.Writer
	for _, out := range outputs {
		out = strings.TrimSpace(out)
		if out == "" {
			continue
		}
		if _, dup := seen[out]; dup {
			continue
		}
		seen[out] = struct{}{}

		switch out {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, fmt.Errorf("log directory for %s: %w", out, err)
			}
			file, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", out, err)
			}
			writers = append(writers, file)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
