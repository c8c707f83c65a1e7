// Package logging assembles structured slog loggers and formatting helpers used
// across nwbconv.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with the session, probe, region
// and run being converted. Per-component level overrides from configuration
// are applied when a component logger is derived. A no-op logger is
// available for tests and wiring code that cannot fail.
package logging
