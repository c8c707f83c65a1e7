package preflight

import (
	"context"

	"nwbconv/internal/config"
)

// Result reports the outcome of a single preflight check. Optional results
// never block a conversion.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Output and log directories (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	// Input directory is only read
	if cfg.Paths.InputDir != "" {
		results = append(results, CheckDirectoryReadable("Input directory", cfg.Paths.InputDir, false))
	}

	// Waveform artifacts are optional per probe, so a missing directory only warns
	if cfg.Waveforms.Enabled && cfg.Paths.WaveformDir != "" {
		results = append(results, CheckDirectoryReadable("Waveform directory", cfg.Paths.WaveformDir, true))
	}

	results = append(results, CheckIdentifierCapacity(cfg))
	results = append(results, CheckExportDriver(ctx))

	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
