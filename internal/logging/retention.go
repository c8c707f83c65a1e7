package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget selects run logs to prune: files in Dir whose name matches
// Pattern, except the paths in Exclude (normally the current run's log).
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs removes matching files last modified more than
// retentionDays ago and returns how many were removed. Zero or negative
// retention keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, target := range targets {
		for _, path := range target.expired(cutoff) {
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
					String("path", path),
					Error(err),
					String(FieldErrorHint, "check file permissions and log_dir ownership"),
					String(FieldImpact, "old run log remains on disk"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("run log pruned", String("path", path), String(FieldEventType, "log_pruned"))
			}
		}
	}
	if removed > 0 && logger != nil {
		logger.Info("old run logs pruned",
			Int("removed", removed),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_retention"),
		)
	}
	return removed
}

func (t RetentionTarget) expired(cutoff time.Time) []string {
	dir := strings.TrimSpace(t.Dir)
	if dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(t.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}
	skip := make(map[string]struct{}, len(t.Exclude))
	for _, p := range t.Exclude {
		if abs := absPath(p); abs != "" {
			skip[abs] = struct{}{}
		}
	}

	var out []string
	for _, m := range matches {
		path := absPath(m)
		if _, excluded := skip[path]; excluded {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		out = append(out, path)
	}
	return out
}

func absPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
