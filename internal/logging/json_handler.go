package logging

import (
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// jsonTimeLayout keeps millisecond precision so stage timings in a run log
// can be reconstructed.
const jsonTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimeLayout))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
			}
			return attr
		}
	}
	switch attr.Value.Kind() {
	case slog.KindFloat64:
		// encoding/json rejects NaN and Inf, which unit metrics carry for
		// missing values.
		if f := attr.Value.Float64(); math.IsNaN(f) || math.IsInf(f, 0) {
			attr.Value = slog.StringValue(formatFloat(f))
		}
	case slog.KindDuration:
		attr.Value = slog.Float64Value(attr.Value.Duration().Seconds())
		if !strings.HasSuffix(attr.Key, "_s") {
			attr.Key += "_s"
		}
	case slog.KindTime:
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return attr
}
