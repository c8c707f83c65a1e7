package logging

import (
	"context"
	"log/slog"
)

// runIDHandler tags every record with the conversion run id unless a
// derived logger already carries one.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

// WithRunID wraps base so every record carries runID.
func WithRunID(base slog.Handler, runID string) slog.Handler {
	if base == nil {
		return NoopHandler{}
	}
	if runID == "" {
		return base
	}
	return &runIDHandler{base: base, runID: runID}
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	tagged := false
	record.Attrs(func(a slog.Attr) bool {
		tagged = a.Key == FieldRunID
		return !tagged
	})
	if !tagged {
		record.AddAttrs(slog.String(FieldRunID, h.runID))
	}
	return h.base.Handle(ctx, record)
}

// WithAttrs drops the wrapper once the attributes supply their own run id,
// so session loggers derived from a context never log it twice.
func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if HasAttrKey(attrs, FieldRunID) {
		return h.base.WithAttrs(attrs)
	}
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}
