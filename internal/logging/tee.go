package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler writes each record to every member that accepts its level. The
// console and the per-run log file are the usual pair.
type teeHandler []slog.Handler

func newTeeHandler(handlers ...slog.Handler) slog.Handler {
	var members teeHandler
	for _, h := range handlers {
		switch h := h.(type) {
		case nil, NoopHandler:
		case teeHandler:
			members = append(members, h...)
		default:
			members = append(members, h)
		}
	}
	switch len(members) {
	case 0:
		return NoopHandler{}
	case 1:
		return members[0]
	}
	return members
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle gives each member its own clone so handlers that add attributes
// never see each other's additions. A failing member does not stop the rest.
func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}

// TeeLogger returns a logger writing to base and every extra handler. A nil
// base is allowed.
func TeeLogger(base *slog.Logger, extra ...slog.Handler) *slog.Logger {
	handlers := make([]slog.Handler, 0, len(extra)+1)
	if base != nil {
		handlers = append(handlers, base.Handler())
	}
	return slog.New(newTeeHandler(append(handlers, extra...)...))
}
