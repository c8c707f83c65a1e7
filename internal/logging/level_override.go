package logging

import (
	"context"
	"log/slog"
	"strings"
)

// componentLevelHandler applies a minimum level that switches when a derived
// logger gains a component attribute listed in components. The wrapped
// handler must accept the most verbose level any component needs.
type componentLevelHandler struct {
	next       slog.Handler
	level      slog.Level
	components map[string]slog.Level
}

func newComponentLevelHandler(next slog.Handler, level slog.Level, components map[string]slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &componentLevelHandler{next: next, level: level, components: components}
}

func (h *componentLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.next.Enabled(ctx, level)
}

func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	level := h.level
	for _, attr := range attrs {
		if attr.Key != FieldComponent {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(attr.Value.String()))
		if lvl, ok := h.components[name]; ok {
			level = lvl
		}
	}
	return &componentLevelHandler{next: h.next.WithAttrs(attrs), level: level, components: h.components}
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{next: h.next.WithGroup(name), level: h.level, components: h.components}
}
