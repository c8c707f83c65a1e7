package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler writes one headline per record:
//
//	2026-01-02 15:04:05 INFO [session] Session 3 · probe1 · CA1: units joined
//	    units=5 single_units=1
//
// Warnings and errors put error_hint and impact on labelled lines. Debug
// records list one field per line and keep the run id.
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// subject is the session/probe/region context pulled out of the fields.
type subject struct {
	component string
	session   string
	probe     string
	region    string
	hint      string
	impact    string
}

func (s subject) String() string {
	parts := make([]string, 0, 3)
	if s.session != "" {
		parts = append(parts, "Session "+s.session)
	}
	if s.probe != "" {
		parts = append(parts, s.probe)
	}
	if s.region != "" {
		parts = append(parts, s.region)
	}
	return strings.Join(parts, " · ")
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	verbose := record.Level < slog.LevelInfo
	subj, fields := h.split(record, verbose)

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(fields)*24)
	buf.WriteString(formatTimestamp(timestamp))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if subj.component != "" {
		buf.WriteString(" [" + subj.component + "]")
	}
	if s := subj.String(); s != "" {
		buf.WriteString(" " + s + ":")
	}
	buf.WriteString(" " + message)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" (" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + ")")
		}
	}
	buf.WriteByte('\n')

	switch {
	case verbose:
		for _, f := range fields {
			buf.WriteString("    " + f.key + ": " + formatValue(f.value) + "\n")
		}
	case len(fields) > 0:
		buf.WriteString("   ")
		for _, f := range fields {
			buf.WriteString(" " + f.key + "=" + formatValue(f.value))
		}
		buf.WriteByte('\n')
	}
	if subj.hint != "" {
		buf.WriteString("    hint: " + subj.hint + "\n")
	}
	if subj.impact != "" {
		buf.WriteString("    impact: " + subj.impact + "\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// split separates subject fields from the rest. The run id is only shown
// in verbose output; artifacts are shortened to their file name otherwise.
func (h *prettyHandler) split(record slog.Record, verbose bool) (subject, []kv) {
	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	var s subject
	fields := kvs[:0]
	for _, f := range kvs {
		switch f.key {
		case FieldComponent:
			s.component = strings.TrimSpace(attrString(f.value))
		case FieldSessionID:
			s.session = strings.TrimSpace(attrString(f.value))
		case FieldProbe:
			s.probe = strings.TrimSpace(attrString(f.value))
		case FieldRegion:
			s.region = strings.TrimSpace(attrString(f.value))
		case FieldErrorHint:
			if record.Level >= slog.LevelWarn {
				s.hint = attrString(f.value)
			} else {
				fields = append(fields, f)
			}
		case FieldImpact:
			if record.Level >= slog.LevelWarn {
				s.impact = attrString(f.value)
			} else {
				fields = append(fields, f)
			}
		case FieldRunID:
			if verbose {
				fields = append(fields, f)
			}
		case FieldArtifact:
			if !verbose {
				f.value = slog.StringValue(filepath.Base(attrString(f.value)))
			}
			fields = append(fields, f)
		default:
			fields = append(fields, f)
		}
	}
	return s, fields
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string{}, prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(prefix, ".") + "." + key
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
