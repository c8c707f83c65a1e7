package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestNewTeeHandlerCollapses(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)

	if _, ok := newTeeHandler(nil, NoopHandler{}).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when no members remain")
	}
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected a single member to be returned unwrapped")
	}
	nested := newTeeHandler(newTeeHandler(inner, inner), inner)
	if got := len(nested.(teeHandler)); got != 3 {
		t.Fatalf("expected nested tees to flatten to 3 members, got %d", got)
	}
}

func TestTeeLoggerRoutesByLevel(t *testing.T) {
	var console, runLog bytes.Buffer
	base := slog.New(slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo}))
	file := slog.NewJSONHandler(&runLog, &slog.HandlerOptions{Level: slog.LevelDebug})

	logger := TeeLogger(base, file).With(String(FieldSessionID, "3"))
	logger.Debug("stage_start", String("stage", "electrodes"))
	logger.Info("session converted")

	if strings.Contains(console.String(), "stage_start") {
		t.Fatalf("console should not receive debug records: %s", console.String())
	}
	if !strings.Contains(console.String(), "session converted") {
		t.Fatalf("console missing info record: %s", console.String())
	}
	for _, want := range []string{"stage_start", "session converted", `"session_id":"3"`} {
		if !strings.Contains(runLog.String(), want) {
			t.Fatalf("run log missing %q: %s", want, runLog.String())
		}
	}
}

func TestTeeHandlerIsolatesMembers(t *testing.T) {
	var first, second bytes.Buffer
	h1 := slog.NewJSONHandler(&first, nil)
	h2 := WithRunID(slog.NewJSONHandler(&second, nil), "run-1")

	slog.New(newTeeHandler(h1, h2)).Info("probe merged")

	if strings.Contains(first.String(), FieldRunID) {
		t.Fatalf("run id leaked into sibling handler: %s", first.String())
	}
	if !strings.Contains(second.String(), `"run_id":"run-1"`) {
		t.Fatalf("expected run id on wrapped handler: %s", second.String())
	}
}

func TestTeeHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	ok := slog.NewJSONHandler(&buf, nil)
	bad := failingHandler{slog.NewJSONHandler(&bytes.Buffer{}, nil)}

	h := newTeeHandler(bad, ok)
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "artifact written", 0)
	err := h.Handle(context.Background(), rec)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected member error, got %v", err)
	}
	if !strings.Contains(buf.String(), "artifact written") {
		t.Fatal("healthy member should still receive the record")
	}
}
