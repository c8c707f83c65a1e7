package logging

import (
	"context"
	"log/slog"

	"nwbconv/internal/convert"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized key for the recording session being converted.
	FieldSessionID = "session_id"
	// FieldProbe is the standardized key for probe labels.
	FieldProbe = "probe"
	// FieldRegion is the standardized key for brain region names.
	FieldRegion = "region"
	// FieldRunID is the standardized key for the conversion run identifier.
	FieldRunID = "run_id"
	// FieldArtifact is the standardized key for export artifact paths.
	FieldArtifact = "artifact"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the error classification from convert.Kind.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := convert.SessionFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldSessionID, id))
	}
	if probe, ok := convert.ProbeFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProbe, probe))
	}
	if region, ok := convert.RegionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRegion, region))
	}
	if rid, ok := convert.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
