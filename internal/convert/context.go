package convert

import "context"

type contextKey string

const (
	sessionKey contextKey = "session_id"
	probeKey   contextKey = "probe"
	regionKey  contextKey = "region"
	runIDKey   contextKey = "run_id"
)

// WithSession annotates context with the recording session identifier.
func WithSession(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// SessionFromContext extracts the session identifier if present.
func SessionFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(sessionKey).(int)
	return v, ok
}

// WithProbe annotates context with the probe label being processed.
func WithProbe(ctx context.Context, probe string) context.Context {
	if probe == "" {
		return ctx
	}
	return context.WithValue(ctx, probeKey, probe)
}

// ProbeFromContext returns the probe label if present.
func ProbeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(probeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRegion annotates context with the brain region being processed.
func WithRegion(ctx context.Context, region string) context.Context {
	if region == "" {
		return ctx
	}
	return context.WithValue(ctx, regionKey, region)
}

// RegionFromContext returns the region name if present.
func RegionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(regionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the conversion run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
