// Package session runs the per-session conversion pipeline: electrode table,
// region aggregation, unit join, spike trains, waveforms, behavioural masks
// and export. Each stage is logged with stage_start and stage_complete
// events; any failure aborts the session and leaves no artifact behind.
package session
