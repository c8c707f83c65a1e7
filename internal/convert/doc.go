// Package convert defines the failure taxonomy and context annotations shared
// by every stage of a session conversion.
//
// Stage code tags failures with one of the exported sentinel markers through
// Wrap so callers can classify them with errors.Is while the message still
// carries the session, probe, and unit identifiers needed to diagnose the
// source data. Context helpers attach the same identifiers to a
// context.Context so logging can pick them up automatically.
package convert
