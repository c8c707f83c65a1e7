// Package identifier synthesizes session-unique integer identifiers for
// recording channels and sorted units.
//
// An identifier is the decimal concatenation of the session id, a one-digit
// probe number, and the local channel index or cluster id zero-padded to a
// fixed width. Values that do not fit are rejected rather than silently
// producing a duplicate, and Registry guards against repeats within a
// session.
package identifier
