// Package export persists one converted session as an SQLite artifact and
// reads artifacts back.
//
// Artifacts are written to a temporary file next to the destination and
// published with a rename, so a failed write never leaves a partial file.
// Variable-length columns are stored as ragged pairs in vector_data and
// vector_index; their BLOBs hold little-endian float64 or int64 values.
package export
