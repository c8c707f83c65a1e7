// Package ragged encodes variable-length per-group sequences as one flat
// data vector plus a cumulative boundary index.
//
// Index[i] is the number of elements in groups 0..i, so group i spans
// Data[Index[i-1]:Index[i]] with Index[-1] taken as zero. Empty groups
// appear as repeated index values. Regroup builds the next level of an
// index-of-indices hierarchy from any Array, which is how per-channel
// waveform slices are grouped per unit; it composes to arbitrary depth.
package ragged
