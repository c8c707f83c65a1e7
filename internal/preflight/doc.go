// Package preflight provides readiness checks for the filesystem paths and
// settings nwbconv depends on.
//
// The CLI "nwbconv check" command prints every result; "nwbconv convert"
// runs the same checks first and refuses to start a batch when a required
// check fails, so a misconfigured output directory is reported once rather
// than once per session.
package preflight
