// Package main hosts the nwbconv CLI entrypoint and command graph.
//
// The Cobra-based command tree converts recording containers into session
// export artifacts, inspects finished artifacts, re-encodes containers
// between backends, runs readiness checks, and scaffolds configuration. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
