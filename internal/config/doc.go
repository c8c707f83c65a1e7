// Package config loads, normalizes, and validates nwbconv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// NWBCONV_OUTPUT_DIR. Beyond paths and logging, the Config carries the export
// schema conventions: probe geometry, the canonical region order and its
// region-to-probe mapping, identifier padding widths, and the column layout
// of per-unit metadata matrices. Changing any of these changes the exported
// data, so they live here as named values rather than literals in stage code.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
