// Package config loads, normalizes, validates, and persists shelftags
// configuration data.
//
// It supplies repository defaults (thresholds, the built-in shelf mapping,
// integration timeouts), expands user paths including tilde shortcuts, reads
// and writes TOML files, and honours environment fallbacks such as
// SHELFTAGS_BASE_URL. A Store hands out immutable per-session snapshots and a
// Watcher reloads the file into the Store when it changes on disk.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
