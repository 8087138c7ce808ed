// Package config loads, normalizes, and validates importer configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MBIMPORT_STORE_DSN. The Config type centralizes every knob the CLI needs:
// the working directory layout, the store connection settings, and the
// batching and concurrency parameters of a load.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical store kinds, and clear validation errors.
package config
