// Package config loads, normalizes, and validates flowcat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FLOWCAT_ANALYZER_API_KEY. The Config type centralizes every knob the import
// pipeline and CLI need, allowing data directories, intake limits, and
// analyzer credentials to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
