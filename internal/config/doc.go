// Package config loads, normalizes, and validates subburn configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SUBBURN_MODELS_DIR and HF_TOKEN. Command-line flags are applied on top of
// the loaded values and re-checked through Finalize.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical language codes, and clear validation errors.
package config
