// Package config loads, normalizes, and validates autocaption configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENROUTER_API_KEY and AUTOCAPTION_INDEX_DSN. The Config type centralizes
// the extraction policy, export toggles, and model credentials so the CLI
// resolves them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
