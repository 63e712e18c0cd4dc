// Package config loads, normalizes, and validates artcache configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARTCACHE_API_KEY and ARTCACHE_STORE_URL. The Config type centralizes every
// knob the CLI, the resolver, and the store daemon need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped thresholds, and clear validation errors.
package config
