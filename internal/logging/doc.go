// Package logging assembles structured slog loggers and formatting helpers used
// across artcache components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so resolver code can tag log
// lines with request correlation IDs. The package also provides a no-op logger
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same field keys.
package logging
