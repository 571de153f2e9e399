// Package logging assembles structured slog loggers and formatting helpers used
// across autocaption.
//
// It owns the console, JSON, and color (tint) handlers, centralizes level and
// output plumbing, and exposes context-aware helpers so pipeline code can tag
// log lines with run IDs, video names, stages, and correlation IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
