// Package logging assembles structured slog loggers and formatting helpers used
// across the asamblea console.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so console code can tag log lines
// with meeting, member, and scan-session identifiers. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
