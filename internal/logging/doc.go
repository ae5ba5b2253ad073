// Package logging assembles structured slog loggers and formatting helpers used
// across the dubbing pipeline.
//
// It owns the console/JSON handlers, centralizes level and output plumbing
// (including size-based rotation for file outputs), and exposes context-aware
// helpers so stage code automatically tags log lines with job IDs, stage names,
// and segment indexes. A no-op logger is provided for tests and wiring code
// that cannot fail.
package logging
