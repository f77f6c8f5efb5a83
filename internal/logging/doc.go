// Package logging assembles the structured slog loggers used by the vidtrack
// daemon, CLI, and pipeline stages.
//
// It owns the console and JSON handlers, level parsing, per-stage level
// overrides, and log retention. Context helpers tag log lines with the job
// identifier, stage, worker slot, and request correlation id carried on a
// context.Context.
package logging
