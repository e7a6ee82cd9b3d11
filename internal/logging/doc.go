// Package logging assembles structured slog loggers and attribute helpers used
// across plantscope.
//
// It owns the console (tint) and JSON handlers, the optional JSON log file tee,
// and context-aware helpers that tag log lines with session and correlation
// IDs. The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
