// Package logs reads back the JSON log file written by internal/logging.
//
// Tail returns the last N lines or everything after a byte offset, optionally
// waiting for new lines so the CLI can follow the file. ParseEntry decodes one
// line into an Entry, and Filter narrows entries to one identification session,
// component or minimum level.
package logs
