package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"plantscope/internal/logging"
)

// Entry is one decoded JSON log line.
type Entry struct {
	Time      time.Time      `json:"ts"`
	Level     slog.Level     `json:"-"`
	LevelName string         `json:"level"`
	Message   string         `json:"msg"`
	Component string         `json:"component,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	EventType string         `json:"event_type,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

var reservedKeys = map[string]struct{}{
	"ts":                   {},
	"level":                {},
	"msg":                  {},
	logging.FieldComponent: {},
	logging.FieldSessionID: {},
	logging.FieldEventType: {},
}

// ParseEntry decodes a line written by the JSON log handler. Lines that are
// not JSON objects report false.
func ParseEntry(line string) (Entry, bool) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		LevelName: stringField(fields, "level"),
		Message:   stringField(fields, "msg"),
		Component: stringField(fields, logging.FieldComponent),
		SessionID: stringField(fields, logging.FieldSessionID),
		EventType: stringField(fields, logging.FieldEventType),
	}
	entry.Level = logging.ParseLevel(entry.LevelName)
	if ts := stringField(fields, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = parsed
		}
	}
	for key, value := range fields {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		if entry.Attrs == nil {
			entry.Attrs = map[string]any{}
		}
		entry.Attrs[key] = value
	}
	return entry, true
}

func stringField(fields map[string]any, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	// SessionID matches by prefix so short IDs from history work.
	SessionID string
	Component string
	MinLevel  slog.Level
}

// Match reports whether entry passes the filter.
func (f Filter) Match(entry Entry) bool {
	if f.SessionID != "" && !strings.HasPrefix(entry.SessionID, f.SessionID) {
		return false
	}
	if f.Component != "" && entry.Component != f.Component {
		return false
	}
	return entry.Level >= f.MinLevel
}

// Format renders entry as a single console line.
func Format(entry Entry) string {
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(entry.LevelName))
	if entry.Component != "" {
		fmt.Fprintf(&b, " [%s]", entry.Component)
	}
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	if entry.SessionID != "" {
		fmt.Fprintf(&b, " %s=%s", logging.FieldSessionID, entry.SessionID)
	}
	for _, key := range slices.Sorted(maps.Keys(entry.Attrs)) {
		fmt.Fprintf(&b, " %s=%v", key, entry.Attrs[key])
	}
	return b.String()
}
