package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id             string
		sessionID      sql.NullString
		createdRaw     string
		finishedRaw    sql.NullString
		debug          int64
		language       string
		imageName      sql.NullString
		candidatesJSON string
		countsJSON     string
		identifyError  sql.NullString
		errorKind      sql.NullString
		lookupError    sql.NullString
		rawResponse    sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&sessionID,
		&createdRaw,
		&finishedRaw,
		&debug,
		&language,
		&imageName,
		&candidatesJSON,
		&countsJSON,
		&identifyError,
		&errorKind,
		&lookupError,
		&rawResponse,
	); err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}

	rec := &Record{
		ID:            id,
		SessionID:     sessionID.String,
		Debug:         debug != 0,
		Language:      language,
		ImageName:     imageName.String,
		IdentifyError: identifyError.String,
		ErrorKind:     errorKind.String,
		LookupError:   lookupError.String,
	}
	if rawResponse.Valid && rawResponse.String != "" {
		rec.RawResponse = json.RawMessage(rawResponse.String)
	}
	rec.CreatedAt = parseTime(createdRaw)
	if finishedRaw.Valid {
		rec.FinishedAt = parseTime(finishedRaw.String)
	}
	if err := json.Unmarshal([]byte(candidatesJSON), &rec.Candidates); err != nil {
		return nil, fmt.Errorf("decode candidates for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &rec.ArticleCounts); err != nil {
		return nil, fmt.Errorf("decode article counts for %s: %w", id, err)
	}
	return rec, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
