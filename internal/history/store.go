package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"plantscope/internal/config"
	"plantscope/internal/services"
	"plantscope/internal/services/plantid"
	"plantscope/internal/session"
)

// timeLayout is fixed width so text ordering of created_at matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, session_id, created_at, finished_at, debug, language, image_name, candidates_json, article_counts_json, identify_error, error_kind, lookup_error, raw_response"

// Store manages attempt persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ session.Recorder = (*Store)(nil)

// Open opens the history database configured in cfg.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return OpenPath(cfg.History.Path)
}

// OpenPath opens or creates the history database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record implements session.Recorder.
func (s *Store) Record(ctx context.Context, attempt session.Attempt) error {
	rec := Record{
		ID:          uuid.NewString(),
		SessionID:   attempt.SessionID,
		CreatedAt:   attempt.StartedAt,
		FinishedAt:  attempt.FinishedAt,
		Debug:       attempt.Debug,
		Language:    attempt.Language,
		ImageName:   attempt.ImageName,
		Candidates:  attempt.Candidates,
		RawResponse: attempt.RawResponse,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.ArticleCounts = make([]int, 0, len(attempt.Articles))
	for _, list := range attempt.Articles {
		rec.ArticleCounts = append(rec.ArticleCounts, len(list))
	}
	if attempt.IdentifyErr != nil {
		rec.IdentifyError = attempt.IdentifyErr.Error()
		rec.ErrorKind = services.Kind(attempt.IdentifyErr)
	}
	if attempt.LookupErr != nil {
		rec.LookupError = attempt.LookupErr.Error()
		if rec.ErrorKind == "" {
			rec.ErrorKind = services.Kind(attempt.LookupErr)
		}
	}
	_, err := s.Insert(ctx, rec)
	return err
}

// Insert stores rec, assigning an ID when it has none.
func (s *Store) Insert(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.Candidates == nil {
		rec.Candidates = []plantid.Candidate{}
	}
	if rec.ArticleCounts == nil {
		rec.ArticleCounts = []int{}
	}
	candidatesJSON, err := json.Marshal(rec.Candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}
	countsJSON, err := json.Marshal(rec.ArticleCounts)
	if err != nil {
		return nil, fmt.Errorf("marshal article counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		nullableString(rec.SessionID),
		formatTime(rec.CreatedAt),
		nullableTime(rec.FinishedAt),
		boolToInt(rec.Debug),
		rec.Language,
		nullableString(rec.ImageName),
		string(candidatesJSON),
		string(countsJSON),
		nullableString(rec.IdentifyError),
		nullableString(rec.ErrorKind),
		nullableString(rec.LookupError),
		nullableString(string(rec.RawResponse)),
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}
	return &rec, nil
}

// Get fetches one record by ID or ID prefix. It returns nil when nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM attempts WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC, created_at DESC LIMIT 2`,
		id, id+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	defer rows.Close()

	var matches []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	switch {
	case len(matches) == 0:
		return nil, nil
	case matches[0].ID == id || len(matches) == 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("attempt id prefix %q is ambiguous", id)
	}
}

// List returns the most recent records first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attempts ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM attempts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// Clear deletes every record and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts`)
	if err != nil {
		return 0, fmt.Errorf("clear attempts: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes records created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return res.RowsAffected()
}
