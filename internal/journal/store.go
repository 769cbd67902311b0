package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"asamblea/internal/config"
)

// Kind names the backend operation a record describes.
type Kind string

const (
	KindMeeting  Kind = "meeting"
	KindPhase    Kind = "phase"
	KindGenerate Kind = "generate"
	KindRegister Kind = "register"
	KindRoster   Kind = "roster"
)

// Record is one journaled backend call.
type Record struct {
	ID            int64
	Kind          Kind
	MeetingID     string
	Identifier    string
	OK            bool
	Message       string
	CorrelationID string
	Duration      time.Duration
	CreatedAt     time.Time
}

// DefaultListLimit caps List when callers pass a non-positive limit.
const DefaultListLimit = 50

// Store persists records in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal database under the state directory.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("journal: nil config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.JournalPath())
}

// OpenPath opens the journal at an explicit location.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path reports the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append writes a record and returns its assigned id.
func (s *Store) Append(ctx context.Context, rec Record) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("journal: store not open")
	}
	if strings.TrimSpace(string(rec.Kind)) == "" {
		return 0, errors.New("journal: record kind is required")
	}
	at := rec.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO calls (
            kind, meeting_id, identifier, ok, message, correlation_id, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind),
		nullableString(rec.MeetingID),
		nullableString(rec.Identifier),
		boolToInt(rec.OK),
		nullableString(rec.Message),
		nullableString(rec.CorrelationID),
		rec.Duration.Milliseconds(),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// List returns the newest records first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("journal: store not open")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, meeting_id, identifier, ok, message, correlation_id, duration_ms, created_at
         FROM calls ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

// Prune removes records older than the cutoff and reports how many were dropped.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("journal: store not open")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM calls WHERE created_at < ?", before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec           Record
		kind          string
		meetingID     sql.NullString
		identifier    sql.NullString
		ok            int
		message       sql.NullString
		correlationID sql.NullString
		durationMS    int64
		createdAt     string
	)
	if err := row.Scan(&rec.ID, &kind, &meetingID, &identifier, &ok, &message, &correlationID, &durationMS, &createdAt); err != nil {
		return Record{}, fmt.Errorf("scan journal record: %w", err)
	}
	rec.Kind = Kind(kind)
	rec.MeetingID = meetingID.String
	rec.Identifier = identifier.String
	rec.OK = ok != 0
	rec.Message = message.String
	rec.CorrelationID = correlationID.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
