package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no transcript has the requested id.
var ErrNotFound = errors.New("transcript not found")

const defaultLimit = 10

const schema = `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		durationMs INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL,
		createdAt REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS transcripts_createdAt ON transcripts(createdAt);
`

// Store provides access to the transcript archive.
type Store struct {
	db *sql.DB
}

// Open opens the database read-write with WAL, creating the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTranscript inserts t, assigning an id and timestamp when missing.
func (s *Store) SaveTranscript(ctx context.Context, t Transcript) (Transcript, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, text, durationMs, language, createdAt)
		VALUES (?, ?, ?, ?, ?)
	`, t.ID, t.Text, t.Duration.Milliseconds(), t.Language, unixFromTime(t.CreatedAt))
	if err != nil {
		return Transcript{}, fmt.Errorf("insert transcript: %w", err)
	}
	return t, nil
}

// ListTranscripts returns one page of transcripts, newest first.
func (s *Store) ListTranscripts(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count transcripts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, durationMs, language, createdAt
		FROM transcripts
		ORDER BY createdAt DESC
		LIMIT ? OFFSET ?
	`, limit, (page-1)*limit)
	if err != nil {
		return Page{}, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	out := Page{Page: page, Limit: limit, Total: total, Pages: (total + limit - 1) / limit}
	for rows.Next() {
		t, err := scanTranscript(rows)
		if err != nil {
			return Page{}, err
		}
		out.Transcripts = append(out.Transcripts, t)
	}
	return out, rows.Err()
}

// GetTranscript returns the transcript with id.
func (s *Store) GetTranscript(ctx context.Context, id string) (Transcript, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, durationMs, language, createdAt
		FROM transcripts
		WHERE id = ?
	`, id)
	t, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Transcript{}, ErrNotFound
	}
	return t, err
}

// DeleteTranscript removes the transcript with id.
func (s *Store) DeleteTranscript(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTranscript(sc scanner) (Transcript, error) {
	var t Transcript
	var durationMs int64
	var createdAt float64
	if err := sc.Scan(&t.ID, &t.Text, &durationMs, &t.Language, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transcript{}, err
		}
		return Transcript{}, fmt.Errorf("scan transcript: %w", err)
	}
	t.Duration = time.Duration(durationMs) * time.Millisecond
	t.CreatedAt = timeFromUnix(createdAt)
	return t, nil
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
