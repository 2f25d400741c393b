// Package history persists terminal job outcomes to a SQLite ledger so
// completed and failed runs survive daemon restarts. The in-memory registry
// stays authoritative for live jobs; the ledger is an audit trail.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one finished job. Artifacts maps artifact kind to its archived
// path and is stored as JSON.
type Entry struct {
	ID           int64
	JobID        string
	Category     string
	SourceFile   string
	FinalFile    string
	Status       string
	ErrorMessage string
	Artifacts    map[string]string
	SubmittedAt  time.Time
	CompletedAt  time.Time
}

// Store manages the ledger database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS job_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	category TEXT NOT NULL,
	source_file TEXT,
	final_file TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	artifacts TEXT,
	submitted_at TEXT,
	completed_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_job_history_completed_at ON job_history(completed_at);
`

// Open initializes or connects to the ledger database under dir.
func Open(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, "history.db")
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
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a finished job to the ledger.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	artifacts, err := encodeArtifacts(entry.Artifacts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_history (job_id, category, source_file, final_file, status, error_message, artifacts, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID,
		entry.Category,
		nullableString(entry.SourceFile),
		nullableString(entry.FinalFile),
		entry.Status,
		nullableString(entry.ErrorMessage),
		artifacts,
		nullableTime(entry.SubmittedAt),
		nullableTime(entry.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("record job outcome: %w", err)
	}
	return nil
}

// Recent returns the most recently completed entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, category, source_file, final_file, status, error_message, artifacts, submitted_at, completed_at
		FROM job_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM job_history WHERE completed_at < ?`,
		olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune job history: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry        Entry
		sourceFile   sql.NullString
		finalFile    sql.NullString
		errorMessage sql.NullString
		artifactsRaw sql.NullString
		submittedRaw sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.JobID,
		&entry.Category,
		&sourceFile,
		&finalFile,
		&entry.Status,
		&errorMessage,
		&artifactsRaw,
		&submittedRaw,
		&completedRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.SourceFile = sourceFile.String
	entry.FinalFile = finalFile.String
	entry.ErrorMessage = errorMessage.String
	if artifactsRaw.Valid && artifactsRaw.String != "" {
		if err := json.Unmarshal([]byte(artifactsRaw.String), &entry.Artifacts); err != nil {
			return Entry{}, fmt.Errorf("decode artifacts: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, submittedRaw.String); err == nil {
		entry.SubmittedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, completedRaw.String); err == nil {
		entry.CompletedAt = ts
	}
	return entry, nil
}

func encodeArtifacts(artifacts map[string]string) (any, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(artifacts)
	if err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}
	return string(encoded), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}
