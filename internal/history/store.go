package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides read-write access to the attempt history database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".screencap", "history.sqlite")
}

// Open opens (and if needed creates) the database with WAL journaling.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS attempts (
			id TEXT PRIMARY KEY,
			startedAt REAL NOT NULL,
			endedAt REAL NOT NULL,
			durationMs INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			bytes INTEGER NOT NULL DEFAULT 0,
			segments INTEGER NOT NULL DEFAULT 0,
			container TEXT NOT NULL DEFAULT '',
			filename TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create attempts table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAttempt inserts one finished attempt.
func (s *Store) RecordAttempt(a Attempt) error {
	_, err := s.db.Exec(`
		INSERT INTO attempts (id, startedAt, endedAt, durationMs, outcome, error, bytes, segments, container, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, timeToUnix(a.StartedAt), timeToUnix(a.EndedAt), a.Duration.Milliseconds(),
		a.Outcome, a.Error, a.Bytes, a.Segments, a.Container, a.Filename)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Recent returns the most recent attempts, newest first.
func (s *Store) Recent(limit int) ([]Attempt, error) {
	rows, err := s.db.Query(`
		SELECT id, startedAt, endedAt, durationMs, outcome, error, bytes, segments, container, filename
		FROM attempts
		ORDER BY endedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var startedAt, endedAt float64
		var durationMs int64
		if err := rows.Scan(&a.ID, &startedAt, &endedAt, &durationMs, &a.Outcome,
			&a.Error, &a.Bytes, &a.Segments, &a.Container, &a.Filename); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.StartedAt = timeFromUnix(startedAt)
		a.EndedAt = timeFromUnix(endedAt)
		a.Duration = time.Duration(durationMs) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func timeToUnix(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
