// Package history persists per-attempt metadata in SQLite. Only metadata is
// stored; recorded media bytes never touch the database.
package history

import "time"

// Attempt outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeEmpty     = "empty"
)

// Attempt is one Start-to-Stopped (or Failed) lifecycle of a session.
type Attempt struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Outcome   string
	Error     string
	Bytes     int64
	Segments  int
	Container string
	Filename  string
}
