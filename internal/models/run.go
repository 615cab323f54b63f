package models

import (
	"time"
)

// ImportRun is the persisted record of a finished commit
type ImportRun struct {
	ID           string    `json:"run_id" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	FileName     string    `json:"file_name" db:"file_name"`
	TotalValid   int       `json:"total_valid" db:"total_valid"`
	TotalInvalid int       `json:"total_invalid" db:"total_invalid"`
	Inserted     int       `json:"inserted" db:"inserted"`
	FailedCount  int       `json:"failed" db:"failed_count"`
	Cancelled    bool      `json:"cancelled" db:"cancelled"`
	Errors       []string  `json:"errors,omitempty" db:"errors"`
	DurationMs   int64     `json:"duration_ms" db:"duration_ms"`
	RowsPerSec   float64   `json:"rows_per_sec,omitempty" db:"rows_per_sec"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	CompletedAt  time.Time `json:"completed_at" db:"completed_at"`
}
