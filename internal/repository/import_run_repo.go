package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/wealthdesk/client-import-api/internal/database"
	"github.com/wealthdesk/client-import-api/internal/models"
)

// importRunRepo is the concrete implementation of ImportRunRepository
type importRunRepo struct {
	db *database.DB
}

// NewImportRunRepo creates a new import run repository
func NewImportRunRepo(db *database.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

const importRunColumns = `id, session_id, file_name, total_valid, total_invalid, inserted,
	failed_count, cancelled, errors, duration_ms, rows_per_sec, started_at, completed_at`

// Create inserts a finished import run
func (r *importRunRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (` + importRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.SessionID, run.FileName, run.TotalValid, run.TotalInvalid, run.Inserted,
		run.FailedCount, run.Cancelled, pq.Array(errs), run.DurationMs, run.RowsPerSec,
		run.StartedAt, run.CompletedAt,
	)
	return err
}

// GetByID retrieves an import run by ID
func (r *importRunRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	query := `SELECT ` + importRunColumns + ` FROM import_runs WHERE id = $1`

	run, err := scanImportRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecent returns the most recent runs, newest first
func (r *importRunRepo) ListRecent(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + importRunColumns + ` FROM import_runs ORDER BY completed_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImportRun(row rowScanner) (*models.ImportRun, error) {
	var run models.ImportRun
	err := row.Scan(
		&run.ID, &run.SessionID, &run.FileName, &run.TotalValid, &run.TotalInvalid, &run.Inserted,
		&run.FailedCount, &run.Cancelled, pq.Array(&run.Errors), &run.DurationMs, &run.RowsPerSec,
		&run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
