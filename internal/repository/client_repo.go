package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wealthdesk/client-import-api/internal/database"
	"github.com/wealthdesk/client-import-api/internal/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// clientRepo is the concrete implementation of ClientRepository
type clientRepo struct {
	db *database.DB
}

// NewClientRepo creates a new client repository
func NewClientRepo(db *database.DB) ClientRepository {
	return &clientRepo{db: db}
}

// InsertMany inserts records in one transaction, isolating each row behind a savepoint
// so a rejected record does not abort the rest of the batch
func (r *clientRepo) InsertMany(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error) {
	result := &models.InsertResult{}
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO clients (id, name, primary_email, emails, phone, status,
			street, complement, neighborhood, city, state, zip_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`
	now := time.Now()

	for i, rec := range records {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT client_insert"); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}

		_, err := tx.ExecContext(ctx, query,
			uuid.New().String(), rec.Name, rec.PrimaryEmail(), pq.Array(rec.Emails), rec.Phone, string(rec.Status),
			rec.Address.Street, rec.Address.Complement, rec.Address.Neighborhood,
			rec.Address.City, rec.Address.State, rec.Address.ZipCode, now,
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT client_insert"); rbErr != nil {
				return nil, fmt.Errorf("failed to roll back savepoint: %w", rbErr)
			}
			result.Failures = append(result.Failures, models.InsertFailure{
				Index:   i,
				Message: describeInsertError(err, rec),
			})
			continue
		}

		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT client_insert"); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}
		result.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return result, nil
}

// describeInsertError turns a driver error into a message fit for end users
func describeInsertError(err error, rec *models.ClientImportRecord) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Sprintf("email %s is already registered", rec.PrimaryEmail())
		default:
			return pqErr.Message
		}
	}
	return err.Error()
}

// EmailExists checks if a client with the given primary email exists
func (r *clientRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM clients WHERE LOWER(primary_email) = LOWER($1))", email,
	).Scan(&exists)
	return exists, err
}

// Count returns the total number of clients
func (r *clientRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count)
	return count, err
}

// StreamAll streams all clients for export (memory efficient)
func (r *clientRepo) StreamAll(ctx context.Context, callback func(*models.Client) error) error {
	query := `
		SELECT id, name, emails, phone, status, street, complement, neighborhood,
			city, state, zip_code, created_at, updated_at
		FROM clients ORDER BY name, created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		var status string
		err := rows.Scan(
			&c.ID, &c.Name, pq.Array(&c.Emails), &c.Phone, &status,
			&c.Address.Street, &c.Address.Complement, &c.Address.Neighborhood,
			&c.Address.City, &c.Address.State, &c.Address.ZipCode,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		c.Status = models.ClientStatus(status)

		if err := callback(&c); err != nil {
			return err
		}
	}

	return rows.Err()
}
