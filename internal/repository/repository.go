package repository

import (
	"context"

	"github.com/wealthdesk/client-import-api/internal/database"
	"github.com/wealthdesk/client-import-api/internal/models"
)

// ClientRepository defines the interface for client data operations
type ClientRepository interface {
	// InsertMany stores the records and reports which of them were rejected.
	// Rejections are per record; an error means nothing from this call was stored.
	InsertMany(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Client) error) error
}

// ImportRunRepository defines the interface for import run history
type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.ImportRun, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Client    ClientRepository
	ImportRun ImportRunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Client:    NewClientRepo(db),
		ImportRun: NewImportRunRepo(db),
	}
}
