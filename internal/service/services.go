package service

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/config"
	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
	"github.com/wealthdesk/client-import-api/internal/tabular"
)

// SessionService manages import sessions, one Orchestrator each
type SessionService interface {
	Create(ctx context.Context) *models.Snapshot
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	Upload(ctx context.Context, id string, up Upload) (*models.Snapshot, error)
	Confirm(ctx context.Context, id string, wait bool) (*models.Snapshot, error)
	Cancel(ctx context.Context, id string) (*models.Snapshot, error)
	Reset(ctx context.Context, id string) (*models.Snapshot, error)
	Delete(ctx context.Context, id string) error
	ActiveCount() int
	StartSweeper(ctx context.Context)
	Stop()
}

// ExportService defines the interface for export operations
type ExportService interface {
	ExportClients(ctx context.Context, w io.Writer, format tabular.Format) (int, error)
	WriteTemplate(w io.Writer, format tabular.Format) error
	GetCount(ctx context.Context) (int, error)
}

// RunService exposes the history of finished imports
type RunService interface {
	List(ctx context.Context, limit int) ([]*models.ImportRun, error)
	Get(ctx context.Context, id string) (*models.ImportRun, error)
}

// Services holds all service interfaces
type Services struct {
	Sessions SessionService
	Export   ExportService
	Runs     RunService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	return &Services{
		Sessions: newSessionService(repos, cfg.Import, log),
		Export:   newExportService(repos, log),
		Runs:     &runService{runs: repos.ImportRun},
	}
}

type runService struct {
	runs repository.ImportRunRepository
}

// maxRunsPage caps a single history listing
const maxRunsPage = 100

func (s *runService) List(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	if limit <= 0 || limit > maxRunsPage {
		limit = maxRunsPage
	}
	return s.runs.ListRecent(ctx, limit)
}

// Get returns nil without error when the run does not exist
func (s *runService) Get(ctx context.Context, id string) (*models.ImportRun, error) {
	return s.runs.GetByID(ctx, id)
}
