package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
)

var (
	_ repository.ClientRepository    = (*MockClientRepository)(nil)
	_ repository.ImportRunRepository = (*MockImportRunRepository)(nil)
)

// MockClientRepository is an in-memory ClientRepository.
// By default it rejects records whose primary email is already stored.
type MockClientRepository struct {
	mu             sync.Mutex
	Clients        []*models.Client
	InsertError    error
	StreamError    error
	InsertManyFunc func(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error)
	// Calls holds the records of every InsertMany call, in call order
	Calls [][]*models.ClientImportRecord
}

func NewMockClientRepository() *MockClientRepository {
	return &MockClientRepository{}
}

func (m *MockClientRepository) InsertMany(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, records)
	fn := m.InsertManyFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, records)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertError != nil {
		return nil, m.InsertError
	}

	result := &models.InsertResult{}
	for i, rec := range records {
		if m.emailExistsLocked(rec.PrimaryEmail()) {
			result.Failures = append(result.Failures, models.InsertFailure{
				Index:   i,
				Message: fmt.Sprintf("email %s is already registered", rec.PrimaryEmail()),
			})
			continue
		}
		now := time.Now()
		m.Clients = append(m.Clients, &models.Client{
			ID:        uuid.New().String(),
			Name:      rec.Name,
			Emails:    append([]string(nil), rec.Emails...),
			Phone:     rec.Phone,
			Status:    rec.Status,
			Address:   rec.Address,
			CreatedAt: now,
			UpdatedAt: now,
		})
		result.Inserted++
	}
	return result, nil
}

func (m *MockClientRepository) emailExistsLocked(email string) bool {
	for _, c := range m.Clients {
		if len(c.Emails) > 0 && strings.EqualFold(c.Emails[0], email) {
			return true
		}
	}
	return false
}

func (m *MockClientRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emailExistsLocked(email), nil
}

func (m *MockClientRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Clients), nil
}

func (m *MockClientRepository) StreamAll(ctx context.Context, callback func(*models.Client) error) error {
	m.mu.Lock()
	clients := append([]*models.Client(nil), m.Clients...)
	streamErr := m.StreamError
	m.mu.Unlock()

	for _, c := range clients {
		if err := callback(c); err != nil {
			return err
		}
	}
	return streamErr
}

// CallCount returns the number of InsertMany calls so far
func (m *MockClientRepository) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockImportRunRepository is an in-memory ImportRunRepository
type MockImportRunRepository struct {
	mu          sync.Mutex
	Runs        []*models.ImportRun
	CreateError error
}

func NewMockImportRunRepository() *MockImportRunRepository {
	return &MockImportRunRepository{}
}

func (m *MockImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Runs = append(m.Runs, run)
	return nil
}

func (m *MockImportRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.Runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, nil
}

// ListRecent returns runs newest first
func (m *MockImportRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make([]*models.ImportRun, 0, len(m.Runs))
	for i := len(m.Runs) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, m.Runs[i])
	}
	return runs, nil
}

// RunCount returns the number of recorded runs
func (m *MockImportRunRepository) RunCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Runs)
}
