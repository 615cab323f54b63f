package mocks

import (
	"context"
	"io"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/tabular"
)

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	Clients     []*models.Client
	Count       int
	CountError  error
	ExportError error
	// ExportCalls records the format of every ExportClients call
	ExportCalls []tabular.Format
}

func NewMockExportService() *MockExportService {
	return &MockExportService{}
}

func (m *MockExportService) ExportClients(ctx context.Context, w io.Writer, format tabular.Format) (int, error) {
	m.ExportCalls = append(m.ExportCalls, format)
	if m.ExportError != nil {
		return 0, m.ExportError
	}
	return len(m.Clients), tabular.Encode(m.Clients).Write(w, format)
}

func (m *MockExportService) WriteTemplate(w io.Writer, format tabular.Format) error {
	return tabular.EncodeTemplate().Write(w, format)
}

func (m *MockExportService) GetCount(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return m.Count, nil
}
