package service

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
	"github.com/wealthdesk/client-import-api/internal/tabular"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("component", "export").Logger(),
	}
}

// ExportClients writes every stored client in the given format and returns the row count
func (s *exportService) ExportClients(ctx context.Context, w io.Writer, format tabular.Format) (int, error) {
	start := time.Now()
	s.log.Info().Str("format", string(format)).Msg("Starting clients export")

	var (
		count int
		err   error
	)
	switch format {
	case tabular.FormatCSV:
		count, err = s.streamClientsCSV(ctx, w)
	case tabular.FormatXLSX:
		count, err = s.writeClientsXLSX(ctx, w)
	default:
		return 0, tabular.ErrUnsupportedFormat
	}
	if err != nil {
		s.log.Error().Err(err).Int("count", count).Msg("Clients export failed")
		return count, err
	}

	s.log.Info().Int("count", count).Dur("duration", time.Since(start)).Msg("Clients export completed")
	return count, nil
}

// streamClientsCSV writes rows as they come out of the database
func (s *exportService) streamClientsCSV(ctx context.Context, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(models.ClientColumns); err != nil {
		return 0, err
	}

	count := 0
	err := s.repos.Client.StreamAll(ctx, func(c *models.Client) error {
		if err := writer.Write(tabular.ClientRow(c)); err != nil {
			return err
		}
		count++
		// Flush every 100 records for streaming
		if count%100 == 0 {
			writer.Flush()
			return writer.Error()
		}
		return nil
	})
	return count, err
}

// writeClientsXLSX buffers the workbook since xlsx is a zip container
func (s *exportService) writeClientsXLSX(ctx context.Context, w io.Writer) (int, error) {
	var clients []*models.Client
	err := s.repos.Client.StreamAll(ctx, func(c *models.Client) error {
		clients = append(clients, c)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(clients), tabular.Encode(clients).Write(w, tabular.FormatXLSX)
}

// WriteTemplate writes the blank import template with one example row
func (s *exportService) WriteTemplate(w io.Writer, format tabular.Format) error {
	return tabular.EncodeTemplate().Write(w, format)
}

// GetCount returns the number of stored clients
func (s *exportService) GetCount(ctx context.Context) (int, error) {
	return s.repos.Client.Count(ctx)
}
