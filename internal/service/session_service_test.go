package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wealthdesk/client-import-api/internal/config"
	"github.com/wealthdesk/client-import-api/internal/mocks"
	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
	"github.com/wealthdesk/client-import-api/internal/tabular"
)

func newTestSessions(clients *mocks.MockClientRepository, runs *mocks.MockImportRunRepository) *sessionService {
	repos := &repository.Repositories{Client: clients}
	if runs != nil {
		repos.ImportRun = runs
	}
	return newSessionService(repos, config.ImportConfig{
		ChunkSize:            2,
		SessionTTL:           time.Minute,
		SweepInterval:        time.Hour,
		MaxConcurrentCommits: 2,
		CommitTimeout:        time.Minute,
	}, zerolog.Nop())
}

func sampleUpload() Upload {
	return Upload{
		Filename: "clientes.csv",
		Body: strings.NewReader("Nome;E-mail\n" +
			"Ana;ana@exemplo.com\n" +
			"Bruno;bruno@exemplo.com\n" +
			"Carla;carla@exemplo.com\n"),
	}
}

func waitForState(t *testing.T, s *sessionService, id string, want models.PipelineState) *models.Snapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session %s never reached %s", id, want)
	return nil
}

func TestSessionService_Lifecycle(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	runs := mocks.NewMockImportRunRepository()
	s := newTestSessions(clients, runs)
	defer s.Stop()
	ctx := context.Background()

	created := s.Create(ctx)
	assert.Equal(t, models.StateIdle, created.State)
	assert.NotEmpty(t, created.SessionID)
	assert.Equal(t, 1, s.ActiveCount())

	snap, err := s.Upload(ctx, created.SessionID, sampleUpload())
	require.NoError(t, err)
	assert.Equal(t, models.StatePreviewing, snap.State)
	assert.Equal(t, 3, snap.Validation.ValidCount)

	snap, err = s.Confirm(ctx, created.SessionID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateDone, snap.State)
	assert.Equal(t, 3, snap.ImportResult.Inserted)
	assert.Len(t, clients.Calls, 2, "chunk size comes from config")
	assert.Equal(t, 1, runs.RunCount())

	snap, err = s.Reset(ctx, created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.StateIdle, snap.State)

	require.NoError(t, s.Delete(ctx, created.SessionID))
	_, err = s.Get(ctx, created.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, created.SessionID), ErrSessionNotFound)
}

func TestSessionService_ConfirmInBackground(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	s := newTestSessions(clients, mocks.NewMockImportRunRepository())
	defer s.Stop()
	ctx := context.Background()

	id := s.Create(ctx).SessionID
	_, err := s.Upload(ctx, id, sampleUpload())
	require.NoError(t, err)

	snap, err := s.Confirm(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, models.StateImporting, snap.State)

	done := waitForState(t, s, id, models.StateDone)
	assert.Equal(t, 3, done.ImportResult.Inserted)
	assert.Equal(t, 100, done.Progress)
}

func TestSessionService_ConfirmGuards(t *testing.T) {
	s := newTestSessions(mocks.NewMockClientRepository(), nil)
	defer s.Stop()
	ctx := context.Background()

	_, err := s.Confirm(ctx, "missing", false)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	id := s.Create(ctx).SessionID
	snap, err := s.Confirm(ctx, id, false)
	assert.ErrorIs(t, err, ErrNotPreviewing)
	assert.Equal(t, models.StateIdle, snap.State)
}

func TestSessionService_UploadError(t *testing.T) {
	s := newTestSessions(mocks.NewMockClientRepository(), nil)
	defer s.Stop()
	ctx := context.Background()

	id := s.Create(ctx).SessionID
	snap, err := s.Upload(ctx, id, Upload{Filename: "vazio.csv", Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, tabular.ErrNoHeader)
	assert.Equal(t, models.StateError, snap.State)
	assert.NotEmpty(t, snap.ErrorMessage)
}

func TestSessionService_Sweep(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	clients.InsertManyFunc = func(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return &models.InsertResult{Inserted: len(records)}, nil
	}
	s := newTestSessions(clients, nil)
	defer s.Stop()
	ctx := context.Background()

	idle := s.Create(ctx).SessionID
	busy := s.Create(ctx).SessionID
	_, err := s.Upload(ctx, busy, sampleUpload())
	require.NoError(t, err)
	_, err = s.Confirm(ctx, busy, false)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("commit never started")
	}

	evicted := s.sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, evicted)

	_, err = s.Get(ctx, idle)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(ctx, busy)
	assert.NoError(t, err, "busy sessions survive the sweep")

	close(release)
	waitForState(t, s, busy, models.StateDone)

	assert.Equal(t, 0, s.sweep(time.Now()))
}

func TestSessionService_StopDrainsCommits(t *testing.T) {
	clients := mocks.NewMockClientRepository()
	release := make(chan struct{})
	clients.InsertManyFunc = func(ctx context.Context, records []*models.ClientImportRecord) (*models.InsertResult, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &models.InsertResult{Inserted: len(records)}, nil
	}
	s := newTestSessions(clients, nil)
	ctx := context.Background()

	id := s.Create(ctx).SessionID
	_, err := s.Upload(ctx, id, sampleUpload())
	require.NoError(t, err)
	_, err = s.Confirm(ctx, id, false)
	require.NoError(t, err)

	s.Stop()

	snap, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateDone, snap.State)
	assert.Equal(t, 0, snap.ImportResult.Inserted)
	assert.NotEmpty(t, snap.ImportResult.Errors)
}

func TestSessionService_StartSweeperStopsWithContext(t *testing.T) {
	s := newTestSessions(mocks.NewMockClientRepository(), nil)
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		s.StartSweeper(ctx)
		close(finished)
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
