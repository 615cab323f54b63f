package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/config"
	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
)

// ErrSessionNotFound is returned for unknown or evicted session IDs
var ErrSessionNotFound = errors.New("import session not found")

// sessionService is the concrete implementation of SessionService
type sessionService struct {
	repos   *repository.Repositories
	cfg     config.ImportConfig
	log     zerolog.Logger
	decode  DecodeFunc
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	mu       sync.RWMutex
	sessions map[string]*Orchestrator
	// Semaphore: buffered channel bounding concurrent background commits
	sem chan struct{}
}

// newSessionService creates a SessionService with a commit pool sized from config
func newSessionService(repos *repository.Repositories, cfg config.ImportConfig, log zerolog.Logger) *sessionService {
	maxCommits := cfg.MaxConcurrentCommits
	if maxCommits < 1 {
		maxCommits = 1
	}

	log.Info().Int("max_concurrent_commits", maxCommits).Msg("Initializing import session service")

	ctx, cancel := context.WithCancel(context.Background())
	return &sessionService{
		repos:    repos,
		cfg:      cfg,
		log:      log.With().Str("component", "import_sessions").Logger(),
		decode:   DecodeUpload,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Orchestrator),
		sem:      make(chan struct{}, maxCommits),
	}
}

// Create registers a new idle session
func (s *sessionService) Create(ctx context.Context) *models.Snapshot {
	orch := NewOrchestrator(OrchestratorConfig{
		SessionID: uuid.New().String(),
		Clients:   s.repos.Client,
		Runs:      s.repos.ImportRun,
		Decode:    s.decode,
		ChunkSize: s.cfg.ChunkSize,
		Log:       s.log,
	})

	s.mu.Lock()
	s.sessions[orch.ID()] = orch
	s.mu.Unlock()

	s.log.Info().Str("session_id", orch.ID()).Msg("Import session created")
	return orch.Snapshot()
}

func (s *sessionService) get(id string) (*Orchestrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orch, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return orch, nil
}

// Get returns the current snapshot of a session
func (s *sessionService) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	orch, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return orch.Snapshot(), nil
}

// Upload parses and validates a file for the session
func (s *sessionService) Upload(ctx context.Context, id string, up Upload) (*models.Snapshot, error) {
	orch, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := orch.HandleFileSelected(ctx, up); err != nil {
		return orch.Snapshot(), err
	}
	return orch.Snapshot(), nil
}

// Confirm starts the commit. With wait set the call blocks until the import is done;
// otherwise the commit runs on the background pool and the importing snapshot is returned.
func (s *sessionService) Confirm(ctx context.Context, id string, wait bool) (*models.Snapshot, error) {
	orch, err := s.get(id)
	if err != nil {
		return nil, err
	}

	commit, err := orch.BeginImport()
	if err != nil {
		return orch.Snapshot(), err
	}

	if wait {
		commitCtx, cancel := s.commitContext(ctx)
		defer cancel()
		commit(commitCtx)
		return orch.Snapshot(), nil
	}

	snap := orch.Snapshot()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Acquire a commit slot - blocks while the pool is full.
		// On shutdown the commit still runs so the session reaches done,
		// it sees the cancelled context before its first chunk.
		select {
		case s.sem <- struct{}{}:
			defer func() { <-s.sem }()
		case <-s.ctx.Done():
		}

		commitCtx, cancel := s.commitContext(s.ctx)
		defer cancel()
		commit(commitCtx)
	}()

	return snap, nil
}

func (s *sessionService) commitContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CommitTimeout > 0 {
		return context.WithTimeout(parent, s.cfg.CommitTimeout)
	}
	return context.WithCancel(parent)
}

// Cancel stops a running commit after its current chunk, or discards a preview
func (s *sessionService) Cancel(ctx context.Context, id string) (*models.Snapshot, error) {
	orch, err := s.get(id)
	if err != nil {
		return nil, err
	}
	orch.Cancel()
	return orch.Snapshot(), nil
}

// Reset returns the session to idle
func (s *sessionService) Reset(ctx context.Context, id string) (*models.Snapshot, error) {
	orch, err := s.get(id)
	if err != nil {
		return nil, err
	}
	orch.Reset()
	return orch.Snapshot(), nil
}

// Delete resets and forgets a session
func (s *sessionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	orch, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	orch.Reset()
	s.log.Info().Str("session_id", id).Msg("Import session deleted")
	return nil
}

// ActiveCount returns the number of live sessions
func (s *sessionService) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper evicts idle sessions until ctx is done or Stop is called
func (s *sessionService) StartSweeper(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s.log.Info().Dur("interval", interval).Dur("ttl", s.cfg.SessionTTL).Msg("Session sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Session sweeper stopping")
			return
		case <-s.ctx.Done():
			s.log.Info().Msg("Session sweeper stopping")
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep removes sessions idle for longer than the TTL. Busy sessions are kept.
func (s *sessionService) sweep(now time.Time) int {
	if s.cfg.SessionTTL <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, orch := range s.sessions {
		if orch.Busy() {
			continue
		}
		if now.Sub(orch.IdleSince()) > s.cfg.SessionTTL {
			delete(s.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.log.Info().Int("evicted", evicted).Int("remaining", len(s.sessions)).Msg("Evicted idle import sessions")
	}
	return evicted
}

// Stop cancels background commits and waits for them to record their results
func (s *sessionService) Stop() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.log.Info().Msg("Import session service stopped")
}
