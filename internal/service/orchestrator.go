package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/repository"
	"github.com/wealthdesk/client-import-api/internal/tabular"
	"github.com/wealthdesk/client-import-api/internal/validation"
)

var (
	// ErrImportInProgress is returned when a parse or commit is already running
	ErrImportInProgress = errors.New("an import is already in progress")
	// ErrResetRequired is returned when a finished or failed session receives a new file
	ErrResetRequired = errors.New("session must be reset before uploading another file")
	// ErrNothingToImport is returned when confirming a preview without valid rows
	ErrNothingToImport = errors.New("there are no valid rows to import")
	// ErrNotPreviewing is returned when confirming without a preview
	ErrNotPreviewing = errors.New("no preview is awaiting confirmation")
	// ErrInvalidFile wraps structural decode failures
	ErrInvalidFile = errors.New("invalid file")
)

// DefaultChunkSize is the number of records per InsertMany call when none is configured
const DefaultChunkSize = 50

// Upload is a file selected by the user
type Upload struct {
	Filename string
	Body     io.Reader
}

// DecodeFunc turns an uploaded file into raw rows
type DecodeFunc func(r io.Reader, filename string) ([]models.RawRow, error)

// DecodeUpload picks the codec from the file extension
func DecodeUpload(r io.Reader, filename string) ([]models.RawRow, error) {
	format, err := tabular.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	return tabular.Decode(r, format)
}

// CommitFunc runs a confirmed import to completion
type CommitFunc func(ctx context.Context) *models.ImportResult

// OrchestratorConfig holds the collaborators of an Orchestrator
type OrchestratorConfig struct {
	SessionID string
	Clients   repository.ClientRepository
	Runs      repository.ImportRunRepository // optional
	Decode    DecodeFunc                     // defaults to DecodeUpload
	ChunkSize int
	Log       zerolog.Logger
}

// Orchestrator drives one import session through
// idle -> parsing -> previewing -> importing -> done, with error and reset branches
type Orchestrator struct {
	id        string
	clients   repository.ClientRepository
	runs      repository.ImportRunRepository
	decode    DecodeFunc
	chunkSize int
	log       zerolog.Logger

	mu           sync.Mutex
	state        models.PipelineState
	fileName     string
	validation   *models.ValidationResult
	result       *models.ImportResult
	errorMessage string
	progress     int
	cancelled    bool
	lastActivity time.Time
	// generation changes on every reset or new upload; work started under
	// an older generation must not publish its outcome
	generation uint64
}

// NewOrchestrator creates an orchestrator in the idle state
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	if cfg.Decode == nil {
		cfg.Decode = DecodeUpload
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &Orchestrator{
		id:           cfg.SessionID,
		clients:      cfg.Clients,
		runs:         cfg.Runs,
		decode:       cfg.Decode,
		chunkSize:    cfg.ChunkSize,
		log:          cfg.Log.With().Str("session_id", cfg.SessionID).Logger(),
		state:        models.StateIdle,
		lastActivity: time.Now(),
	}
}

// ID returns the session identifier
func (o *Orchestrator) ID() string {
	return o.id
}

// HandleFileSelected decodes and validates an upload, moving to previewing or error
func (o *Orchestrator) HandleFileSelected(ctx context.Context, up Upload) error {
	o.mu.Lock()
	switch state := o.state; state {
	case models.StateParsing, models.StateImporting:
		o.mu.Unlock()
		o.log.Warn().Str("state", string(state)).Msg("Upload rejected while busy")
		return ErrImportInProgress
	case models.StateDone, models.StateError:
		o.mu.Unlock()
		return ErrResetRequired
	}
	o.generation++
	gen := o.generation
	o.state = models.StateParsing
	o.fileName = up.Filename
	o.validation = nil
	o.result = nil
	o.errorMessage = ""
	o.progress = 0
	o.lastActivity = time.Now()
	o.mu.Unlock()

	started := time.Now()
	rows, err := o.decode(up.Body, up.Filename)
	var result models.ValidationResult
	if err == nil {
		result = validation.ValidateRows(rows)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		o.log.Info().Str("file", up.Filename).Msg("Session reset during parsing, discarding result")
		return nil
	}
	o.lastActivity = time.Now()

	if err != nil {
		o.state = models.StateError
		o.errorMessage = fmt.Sprintf("Could not read %s: %v", up.Filename, err)
		o.log.Warn().Err(err).Str("file", up.Filename).Msg("Upload could not be decoded")
		return fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	o.state = models.StatePreviewing
	o.validation = &result

	o.log.Info().
		Str("file", up.Filename).
		Int("rows", result.TotalRows()).
		Int("valid", len(result.Valid)).
		Int("invalid", len(result.Invalid)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", time.Since(started)).
		Msg("Upload validated")

	return nil
}

// ConfirmImport commits the previewed valid rows and blocks until done
func (o *Orchestrator) ConfirmImport(ctx context.Context) (*models.ImportResult, error) {
	commit, err := o.BeginImport()
	if err != nil {
		return nil, err
	}
	return commit(ctx), nil
}

// BeginImport moves a preview with valid rows to importing and returns the commit to run.
// The valid rows are read at call time, so a re-upload before confirmation is honored.
func (o *Orchestrator) BeginImport() (CommitFunc, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case models.StatePreviewing:
	case models.StateParsing, models.StateImporting:
		return nil, ErrImportInProgress
	default:
		return nil, ErrNotPreviewing
	}
	if o.validation == nil || len(o.validation.Valid) == 0 {
		return nil, ErrNothingToImport
	}

	valid := o.validation.Valid
	totalInvalid := len(o.validation.Invalid)
	fileName := o.fileName
	gen := o.generation
	o.state = models.StateImporting
	o.progress = 0
	o.cancelled = false
	o.lastActivity = time.Now()

	return func(ctx context.Context) *models.ImportResult {
		return o.commit(ctx, gen, fileName, valid, totalInvalid)
	}, nil
}

// commit inserts the records chunk by chunk. Each chunk's outcome is fully recorded
// before the next one is issued.
func (o *Orchestrator) commit(ctx context.Context, gen uint64, fileName string, valid []*models.ClientImportRecord, totalInvalid int) (result *models.ImportResult) {
	started := time.Now()
	result = &models.ImportResult{
		Errors:       []string{},
		TotalValid:   len(valid),
		TotalInvalid: totalInvalid,
	}

	o.log.Info().Int("records", len(valid)).Int("chunk_size", o.chunkSize).Msg("Starting import commit")

	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("Import commit panicked - recovered")
			result.Errors = append(result.Errors, "Import stopped by an internal error; rows not listed as inserted were not saved.")
		}
		o.finish(gen, result)
		o.recordRun(ctx, fileName, result, started)
	}()

	for start := 0; start < len(valid); start += o.chunkSize {
		if o.stopRequested(gen) {
			result.Cancelled = true
			break
		}
		if ctx.Err() != nil {
			result.Cancelled = true
			result.Errors = append(result.Errors, fmt.Sprintf("Import interrupted: %v", ctx.Err()))
			break
		}

		end := start + o.chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		chunk := valid[start:end]

		res, err := o.clients.InsertMany(ctx, chunk)
		if err != nil {
			o.log.Error().Err(err).Int("chunk_size", len(chunk)).Msg("Chunk insert failed")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rowRange(chunk), err))
		} else {
			result.Inserted += res.Inserted
			for _, f := range res.Failures {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", failureRow(chunk, f.Index), f.Message))
			}
		}

		o.setProgress(gen, end*100/len(valid))

		o.log.Debug().
			Int("processed", end).
			Int("inserted", result.Inserted).
			Int("errors", len(result.Errors)).
			Msg("Chunk processed")
	}

	return result
}

// finish publishes the result unless the session was reset meanwhile
func (o *Orchestrator) finish(gen uint64, result *models.ImportResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.generation != gen {
		o.log.Info().Int("inserted", result.Inserted).Msg("Session reset during import, result discarded")
		return
	}
	if o.cancelled {
		result.Cancelled = true
	}
	o.state = models.StateDone
	o.result = result
	if !result.Cancelled {
		o.progress = 100
	}
	// committed records leave pipeline memory; counts remain in the result
	if o.validation != nil {
		o.validation.Valid = nil
	}
	o.lastActivity = time.Now()

	o.log.Info().
		Int("inserted", result.Inserted).
		Int("total_valid", result.TotalValid).
		Int("errors", len(result.Errors)).
		Bool("cancelled", result.Cancelled).
		Msg("Import finished")
}

// recordRun stores the import history entry; failures are logged only
func (o *Orchestrator) recordRun(ctx context.Context, fileName string, result *models.ImportResult, started time.Time) {
	if o.runs == nil {
		return
	}

	completed := time.Now()
	duration := completed.Sub(started)
	run := &models.ImportRun{
		ID:           uuid.New().String(),
		SessionID:    o.id,
		FileName:     fileName,
		TotalValid:   result.TotalValid,
		TotalInvalid: result.TotalInvalid,
		Inserted:     result.Inserted,
		FailedCount:  result.TotalValid - result.Inserted,
		Cancelled:    result.Cancelled,
		Errors:       result.Errors,
		DurationMs:   duration.Milliseconds(),
		StartedAt:    started,
		CompletedAt:  completed,
	}
	if duration.Seconds() > 0 {
		run.RowsPerSec = float64(result.Inserted) / duration.Seconds()
	}

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.runs.Create(saveCtx, run); err != nil {
		o.log.Error().Err(err).Msg("Failed to record import run")
	}
}

func (o *Orchestrator) stopRequested(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generation != gen || o.cancelled
}

func (o *Orchestrator) setProgress(gen uint64, pct int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation == gen {
		o.progress = pct
		o.lastActivity = time.Now()
	}
}

// Cancel stops a running import after the current chunk, or discards a preview.
// Rows already committed stay committed.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case models.StateImporting:
		o.cancelled = true
		o.log.Info().Msg("Import cancellation requested")
	case models.StatePreviewing:
		o.resetLocked()
	}
	o.lastActivity = time.Now()
}

// Reset returns to idle from any state, discarding rows, results and errors
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resetLocked()
}

func (o *Orchestrator) resetLocked() {
	o.generation++
	o.state = models.StateIdle
	o.fileName = ""
	o.validation = nil
	o.result = nil
	o.errorMessage = ""
	o.progress = 0
	o.cancelled = false
	o.lastActivity = time.Now()
}

// State returns the current pipeline state
func (o *Orchestrator) State() models.PipelineState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a parse or commit is running
func (o *Orchestrator) Busy() bool {
	state := o.State()
	return state == models.StateParsing || state == models.StateImporting
}

// IdleSince returns the time of the last state change or user action
func (o *Orchestrator) IdleSince() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastActivity
}

// Snapshot returns a copy of the observable state
func (o *Orchestrator) Snapshot() *models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := &models.Snapshot{
		SessionID:    o.id,
		State:        o.state,
		FileName:     o.fileName,
		ErrorMessage: o.errorMessage,
		Progress:     o.progress,
	}
	if o.validation != nil {
		snap.Validation = &models.ValidationSummary{
			ValidCount:   len(o.validation.Valid),
			InvalidCount: len(o.validation.Invalid),
			Valid:        append([]*models.ClientImportRecord(nil), o.validation.Valid...),
			Invalid:      append([]models.RowError{}, o.validation.Invalid...),
			Warnings:     append([]string{}, o.validation.Warnings...),
		}
		if o.result != nil {
			snap.Validation.ValidCount = o.result.TotalValid
		}
	}
	if o.result != nil {
		result := *o.result
		result.Errors = append([]string{}, o.result.Errors...)
		snap.ImportResult = &result
	}
	return snap
}

func rowRange(chunk []*models.ClientImportRecord) string {
	first, last := chunk[0].SourceRow, chunk[len(chunk)-1].SourceRow
	if first == last {
		return fmt.Sprintf("Row %d", first)
	}
	return fmt.Sprintf("Rows %d-%d", first, last)
}

func failureRow(chunk []*models.ClientImportRecord, index int) string {
	if index < 0 || index >= len(chunk) {
		return "Unknown row"
	}
	return fmt.Sprintf("Row %d", chunk[index].SourceRow)
}
