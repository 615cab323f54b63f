package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/config"
	"github.com/wealthdesk/client-import-api/internal/models"
	"github.com/wealthdesk/client-import-api/internal/service"
)

// SessionHandler handles import session endpoints
type SessionHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import_session").Logger(),
	}
}

// Create handles POST /v1/import-sessions
func (h *SessionHandler) Create(c *gin.Context) {
	snap := h.services.Sessions.Create(c.Request.Context())
	c.JSON(http.StatusCreated, snap)
}

// Get handles GET /v1/import-sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	snap, err := h.services.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Upload handles POST /v1/import-sessions/:id/file (multipart field "file")
func (h *SessionHandler) Upload(c *gin.Context) {
	id := c.Param("id")
	maxSize := h.cfg.Import.MaxUploadSize

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+1024*1024)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	// Validate file size
	if header.Size > maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file too large, max size is %d MB", maxSize/(1024*1024)),
		})
		return
	}

	h.log.Info().
		Str("session_id", id).
		Str("file", header.Filename).
		Int64("size_bytes", header.Size).
		Msg("File received")

	snap, err := h.services.Sessions.Upload(c.Request.Context(), id, service.Upload{
		Filename: header.Filename,
		Body:     file,
	})
	if err != nil {
		h.respondError(c, err, snap)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Confirm handles POST /v1/import-sessions/:id/confirm[?wait=true]
func (h *SessionHandler) Confirm(c *gin.Context) {
	wait, _ := strconv.ParseBool(c.Query("wait"))

	snap, err := h.services.Sessions.Confirm(c.Request.Context(), c.Param("id"), wait)
	if err != nil {
		h.respondError(c, err, snap)
		return
	}

	if wait {
		c.JSON(http.StatusOK, snap)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}

// Cancel handles POST /v1/import-sessions/:id/cancel
func (h *SessionHandler) Cancel(c *gin.Context) {
	snap, err := h.services.Sessions.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Reset handles POST /v1/import-sessions/:id/reset
func (h *SessionHandler) Reset(c *gin.Context) {
	snap, err := h.services.Sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Delete handles DELETE /v1/import-sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.services.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps service errors to status codes; the snapshot, when present,
// lets the client render the state it is in
func (h *SessionHandler) respondError(c *gin.Context, err error, snap *models.Snapshot) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrImportInProgress),
		errors.Is(err, service.ErrResetRequired),
		errors.Is(err, service.ErrNotPreviewing):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidFile),
		errors.Is(err, service.ErrNothingToImport):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("session_id", c.Param("id")).Msg("Session request failed")
	}

	body := gin.H{"error": err.Error()}
	if snap != nil {
		body["session"] = snap
	}
	c.JSON(status, body)
}
