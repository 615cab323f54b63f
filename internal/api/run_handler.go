package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/service"
)

// RunHandler serves the import history
type RunHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(services *service.Services, log zerolog.Logger) *RunHandler {
	return &RunHandler{
		services: services,
		log:      log.With().Str("handler", "import_run").Logger(),
	}
}

// List handles GET /v1/import-runs?limit=N
func (h *RunHandler) List(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	runs, err := h.services.Runs.List(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list import runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list import runs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// Get handles GET /v1/import-runs/:id
func (h *RunHandler) Get(c *gin.Context) {
	id := c.Param("id")

	run, err := h.services.Runs.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get import run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get import run"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "import run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}
