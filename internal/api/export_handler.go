package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/client-import-api/internal/service"
	"github.com/wealthdesk/client-import-api/internal/tabular"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// parseFormat reads ?format=, defaulting to xlsx
func parseFormat(c *gin.Context) (tabular.Format, bool) {
	switch format := tabular.Format(c.DefaultQuery("format", string(tabular.FormatXLSX))); format {
	case tabular.FormatCSV, tabular.FormatXLSX:
		return format, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: xlsx, csv"})
		return "", false
	}
}

func setAttachment(c *gin.Context, base string, format tabular.Format) {
	c.Header("Content-Type", tabular.ContentType(format))
	c.Header("Content-Disposition", "attachment; filename="+tabular.Filename(base, format))
}

// ExportClients handles GET /v1/exports/clients?format=xlsx|csv
func (h *ExportHandler) ExportClients(c *gin.Context) {
	format, ok := parseFormat(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// xlsx is buffered so a database failure can still be reported as JSON
	if format == tabular.FormatXLSX {
		var buf bytes.Buffer
		count, err := h.services.Export.ExportClients(ctx, &buf, format)
		if err != nil {
			h.log.Error().Err(err).Msg("Export failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export clients"})
			return
		}
		setAttachment(c, "clientes", format)
		c.Header("X-Total-Count", strconv.Itoa(count))
		c.Data(http.StatusOK, tabular.ContentType(format), buf.Bytes())
		return
	}

	setAttachment(c, "clientes", format)
	c.Status(http.StatusOK)
	if _, err := h.services.Export.ExportClients(ctx, c.Writer, format); err != nil {
		h.log.Error().Err(err).Msg("Export failed")
		// Can't return error JSON after streaming has started
		return
	}
}

// Template handles GET /v1/exports/template?format=xlsx|csv
func (h *ExportHandler) Template(c *gin.Context) {
	format, ok := parseFormat(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.services.Export.WriteTemplate(&buf, format); err != nil {
		h.log.Error().Err(err).Msg("Template generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build template"})
		return
	}

	setAttachment(c, "modelo_importacao_clientes", format)
	c.Data(http.StatusOK, tabular.ContentType(format), buf.Bytes())
}
