package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/http/response"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/pipeline"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/services"
)

const maxUploadBytes = 32 << 20

var declaredTypes = map[string]bool{
	"invoice":  true,
	"receipt":  true,
	"contract": true,
}

type DocumentHandler struct {
	log       *logger.Logger
	pipe      *pipeline.Pipeline
	documents services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, pipe *pipeline.Pipeline, documents services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		log:       log.With("handler", "DocumentHandler"),
		pipe:      pipe,
		documents: documents,
	}
}

// Upload accepts one multipart file plus a declared_type form value and runs
// the full pipeline. Duplicates return 200 with the prior graph; new uploads
// return 201.
func (h *DocumentHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}

	declaredType := strings.TrimSpace(c.PostForm("declared_type"))
	if declaredType == "" {
		declaredType = "invoice"
	}
	if !declaredTypes[declaredType] {
		response.RespondError(c, http.StatusBadRequest, "unknown_declared_type", nil)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	if len(data) == 0 {
		response.RespondError(c, http.StatusBadRequest, "empty_file", nil)
		return
	}
	if len(data) > maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", nil)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	graph, err := h.pipe.Process(c.Request.Context(), data, declaredType, mimeType)
	if err != nil {
		respondPipelineError(c, h.log, err)
		return
	}
	if graph.Duplicate {
		response.RespondOK(c, graph)
		return
	}
	response.RespondCreated(c, graph)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	view, err := h.documents.GetDocument(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func respondPipelineError(c *gin.Context, log *logger.Logger, err error) {
	var dup *pipeline.DuplicateInFlightError
	var invalid *pipeline.InvalidExtractionError
	var storage *pipeline.StorageError
	switch {
	case errors.As(err, &dup):
		response.RespondError(c, http.StatusConflict, "duplicate_in_flight", err)
	case errors.As(err, &invalid):
		response.RespondError(c, http.StatusUnprocessableEntity, "invalid_extraction", err)
	case errors.As(err, &storage):
		log.Error("pipeline storage failure", "error", err)
		response.RespondError(c, http.StatusServiceUnavailable, "storage_failure", err)
	default:
		log.Error("pipeline failure", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "pipeline_failure", err)
	}
}

func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrInvalidTransition):
		response.RespondError(c, http.StatusConflict, "invalid_transition", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
