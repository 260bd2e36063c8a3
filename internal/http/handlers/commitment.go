package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/commitments"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/http/response"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/services"
)

type CommitmentHandler struct {
	log *logger.Logger
	svc services.CommitmentService
}

func NewCommitmentHandler(log *logger.Logger, svc services.CommitmentService) *CommitmentHandler {
	return &CommitmentHandler{
		log: log.With("handler", "CommitmentHandler"),
		svc: svc,
	}
}

func (h *CommitmentHandler) List(c *gin.Context) {
	f := commitments.Filter{
		State:  c.Query("state"),
		Domain: c.Query("domain"),
	}
	if raw := c.Query("party_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_party_id", err)
			return
		}
		f.PartyID = id
	}
	if raw := c.Query("due_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_due_before", err)
			return
		}
		f.DueBefore = &t
	}
	if raw := c.Query("min_priority"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_min_priority", err)
			return
		}
		f.MinPriority = n
	}
	f.Limit = intQuery(c, "limit", 100)
	f.Offset = intQuery(c, "offset", 0)

	rows, err := h.svc.List(dbctx.Context{Ctx: c.Request.Context()}, f)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"commitments": rows})
}

func (h *CommitmentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	row, err := h.svc.Get(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, row)
}

func (h *CommitmentHandler) Fulfill(c *gin.Context) {
	h.transition(c, h.svc.Fulfill)
}

func (h *CommitmentHandler) Pause(c *gin.Context) {
	h.transition(c, h.svc.Pause)
}

func (h *CommitmentHandler) Resume(c *gin.Context) {
	h.transition(c, h.svc.Resume)
}

func (h *CommitmentHandler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

func (h *CommitmentHandler) Patch(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var patch services.CommitmentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_patch", err)
		return
	}
	row, err := h.svc.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, row)
}

func (h *CommitmentHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*domain.Commitment, error)) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	row, err := fn(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, row)
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
