package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/http/response"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/services"
)

type TimelineHandler struct {
	log *logger.Logger
	svc services.TimelineService
}

func NewTimelineHandler(log *logger.Logger, svc services.TimelineService) *TimelineHandler {
	return &TimelineHandler{
		log: log.With("handler", "TimelineHandler"),
		svc: svc,
	}
}

func (h *TimelineHandler) ByEntity(c *gin.Context) {
	entityType := c.Param("entityType")
	switch entityType {
	case domain.EntityTypeDocument, domain.EntityTypeParty, domain.EntityTypeCommitment:
	default:
		response.RespondError(c, http.StatusBadRequest, "unknown_entity_type", nil)
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	view, err := h.svc.Timeline(dbctx.Context{Ctx: c.Request.Context()}, entityType, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func (h *TimelineHandler) Recent(c *gin.Context) {
	rows, err := h.svc.Recent(dbctx.Context{Ctx: c.Request.Context()}, intQuery(c, "limit", 100))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"interactions": rows})
}
