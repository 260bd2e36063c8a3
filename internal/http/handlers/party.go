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

type PartyHandler struct {
	log *logger.Logger
	svc services.PartyService
}

func NewPartyHandler(log *logger.Logger, svc services.PartyService) *PartyHandler {
	return &PartyHandler{
		log: log.With("handler", "PartyHandler"),
		svc: svc,
	}
}

func (h *PartyHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	p, err := h.svc.GetParty(dbctx.Context{Ctx: c.Request.Context()}, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, p)
}

func (h *PartyHandler) List(c *gin.Context) {
	kind := c.Query("kind")
	if kind == "" {
		kind = domain.PartyKindOrganization
	}
	if kind != domain.PartyKindOrganization && kind != domain.PartyKindPerson {
		response.RespondError(c, http.StatusBadRequest, "unknown_kind", nil)
		return
	}
	rows, err := h.svc.ListByKind(dbctx.Context{Ctx: c.Request.Context()}, kind)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"parties": rows})
}
