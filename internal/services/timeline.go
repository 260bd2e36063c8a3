package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/audit"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

// TimelineView is the audit trail for one entity plus the summed extraction
// spend recorded along it.
type TimelineView struct {
	EntityType   string                `json:"entity_type"`
	EntityID     uuid.UUID             `json:"entity_id"`
	Interactions []*domain.Interaction `json:"interactions"`
	TotalCostUSD float64               `json:"total_cost_usd"`
}

type TimelineService interface {
	Timeline(dbc dbctx.Context, entityType string, entityID uuid.UUID) (*TimelineView, error)
	Recent(dbc dbctx.Context, limit int) ([]*domain.Interaction, error)
}

type timelineService struct {
	log   *logger.Logger
	audit audit.InteractionRepo
}

func NewTimelineService(log *logger.Logger, auditRepo audit.InteractionRepo) TimelineService {
	return &timelineService{
		log:   log.With("service", "TimelineService"),
		audit: auditRepo,
	}
}

func (s *timelineService) Timeline(dbc dbctx.Context, entityType string, entityID uuid.UUID) (*TimelineView, error) {
	switch entityType {
	case domain.EntityTypeDocument, domain.EntityTypeParty, domain.EntityTypeCommitment:
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}

	rows, err := s.audit.ListByEntity(dbc, entityType, entityID)
	if err != nil {
		return nil, err
	}
	view := &TimelineView{
		EntityType:   entityType,
		EntityID:     entityID,
		Interactions: rows,
	}
	for _, r := range rows {
		view.TotalCostUSD += r.CostUSD
	}
	return view, nil
}

func (s *timelineService) Recent(dbc dbctx.Context, limit int) ([]*domain.Interaction, error) {
	return s.audit.ListRecent(dbc, limit)
}
