package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

// InteractionRepo is append-only by construction: there is no update or
// delete method.
type InteractionRepo interface {
	Append(dbc dbctx.Context, row *domain.Interaction) error
	ListByEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) ([]*domain.Interaction, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*domain.Interaction, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (r *interactionRepo) Append(dbc dbctx.Context, row *domain.Interaction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.EntityID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *interactionRepo) ListByEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) ([]*domain.Interaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Interaction
	if entityType == "" || entityID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("timestamp asc, id asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) ListRecent(dbc dbctx.Context, limit int) ([]*domain.Interaction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	var out []*domain.Interaction
	if err := t.WithContext(dbc.Ctx).
		Order("timestamp desc, id desc").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
