package parties

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type RoleRepo interface {
	Create(dbc dbctx.Context, role *domain.Role) error
	GetByContext(dbc dbctx.Context, contextType string, contextID uuid.UUID) ([]*domain.Role, error)
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return &roleRepo{db: db, log: baseLog.With("repo", "RoleRepo")}
}

func (r *roleRepo) Create(dbc dbctx.Context, role *domain.Role) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if role == nil || role.PartyID == uuid.Nil {
		return nil
	}
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(role).Error
}

func (r *roleRepo) GetByContext(dbc dbctx.Context, contextType string, contextID uuid.UUID) ([]*domain.Role, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Role
	if contextType == "" || contextID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("context_type = ? AND context_id = ?", contextType, contextID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
