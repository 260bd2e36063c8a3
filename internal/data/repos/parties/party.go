package parties

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type PartyRepo interface {
	Create(dbc dbctx.Context, party *domain.Party) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Party, error)
	GetByTaxID(dbc dbctx.Context, taxID string) (*domain.Party, error)
	GetByNormalizedName(dbc dbctx.Context, kind, normalizedName string) (*domain.Party, error)
	ListByKind(dbc dbctx.Context, kind string) ([]*domain.Party, error)
	// EnrichContact fills contact fields the row is missing. Identity fields
	// are never touched here.
	EnrichContact(dbc dbctx.Context, id uuid.UUID, address, email, phone *string) error
	FlagForMergeReview(dbc dbctx.Context, id uuid.UUID) error
}

type partyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPartyRepo(db *gorm.DB, baseLog *logger.Logger) PartyRepo {
	return &partyRepo{db: db, log: baseLog.With("repo", "PartyRepo")}
}

func (r *partyRepo) Create(dbc dbctx.Context, party *domain.Party) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if party.ID == uuid.Nil {
		party.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(party).Error
}

func (r *partyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Party, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out domain.Party
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *partyRepo) GetByTaxID(dbc dbctx.Context, taxID string) (*domain.Party, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if taxID == "" {
		return nil, nil
	}
	var out domain.Party
	err := t.WithContext(dbc.Ctx).Where("tax_id = ?", taxID).First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *partyRepo) GetByNormalizedName(dbc dbctx.Context, kind, normalizedName string) (*domain.Party, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if kind == "" || normalizedName == "" {
		return nil, nil
	}
	var out domain.Party
	err := t.WithContext(dbc.Ctx).
		Where("kind = ? AND normalized_name = ?", kind, normalizedName).
		First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *partyRepo) ListByKind(dbc dbctx.Context, kind string) ([]*domain.Party, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Party
	if err := t.WithContext(dbc.Ctx).
		Where("kind = ?", kind).
		Order("id asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *partyRepo) EnrichContact(dbc dbctx.Context, id uuid.UUID, address, email, phone *string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{}
	if address != nil && *address != "" {
		updates["address"] = gorm.Expr("COALESCE(address, ?)", *address)
	}
	if email != nil && *email != "" {
		updates["email"] = gorm.Expr("COALESCE(email, ?)", *email)
	}
	if phone != nil && *phone != "" {
		updates["phone"] = gorm.Expr("COALESCE(phone, ?)", *phone)
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return t.WithContext(dbc.Ctx).
		Model(&domain.Party{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *partyRepo) FlagForMergeReview(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Party{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"needs_merge_review": true,
			"updated_at":         time.Now().UTC(),
		}).Error
}
