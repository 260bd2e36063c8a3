package documents

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type DocumentLinkRepo interface {
	// LinkOnce inserts the edge; duplicates of the full tuple are no-ops.
	LinkOnce(dbc dbctx.Context, link *domain.DocumentLink) error
	GetByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.DocumentLink, error)
	// LinkCountByPartyIDs returns how many documents link to each party.
	// Missing parties map to zero.
	LinkCountByPartyIDs(dbc dbctx.Context, partyIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type documentLinkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentLinkRepo(db *gorm.DB, baseLog *logger.Logger) DocumentLinkRepo {
	return &documentLinkRepo{db: db, log: baseLog.With("repo", "DocumentLinkRepo")}
}

func (r *documentLinkRepo) LinkOnce(dbc dbctx.Context, link *domain.DocumentLink) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if link == nil || link.DocumentID == uuid.Nil || link.EntityID == uuid.Nil {
		return nil
	}
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "document_id"},
				{Name: "entity_type"},
				{Name: "entity_id"},
				{Name: "link_type"},
			},
			DoNothing: true,
		}).
		Create(link).Error
}

func (r *documentLinkRepo) GetByDocumentID(dbc dbctx.Context, documentID uuid.UUID) ([]*domain.DocumentLink, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.DocumentLink
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("document_id = ?", documentID).
		Order("created_at asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *documentLinkRepo) LinkCountByPartyIDs(dbc dbctx.Context, partyIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	counts := make(map[uuid.UUID]int64, len(partyIDs))
	if len(partyIDs) == 0 {
		return counts, nil
	}

	type row struct {
		EntityID uuid.UUID
		N        int64
	}
	var rows []row
	if err := t.WithContext(dbc.Ctx).
		Model(&domain.DocumentLink{}).
		Select("entity_id, count(*) as n").
		Where("entity_type = ? AND entity_id IN ?", domain.EntityTypeParty, partyIDs).
		Group("entity_id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, rr := range rows {
		counts[rr.EntityID] = rr.N
	}
	return counts, nil
}
