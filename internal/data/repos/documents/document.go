package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type DocumentRepo interface {
	// CreateIfAbsent inserts doc keyed by digest. When another row already
	// holds the digest the insert is a no-op and the existing row is
	// returned with created=false.
	CreateIfAbsent(dbc dbctx.Context, doc *domain.Document) (*domain.Document, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error)
	GetByDigest(dbc dbctx.Context, digest string) (*domain.Document, error)
	// AttachExtraction records extraction output exactly once; a second call
	// for the same document is a no-op returning attached=false.
	AttachExtraction(dbc dbctx.Context, id uuid.UUID, fields datatypes.JSON, modelID string, costUSD float64, durationMs int64) (bool, error)
	ListUnprocessed(dbc dbctx.Context, limit int) ([]*domain.Document, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) CreateIfAbsent(dbc dbctx.Context, doc *domain.Document) (*domain.Document, bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}

	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "digest"}},
			DoNothing: true,
		}).
		Create(doc)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return doc, true, nil
	}

	existing, err := r.GetByDigest(dbc, doc.Digest)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out domain.Document
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) GetByDigest(dbc dbctx.Context, digest string) (*domain.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out domain.Document
	err := t.WithContext(dbc.Ctx).Where("digest = ?", digest).First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentRepo) AttachExtraction(dbc dbctx.Context, id uuid.UUID, fields datatypes.JSON, modelID string, costUSD float64, durationMs int64) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&domain.Document{}).
		Where("id = ? AND extracted_at IS NULL", id).
		Updates(map[string]interface{}{
			"extracted_fields":       fields,
			"extraction_model_id":    modelID,
			"extraction_cost_usd":    costUSD,
			"extraction_duration_ms": durationMs,
			"extracted_at":           now,
			"updated_at":             now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *documentRepo) ListUnprocessed(dbc dbctx.Context, limit int) ([]*domain.Document, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Document
	q := t.WithContext(dbc.Ctx).
		Where("extracted_at IS NULL").
		Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
