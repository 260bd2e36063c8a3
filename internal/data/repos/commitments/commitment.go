package commitments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

// Filter narrows ListCommitments. Zero values mean "no restriction".
type Filter struct {
	State       string
	Domain      string
	PartyID     uuid.UUID
	DueBefore   *time.Time
	MinPriority int
	Limit       int
	Offset      int
}

type CommitmentRepo interface {
	Create(dbc dbctx.Context, c *domain.Commitment) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Commitment, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	List(dbc dbctx.Context, f Filter) ([]*domain.Commitment, error)
	// ActiveBlockers returns the blockers among ids that are not yet
	// fulfilled or canceled.
	ActiveBlockers(dbc dbctx.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	// ListBlockedBy returns the commitments whose blocked_by_id is id.
	ListBlockedBy(dbc dbctx.Context, id uuid.UUID) ([]*domain.Commitment, error)
}

type commitmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommitmentRepo(db *gorm.DB, baseLog *logger.Logger) CommitmentRepo {
	return &commitmentRepo{db: db, log: baseLog.With("repo", "CommitmentRepo")}
}

func (r *commitmentRepo) Create(dbc dbctx.Context, c *domain.Commitment) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.State == "" {
		c.State = domain.CommitmentStateActive
	}
	return t.WithContext(dbc.Ctx).Create(c).Error
}

func (r *commitmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Commitment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out domain.Commitment
	err := t.WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *commitmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Commitment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *commitmentRepo) List(dbc dbctx.Context, f Filter) ([]*domain.Commitment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).Model(&domain.Commitment{})
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.Domain != "" {
		q = q.Where("domain = ?", f.Domain)
	}
	if f.PartyID != uuid.Nil {
		q = q.Where("party_id = ?", f.PartyID)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date IS NOT NULL AND due_date < ?", *f.DueBefore)
	}
	if f.MinPriority > 0 {
		q = q.Where("priority >= ?", f.MinPriority)
	}
	q = q.Order("priority desc, due_date asc NULLS LAST, id asc")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*domain.Commitment
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commitmentRepo) ListBlockedBy(dbc dbctx.Context, id uuid.UUID) ([]*domain.Commitment, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Commitment
	if err := t.WithContext(dbc.Ctx).
		Where("blocked_by_id = ?", id).
		Order("id asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *commitmentRepo) ActiveBlockers(dbc dbctx.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []uuid.UUID
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&domain.Commitment{}).
		Where("id IN ? AND state IN ?", ids, []string{domain.CommitmentStateActive, domain.CommitmentStatePaused}).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
