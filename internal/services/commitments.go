package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/audit"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/commitments"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/priority"
)

// CommitmentPatch carries partial updates. Nil pointers leave fields alone;
// the Clear flags null a field out explicitly.
type CommitmentPatch struct {
	Title          *string    `json:"title,omitempty"`
	Domain         *string    `json:"domain,omitempty"`
	CommitmentType *string    `json:"commitment_type,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ClearDueDate   bool       `json:"clear_due_date,omitempty"`
	AmountUSD      *float64   `json:"amount_usd,omitempty"`
	EstimatedHours *float64   `json:"estimated_hours,omitempty"`
	BlockedByID    *uuid.UUID `json:"blocked_by_id,omitempty"`
	ClearBlockedBy bool       `json:"clear_blocked_by,omitempty"`
	UserBoost      *bool      `json:"user_boost,omitempty"`
}

type CommitmentService interface {
	Get(dbc dbctx.Context, id uuid.UUID) (*domain.Commitment, error)
	List(dbc dbctx.Context, f commitments.Filter) ([]*domain.Commitment, error)
	// Fulfill is idempotent: fulfilling a fulfilled commitment succeeds
	// without a second audit row.
	Fulfill(ctx context.Context, id uuid.UUID) (*domain.Commitment, error)
	Pause(ctx context.Context, id uuid.UUID) (*domain.Commitment, error)
	Resume(ctx context.Context, id uuid.UUID) (*domain.Commitment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Commitment, error)
	// Update applies the patch and re-scores when any priority input changed.
	Update(ctx context.Context, id uuid.UUID, patch CommitmentPatch) (*domain.Commitment, error)
}

type commitmentService struct {
	db      *gorm.DB
	log     *logger.Logger
	commits commitments.CommitmentRepo
	audit   audit.InteractionRepo
}

func NewCommitmentService(db *gorm.DB, log *logger.Logger, commitRepo commitments.CommitmentRepo, auditRepo audit.InteractionRepo) CommitmentService {
	return &commitmentService{
		db:      db,
		log:     log.With("service", "CommitmentService"),
		commits: commitRepo,
		audit:   auditRepo,
	}
}

func (s *commitmentService) Get(dbc dbctx.Context, id uuid.UUID) (*domain.Commitment, error) {
	c, err := s.commits.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("commitment %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *commitmentService) List(dbc dbctx.Context, f commitments.Filter) ([]*domain.Commitment, error) {
	return s.commits.List(dbc, f)
}

func (s *commitmentService) Fulfill(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	return s.transition(ctx, id, domain.CommitmentStateFulfilled)
}

func (s *commitmentService) Pause(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	return s.transition(ctx, id, domain.CommitmentStatePaused)
}

func (s *commitmentService) Resume(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	return s.transition(ctx, id, domain.CommitmentStateActive)
}

func (s *commitmentService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Commitment, error) {
	return s.transition(ctx, id, domain.CommitmentStateCanceled)
}

func (s *commitmentService) transition(ctx context.Context, id uuid.UUID, to string) (*domain.Commitment, error) {
	var out *domain.Commitment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.Get(dbc, id)
		if err != nil {
			return err
		}
		if c.State == to {
			// Idempotent repeat of a terminal state; no second audit row.
			if domain.CanTransition(c.State, to) {
				out = c
				return nil
			}
			return fmt.Errorf("commitment %s: %s -> %s: %w", id, c.State, to, ErrInvalidTransition)
		}
		if !domain.CanTransition(c.State, to) {
			return fmt.Errorf("commitment %s: %s -> %s: %w", id, c.State, to, ErrInvalidTransition)
		}

		from := c.State
		if err := s.commits.UpdateFields(dbc, id, map[string]interface{}{"state": to}); err != nil {
			return err
		}
		c.State = to
		out = c

		if err := s.rescoreDependents(dbc, id, to); err != nil {
			return err
		}

		meta, _ := json.Marshal(map[string]any{"from": from, "to": to})
		return s.audit.Append(dbc, &domain.Interaction{
			EntityType:      domain.EntityTypeCommitment,
			EntityID:        id,
			InteractionType: domain.InteractionStateChanged,
			Metadata:        datatypes.JSON(meta),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *commitmentService) Update(ctx context.Context, id uuid.UUID, patch CommitmentPatch) (*domain.Commitment, error) {
	var out *domain.Commitment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := s.Get(dbc, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		rescore := false

		if patch.Title != nil && *patch.Title != c.Title {
			c.Title = *patch.Title
			updates["title"] = c.Title
		}
		if patch.Domain != nil && *patch.Domain != c.Domain {
			if !validDomain(*patch.Domain) {
				return fmt.Errorf("unknown domain %q", *patch.Domain)
			}
			c.Domain = *patch.Domain
			updates["domain"] = c.Domain
			rescore = true
		}
		if patch.CommitmentType != nil && *patch.CommitmentType != c.CommitmentType {
			if !validCommitmentType(*patch.CommitmentType) {
				return fmt.Errorf("unknown commitment type %q", *patch.CommitmentType)
			}
			c.CommitmentType = *patch.CommitmentType
			updates["commitment_type"] = c.CommitmentType
		}
		if patch.ClearDueDate {
			c.DueDate = nil
			updates["due_date"] = nil
			rescore = true
		} else if patch.DueDate != nil {
			d := patch.DueDate.UTC()
			c.DueDate = &d
			updates["due_date"] = d
			rescore = true
		}
		if patch.AmountUSD != nil {
			c.AmountUSD = patch.AmountUSD
			updates["amount_usd"] = *patch.AmountUSD
			rescore = true
		}
		if patch.EstimatedHours != nil {
			c.EstimatedHours = patch.EstimatedHours
			updates["estimated_hours"] = *patch.EstimatedHours
			rescore = true
		}
		if patch.ClearBlockedBy {
			c.BlockedByID = nil
			updates["blocked_by_id"] = nil
			rescore = true
		} else if patch.BlockedByID != nil {
			if *patch.BlockedByID == id {
				return fmt.Errorf("commitment cannot block itself")
			}
			blocker, err := s.commits.GetByID(dbc, *patch.BlockedByID)
			if err != nil {
				return err
			}
			if blocker == nil {
				return fmt.Errorf("blocker %s: %w", *patch.BlockedByID, ErrNotFound)
			}
			c.BlockedByID = patch.BlockedByID
			updates["blocked_by_id"] = *patch.BlockedByID
			rescore = true
		}
		if patch.UserBoost != nil && *patch.UserBoost != c.UserBoost {
			c.UserBoost = *patch.UserBoost
			updates["user_boost"] = c.UserBoost
			rescore = true
		}

		if len(updates) == 0 {
			out = c
			return nil
		}

		if rescore {
			blocked, err := s.isBlocked(dbc, c)
			if err != nil {
				return err
			}
			score, reason := priority.Score(priority.Inputs{
				DueDate:        c.DueDate,
				Domain:         c.Domain,
				AmountUSD:      c.AmountUSD,
				EstimatedHours: c.EstimatedHours,
				Blocked:        blocked,
				UserBoost:      c.UserBoost,
				Now:            time.Now().UTC(),
			})
			c.Priority = score
			c.PriorityReason = reason
			updates["priority"] = score
			updates["priority_reason"] = reason
		}

		if err := s.commits.UpdateFields(dbc, id, updates); err != nil {
			return err
		}
		out = c

		meta, _ := json.Marshal(map[string]any{
			"fields":   patchFieldNames(updates),
			"priority": c.Priority,
		})
		return s.audit.Append(dbc, &domain.Interaction{
			EntityType:      domain.EntityTypeCommitment,
			EntityID:        id,
			InteractionType: domain.InteractionCommitmentUpdated,
			Metadata:        datatypes.JSON(meta),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// rescoreDependents recomputes priority for commitments blocked by the
// commitment whose state just changed. The blocker's state is a scoring
// input, so a fulfill or cancel lifts the dependency suppression and a
// resume reinstates it.
func (s *commitmentService) rescoreDependents(dbc dbctx.Context, blockerID uuid.UUID, blockerState string) error {
	deps, err := s.commits.ListBlockedBy(dbc, blockerID)
	if err != nil {
		return err
	}
	blocked := blockerState == domain.CommitmentStateActive || blockerState == domain.CommitmentStatePaused
	for _, dep := range deps {
		score, reason := priority.Score(priority.Inputs{
			DueDate:        dep.DueDate,
			Domain:         dep.Domain,
			AmountUSD:      dep.AmountUSD,
			EstimatedHours: dep.EstimatedHours,
			Blocked:        blocked,
			UserBoost:      dep.UserBoost,
			Now:            time.Now().UTC(),
		})
		if score == dep.Priority && reason == dep.PriorityReason {
			continue
		}
		if err := s.commits.UpdateFields(dbc, dep.ID, map[string]interface{}{
			"priority":        score,
			"priority_reason": reason,
		}); err != nil {
			return err
		}
	}
	return nil
}

// isBlocked reports whether the commitment's blocker is still outstanding.
func (s *commitmentService) isBlocked(dbc dbctx.Context, c *domain.Commitment) (bool, error) {
	if c.BlockedByID == nil {
		return false, nil
	}
	active, err := s.commits.ActiveBlockers(dbc, []uuid.UUID{*c.BlockedByID})
	if err != nil {
		return false, err
	}
	return len(active) > 0, nil
}

func validDomain(d string) bool {
	switch d {
	case domain.DomainFinance, domain.DomainLegal, domain.DomainHealth, domain.DomainPersonal, domain.DomainWork:
		return true
	}
	return false
}

func validCommitmentType(t string) bool {
	switch t {
	case domain.CommitmentTypeObligation, domain.CommitmentTypeGoal, domain.CommitmentTypeAppointment:
		return true
	}
	return false
}

func patchFieldNames(updates map[string]interface{}) []string {
	names := make([]string, 0, len(updates))
	for k := range updates {
		if k == "updated_at" || k == "priority" || k == "priority_reason" {
			continue
		}
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
