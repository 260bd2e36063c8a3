package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	CommitmentTypeObligation  = "obligation"
	CommitmentTypeGoal        = "goal"
	CommitmentTypeAppointment = "appointment"

	CommitmentStateActive    = "active"
	CommitmentStateFulfilled = "fulfilled"
	CommitmentStateCanceled  = "canceled"
	CommitmentStatePaused    = "paused"

	DomainFinance  = "finance"
	DomainLegal    = "legal"
	DomainHealth   = "health"
	DomainPersonal = "personal"
	DomainWork     = "work"
)

// Commitment is an obligation, goal or appointment derived from a document.
// Priority is always recomputable from the row's own fields; it is stored only
// so listings can sort without re-deriving.
type Commitment struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title          string     `gorm:"column:title;not null" json:"title"`
	CommitmentType string     `gorm:"column:commitment_type;not null" json:"commitment_type"` // obligation|goal|appointment
	Domain         string     `gorm:"column:domain;not null;index" json:"domain"`             // finance|legal|health|personal|work
	PartyID        *uuid.UUID `gorm:"type:uuid;column:party_id;index" json:"party_id,omitempty"`

	DueDate        *time.Time `gorm:"column:due_date;index" json:"due_date,omitempty"`
	AmountUSD      *float64   `gorm:"column:amount_usd" json:"amount_usd,omitempty"`
	EstimatedHours *float64   `gorm:"column:estimated_hours" json:"estimated_hours,omitempty"`
	BlockedByID    *uuid.UUID `gorm:"type:uuid;column:blocked_by_id" json:"blocked_by_id,omitempty"`
	UserBoost      bool       `gorm:"column:user_boost;not null;default:false" json:"user_boost"`

	State          string `gorm:"column:state;not null;default:'active';index" json:"state"` // active|fulfilled|canceled|paused
	Priority       int    `gorm:"column:priority;not null;default:0;index" json:"priority"`
	PriorityReason string `gorm:"column:priority_reason;not null;default:''" json:"priority_reason"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Commitment) TableName() string { return "commitments" }

// CanTransition reports whether a state change is allowed. Fulfilled and
// canceled are terminal; paused may reopen to active. Repeating the current
// terminal state is allowed so fulfill stays idempotent.
func CanTransition(from, to string) bool {
	if from == to {
		return from == CommitmentStateFulfilled || from == CommitmentStateCanceled
	}
	switch from {
	case CommitmentStateActive:
		return to == CommitmentStateFulfilled || to == CommitmentStateCanceled || to == CommitmentStatePaused
	case CommitmentStatePaused:
		return to == CommitmentStateActive || to == CommitmentStateCanceled
	default:
		return false
	}
}
