package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	PartyKindOrganization = "organization"
	PartyKindPerson       = "person"

	PartySourceCreated = "created"
)

// Party is a resolved counterparty. Identity fields (kind, name, tax id)
// never change after creation; contact fields may be enriched when later
// documents carry values the row is missing. Rows are merged out-of-band,
// never deleted.
type Party struct {
	ID             uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Kind           string    `gorm:"column:kind;not null;uniqueIndex:uq_party_kind_normalized_name,priority:1" json:"kind"` // organization|person
	Name           string    `gorm:"column:name;not null" json:"name"`
	NormalizedName string    `gorm:"column:normalized_name;not null;uniqueIndex:uq_party_kind_normalized_name,priority:2" json:"normalized_name"`
	TaxID          *string   `gorm:"column:tax_id;uniqueIndex:uq_party_tax_id" json:"tax_id,omitempty"`

	Address *string `gorm:"column:address" json:"address,omitempty"`
	Email   *string `gorm:"column:email" json:"email,omitempty"`
	Phone   *string `gorm:"column:phone" json:"phone,omitempty"`

	CreationSource   string `gorm:"column:creation_source;not null" json:"creation_source"` // pipeline rows are always "created"
	NeedsMergeReview bool   `gorm:"column:needs_merge_review;not null;default:false" json:"needs_merge_review"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Party) TableName() string { return "parties" }

// Role binds a Party to a context, e.g. the vendor on a commitment.
type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PartyID     uuid.UUID `gorm:"type:uuid;column:party_id;not null;index" json:"party_id"`
	RoleName    string    `gorm:"column:role_name;not null" json:"role_name"` // vendor|counterparty|provider
	ContextType string    `gorm:"column:context_type;not null;index:idx_role_context,priority:1" json:"context_type"`
	ContextID   uuid.UUID `gorm:"type:uuid;column:context_id;not null;index:idx_role_context,priority:2" json:"context_id"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Role) TableName() string { return "roles" }
