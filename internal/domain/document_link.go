package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EntityTypeDocument   = "document"
	EntityTypeParty      = "party"
	EntityTypeCommitment = "commitment"

	LinkTypeSource       = "source"       // document is the source of the entity
	LinkTypeCounterparty = "counterparty" // document names the entity as counterparty
)

// DocumentLink is a polymorphic edge from a document to another entity. The
// unique index over the full tuple is the contract: inserting the same edge
// twice yields one row.
type DocumentLink struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DocumentID uuid.UUID `gorm:"type:uuid;column:document_id;not null;uniqueIndex:uq_document_link,priority:1" json:"document_id"`
	EntityType string    `gorm:"column:entity_type;not null;uniqueIndex:uq_document_link,priority:2" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;column:entity_id;not null;uniqueIndex:uq_document_link,priority:3" json:"entity_id"`
	LinkType   string    `gorm:"column:link_type;not null;uniqueIndex:uq_document_link,priority:4" json:"link_type"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (DocumentLink) TableName() string { return "document_links" }
