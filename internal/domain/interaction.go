package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	InteractionDocumentUploaded  = "document_uploaded"
	InteractionDocumentExtracted = "document_extracted"
	InteractionVendorResolved    = "vendor_resolved"
	InteractionCommitmentCreated = "commitment_created"
	InteractionCommitmentUpdated = "commitment_updated"
	InteractionStateChanged      = "commitment_state_changed"
)

// Interaction is an append-only audit event. Rows are never updated or
// deleted; ordering by timestamp is the audit trail.
type Interaction struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntityType      string         `gorm:"column:entity_type;not null;index:idx_interaction_entity,priority:1" json:"entity_type"`
	EntityID        uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index:idx_interaction_entity,priority:2" json:"entity_id"`
	InteractionType string         `gorm:"column:interaction_type;not null;index" json:"interaction_type"`
	CostUSD         float64        `gorm:"column:cost_usd;not null;default:0" json:"cost_usd"`
	DurationMs      int64          `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	Timestamp       time.Time      `gorm:"column:timestamp;not null;default:now();index" json:"timestamp"`
}

func (Interaction) TableName() string { return "interactions" }
