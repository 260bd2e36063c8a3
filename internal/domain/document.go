package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Document is the immutable record of a received file. Rows are keyed by the
// sha256 digest of the raw bytes: two uploads of identical bytes converge on
// one row. Extraction results are attached exactly once; rows are never
// deleted.
type Document struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Digest       string    `gorm:"column:digest;not null;uniqueIndex:uq_document_digest" json:"digest"`
	ByteSize     int64     `gorm:"column:byte_size;not null" json:"byte_size"`
	MimeType     string    `gorm:"column:mime_type;not null" json:"mime_type"`
	StorageKey   string    `gorm:"column:storage_key;not null" json:"storage_key"`
	DeclaredType string    `gorm:"column:declared_type;not null;index" json:"declared_type"` // invoice|receipt|contract

	ExtractedFields      datatypes.JSON `gorm:"column:extracted_fields;type:jsonb" json:"extracted_fields,omitempty"`
	ExtractionModelID    *string        `gorm:"column:extraction_model_id" json:"extraction_model_id,omitempty"`
	ExtractionCostUSD    *float64       `gorm:"column:extraction_cost_usd" json:"extraction_cost_usd,omitempty"`
	ExtractionDurationMs *int64         `gorm:"column:extraction_duration_ms" json:"extraction_duration_ms,omitempty"`
	ExtractedAt          *time.Time     `gorm:"column:extracted_at" json:"extracted_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Document) TableName() string { return "documents" }

// Extracted reports whether extraction results have been attached.
func (d *Document) Extracted() bool {
	return d != nil && d.ExtractedAt != nil && len(d.ExtractedFields) > 0
}
