package extraction

import (
	"context"
	"strings"
)

// Well-known field keys the pipeline consumes. Extractors emit whatever else
// they find; only these carry semantics downstream.
const (
	FieldTitle          = "title"
	FieldText           = "text"
	FieldDueDate        = "due_date"
	FieldAmount         = "amount"
	FieldDomain         = "domain"
	FieldCommitmentType = "commitment_type"
	FieldEffortHours    = "effort_hours"
	FieldVendorName     = "vendor_name"
	FieldVendorTaxID    = "vendor_tax_id"
	FieldVendorAddress  = "vendor_address"
	FieldVendorEmail    = "vendor_email"
	FieldVendorPhone    = "vendor_phone"
	FieldVendorKind     = "vendor_kind"
)

// BoundingBox locates a field on a page, normalized vertex coordinates.
type BoundingBox struct {
	Page     int          `json:"page"`
	Vertices [][2]float64 `json:"vertices,omitempty"`
}

// FieldValue is one extracted field with optional provenance.
type FieldValue struct {
	Value      string       `json:"value"`
	Confidence float64      `json:"confidence"`
	Bounding   *BoundingBox `json:"bounding_box,omitempty"`
}

type Request struct {
	Data           []byte
	MimeType       string
	ExtractionType string // invoice|receipt|contract
}

// Result is the black-box output of a vision/extraction provider, including
// the cost and latency report the audit trail records.
type Result struct {
	Fields     map[string]FieldValue `json:"fields"`
	Confidence float64               `json:"confidence"`
	ModelID    string                `json:"model_id"`
	CostUSD    float64               `json:"cost_usd"`
	DurationMs int64                 `json:"duration_ms"`
	Warnings   []string              `json:"warnings,omitempty"`
}

// Extractor is the external extraction boundary. Implementations must be
// idempotent for the same bytes and extraction type so re-extraction after a
// downstream failure is skip-safe.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
	Close() error
}

// Dispatcher routes image uploads to the OCR extractor and everything else to
// the document processor.
type Dispatcher struct {
	documents Extractor
	images    Extractor
}

func NewDispatcher(documents, images Extractor) *Dispatcher {
	return &Dispatcher{documents: documents, images: images}
}

func (d *Dispatcher) Extract(ctx context.Context, req Request) (*Result, error) {
	if d.images != nil && strings.HasPrefix(req.MimeType, "image/") {
		return d.images.Extract(ctx, req)
	}
	return d.documents.Extract(ctx, req)
}

func (d *Dispatcher) Close() error {
	if d.documents != nil {
		_ = d.documents.Close()
	}
	if d.images != nil {
		_ = d.images.Close()
	}
	return nil
}
