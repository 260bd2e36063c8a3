package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/extraction"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/resolve"
)

// derived is the commitment blueprint read out of an extraction field map,
// before resolution and scoring.
type derived struct {
	Title          string
	CommitmentType string
	Domain         string
	DueDate        *time.Time
	AmountUSD      *float64
	EstimatedHours *float64
	Candidate      *resolve.Candidate
}

func decodeFields(raw datatypes.JSON) (map[string]extraction.FieldValue, error) {
	fields := map[string]extraction.FieldValue{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func encodeFields(fields map[string]extraction.FieldValue) (datatypes.JSON, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// deriveCommitment turns a field map into a commitment blueprint. The title is
// the only hard requirement; everything else degrades to defaults keyed off
// the declared document type.
func deriveCommitment(fields map[string]extraction.FieldValue, declaredType string) (*derived, error) {
	title := fieldString(fields, extraction.FieldTitle)
	if title == "" {
		if text := fieldString(fields, extraction.FieldText); text != "" {
			title = firstNonEmptyLine(text)
		}
	}
	if title == "" {
		return nil, &InvalidExtractionError{Reason: "no title or text to derive one from"}
	}

	d := &derived{
		Title:          title,
		CommitmentType: commitmentType(fields),
		Domain:         commitmentDomain(fields, declaredType),
		DueDate:        fieldDate(fields, extraction.FieldDueDate),
		AmountUSD:      fieldFloat(fields, extraction.FieldAmount),
		EstimatedHours: fieldFloat(fields, extraction.FieldEffortHours),
	}

	if name := fieldString(fields, extraction.FieldVendorName); name != "" {
		cand := resolve.Candidate{
			Kind:    fieldString(fields, extraction.FieldVendorKind),
			Name:    name,
			TaxID:   fieldStringPtr(fields, extraction.FieldVendorTaxID),
			Address: fieldStringPtr(fields, extraction.FieldVendorAddress),
			Email:   fieldStringPtr(fields, extraction.FieldVendorEmail),
			Phone:   fieldStringPtr(fields, extraction.FieldVendorPhone),
		}
		d.Candidate = &cand
	}
	return d, nil
}

func commitmentType(fields map[string]extraction.FieldValue) string {
	switch fieldString(fields, extraction.FieldCommitmentType) {
	case domain.CommitmentTypeGoal:
		return domain.CommitmentTypeGoal
	case domain.CommitmentTypeAppointment:
		return domain.CommitmentTypeAppointment
	default:
		return domain.CommitmentTypeObligation
	}
}

func commitmentDomain(fields map[string]extraction.FieldValue, declaredType string) string {
	switch fieldString(fields, extraction.FieldDomain) {
	case domain.DomainFinance:
		return domain.DomainFinance
	case domain.DomainLegal:
		return domain.DomainLegal
	case domain.DomainHealth:
		return domain.DomainHealth
	case domain.DomainPersonal:
		return domain.DomainPersonal
	case domain.DomainWork:
		return domain.DomainWork
	}
	switch declaredType {
	case "invoice", "receipt":
		return domain.DomainFinance
	case "contract":
		return domain.DomainLegal
	default:
		return domain.DomainPersonal
	}
}

func fieldString(fields map[string]extraction.FieldValue, key string) string {
	return strings.TrimSpace(fields[key].Value)
}

func fieldStringPtr(fields map[string]extraction.FieldValue, key string) *string {
	v := fieldString(fields, key)
	if v == "" {
		return nil
	}
	return &v
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func fieldDate(fields map[string]extraction.FieldValue, key string) *time.Time {
	v := fieldString(fields, key)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func fieldFloat(fields map[string]extraction.FieldValue, key string) *float64 {
	v := fieldString(fields, key)
	if v == "" {
		return nil
	}
	v = strings.TrimLeft(v, "$€£ ")
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil
	}
	return &f
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
