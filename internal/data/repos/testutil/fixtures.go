package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
)

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, raw []byte) *domain.Document {
	tb.Helper()
	sum := sha256.Sum256(raw)
	digest := hex.EncodeToString(sum[:])
	d := &domain.Document{
		ID:           uuid.New(),
		Digest:       digest,
		ByteSize:     int64(len(raw)),
		MimeType:     "application/pdf",
		StorageKey:   "documents/" + digest,
		DeclaredType: "invoice",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedParty(tb testing.TB, ctx context.Context, tx *gorm.DB, kind, name, normalized string, taxID *string) *domain.Party {
	tb.Helper()
	p := &domain.Party{
		ID:             uuid.New(),
		Kind:           kind,
		Name:           name,
		NormalizedName: normalized,
		TaxID:          taxID,
		CreationSource: domain.PartySourceCreated,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed party: %v", err)
	}
	return p
}

func SeedCommitment(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, partyID *uuid.UUID) *domain.Commitment {
	tb.Helper()
	c := &domain.Commitment{
		ID:             uuid.New(),
		Title:          title,
		CommitmentType: domain.CommitmentTypeObligation,
		Domain:         domain.DomainFinance,
		PartyID:        partyID,
		State:          domain.CommitmentStateActive,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed commitment: %v", err)
	}
	return c
}

func SeedLink(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, entityType string, entityID uuid.UUID, linkType string) *domain.DocumentLink {
	tb.Helper()
	l := &domain.DocumentLink{
		ID:         uuid.New(),
		DocumentID: documentID,
		EntityType: entityType,
		EntityID:   entityID,
		LinkType:   linkType,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed link: %v", err)
	}
	return l
}

func PtrString(v string) *string { return &v }

func PtrFloat(v float64) *float64 { return &v }
