package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
)

func TestInteractionRepoAppendAndOrdering(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewInteractionRepo(db, testutil.Logger(t))

	doc := testutil.SeedDocument(t, ctx, tx, []byte("audited doc"))

	base := time.Now().UTC().Add(-time.Minute)
	events := []string{
		domain.InteractionDocumentUploaded,
		domain.InteractionVendorResolved,
		domain.InteractionCommitmentCreated,
	}
	for i, kind := range events {
		row := &domain.Interaction{
			EntityType:      domain.EntityTypeDocument,
			EntityID:        doc.ID,
			InteractionType: kind,
			Metadata:        datatypes.JSON([]byte(fmt.Sprintf(`{"step":%d}`, i))),
			Timestamp:       base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.Append(dbc, row); err != nil {
			t.Fatalf("Append %s: %v", kind, err)
		}
	}

	rows, err := repo.ListByEntity(dbc, domain.EntityTypeDocument, doc.ID)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(rows) != len(events) {
		t.Fatalf("expected %d interactions, got %d", len(events), len(rows))
	}
	for i, r := range rows {
		if r.InteractionType != events[i] {
			t.Fatalf("audit trail out of order at %d: %s", i, r.InteractionType)
		}
	}
}
