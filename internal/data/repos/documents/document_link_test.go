package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
)

func TestDocumentLinkRepoLinkOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentLinkRepo(db, testutil.Logger(t))

	doc := testutil.SeedDocument(t, ctx, tx, []byte("linked doc"))
	party := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Acme LLC", "acme llc", nil)

	edge := func() *domain.DocumentLink {
		return &domain.DocumentLink{
			DocumentID: doc.ID,
			EntityType: domain.EntityTypeParty,
			EntityID:   party.ID,
			LinkType:   domain.LinkTypeCounterparty,
		}
	}
	if err := repo.LinkOnce(dbc, edge()); err != nil {
		t.Fatalf("LinkOnce: %v", err)
	}
	if err := repo.LinkOnce(dbc, edge()); err != nil {
		t.Fatalf("LinkOnce duplicate: %v", err)
	}

	rows, err := repo.GetByDocumentID(dbc, doc.ID)
	if err != nil {
		t.Fatalf("GetByDocumentID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("same edge inserted twice must yield one row, got %d", len(rows))
	}
}

func TestDocumentLinkRepoLinkCounts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentLinkRepo(db, testutil.Logger(t))

	p1 := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "One Corp", "one corp", nil)
	p2 := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Two Corp", "two corp", nil)

	d1 := testutil.SeedDocument(t, ctx, tx, []byte("count doc 1"))
	d2 := testutil.SeedDocument(t, ctx, tx, []byte("count doc 2"))
	testutil.SeedLink(t, ctx, tx, d1.ID, domain.EntityTypeParty, p1.ID, domain.LinkTypeCounterparty)
	testutil.SeedLink(t, ctx, tx, d2.ID, domain.EntityTypeParty, p1.ID, domain.LinkTypeCounterparty)

	counts, err := repo.LinkCountByPartyIDs(dbc, []uuid.UUID{p1.ID, p2.ID})
	if err != nil {
		t.Fatalf("LinkCountByPartyIDs: %v", err)
	}
	if counts[p1.ID] != 2 {
		t.Fatalf("p1 count = %d, want 2", counts[p1.ID])
	}
	if counts[p2.ID] != 0 {
		t.Fatalf("p2 count = %d, want 0", counts[p2.ID])
	}
}
