package parties

import (
	"context"
	"testing"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/pgutil"
)

func TestPartyRepoLookups(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPartyRepo(db, testutil.Logger(t))

	taxID := "TX-99"
	p := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Clipboard Health Inc.", "clipboard health inc", &taxID)

	byTax, err := repo.GetByTaxID(dbc, "TX-99")
	if err != nil || byTax == nil {
		t.Fatalf("GetByTaxID: %v %v", byTax, err)
	}
	if byTax.ID != p.ID {
		t.Fatalf("GetByTaxID returned wrong party")
	}

	byName, err := repo.GetByNormalizedName(dbc, domain.PartyKindOrganization, "clipboard health inc")
	if err != nil || byName == nil || byName.ID != p.ID {
		t.Fatalf("GetByNormalizedName: %v %v", byName, err)
	}

	// Same normalized name under a different kind is a different namespace.
	miss, err := repo.GetByNormalizedName(dbc, domain.PartyKindPerson, "clipboard health inc")
	if err != nil {
		t.Fatalf("GetByNormalizedName other kind: %v", err)
	}
	if miss != nil {
		t.Fatal("kind must scope normalized-name lookups")
	}
}

func TestPartyRepoUniqueConstraints(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPartyRepo(db, testutil.Logger(t))

	taxID := "TX-DUP"
	testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Dup Co", "dup co", &taxID)

	dupTax := &domain.Party{
		Kind:           domain.PartyKindOrganization,
		Name:           "Other Co",
		NormalizedName: "other co",
		TaxID:          &taxID,
		CreationSource: domain.PartySourceCreated,
	}
	err := repo.Create(dbc, dupTax)
	if err == nil {
		t.Fatal("duplicate tax id must be rejected by the storage layer")
	}
	if !pgutil.IsUniqueViolation(err, "") {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestPartyRepoEnrichContactFillsOnlyMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPartyRepo(db, testutil.Logger(t))

	p := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Enrich Co", "enrich co", nil)
	if err := repo.EnrichContact(dbc, p.ID, testutil.PtrString("1 Main St"), testutil.PtrString("ap@enrich.co"), nil); err != nil {
		t.Fatalf("EnrichContact: %v", err)
	}

	// A later document carrying a different address must not overwrite.
	if err := repo.EnrichContact(dbc, p.ID, testutil.PtrString("2 Other Ave"), nil, testutil.PtrString("555-0101")); err != nil {
		t.Fatalf("EnrichContact second: %v", err)
	}

	loaded, err := repo.GetByID(dbc, p.ID)
	if err != nil || loaded == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Address == nil || *loaded.Address != "1 Main St" {
		t.Fatalf("address overwritten: %+v", loaded.Address)
	}
	if loaded.Phone == nil || *loaded.Phone != "555-0101" {
		t.Fatalf("missing phone not filled: %+v", loaded.Phone)
	}
}

func TestRoleRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewRoleRepo(db, testutil.Logger(t))

	p := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Role Co", "role co", nil)
	c := testutil.SeedCommitment(t, ctx, tx, "pay role co", &p.ID)

	if err := repo.Create(dbc, &domain.Role{
		PartyID:     p.ID,
		RoleName:    "vendor",
		ContextType: domain.EntityTypeCommitment,
		ContextID:   c.ID,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows, err := repo.GetByContext(dbc, domain.EntityTypeCommitment, c.ID)
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByContext: err=%v len=%d", err, len(rows))
	}
	if rows[0].PartyID != p.ID || rows[0].RoleName != "vendor" {
		t.Fatalf("unexpected role row: %+v", rows[0])
	}
}
