package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
)

func TestDocumentRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	first := &domain.Document{
		Digest:       "deadbeef01",
		ByteSize:     42,
		MimeType:     "application/pdf",
		StorageKey:   "documents/deadbeef01",
		DeclaredType: "invoice",
	}
	got, created, err := repo.CreateIfAbsent(dbc, first)
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created || got.ID == uuid.Nil {
		t.Fatalf("expected fresh row, created=%v id=%v", created, got.ID)
	}

	second := &domain.Document{
		Digest:       "deadbeef01",
		ByteSize:     42,
		MimeType:     "application/pdf",
		StorageKey:   "documents/deadbeef01",
		DeclaredType: "invoice",
	}
	got2, created2, err := repo.CreateIfAbsent(dbc, second)
	if err != nil {
		t.Fatalf("CreateIfAbsent duplicate: %v", err)
	}
	if created2 {
		t.Fatal("duplicate digest must not create a second row")
	}
	if got2.ID != got.ID {
		t.Fatalf("duplicate digest must resolve to the same row: %v vs %v", got2.ID, got.ID)
	}
}

func TestDocumentRepoAttachExtractionOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	doc := testutil.SeedDocument(t, ctx, tx, []byte("invoice body"))

	fields := datatypes.JSON([]byte(`{"title":"Invoice 17"}`))
	attached, err := repo.AttachExtraction(dbc, doc.ID, fields, "docai-v1", 0.031, 2100)
	if err != nil {
		t.Fatalf("AttachExtraction: %v", err)
	}
	if !attached {
		t.Fatal("first attach must succeed")
	}

	attached2, err := repo.AttachExtraction(dbc, doc.ID, fields, "docai-v1", 0.031, 2100)
	if err != nil {
		t.Fatalf("AttachExtraction second call: %v", err)
	}
	if attached2 {
		t.Fatal("extraction must attach exactly once")
	}

	loaded, err := repo.GetByID(dbc, doc.ID)
	if err != nil || loaded == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !loaded.Extracted() {
		t.Fatal("document should report extracted")
	}
	if loaded.ExtractionCostUSD == nil || *loaded.ExtractionCostUSD != 0.031 {
		t.Fatalf("cost not recorded: %+v", loaded.ExtractionCostUSD)
	}
}

func TestDocumentRepoListUnprocessed(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	a := testutil.SeedDocument(t, ctx, tx, []byte("doc a"))
	b := testutil.SeedDocument(t, ctx, tx, []byte("doc b"))
	if _, err := repo.AttachExtraction(dbc, b.ID, datatypes.JSON([]byte(`{}`)), "m", 0, 0); err != nil {
		t.Fatalf("attach: %v", err)
	}

	rows, err := repo.ListUnprocessed(dbc, 10)
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	var found bool
	for _, r := range rows {
		if r.ID == b.ID {
			t.Fatal("extracted document must not be listed as unprocessed")
		}
		if r.ID == a.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("unextracted document missing from listing")
	}
}
