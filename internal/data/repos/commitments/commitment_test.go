package commitments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
)

func TestCommitmentRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCommitmentRepo(db, testutil.Logger(t))

	p := testutil.SeedParty(t, ctx, tx, domain.PartyKindOrganization, "Filter Co", "filter co", nil)

	due := time.Now().UTC().Add(48 * time.Hour)
	high := &domain.Commitment{
		Title:          "pay invoice",
		CommitmentType: domain.CommitmentTypeObligation,
		Domain:         domain.DomainFinance,
		PartyID:        &p.ID,
		DueDate:        &due,
		Priority:       80,
	}
	low := &domain.Commitment{
		Title:          "renew gym",
		CommitmentType: domain.CommitmentTypeGoal,
		Domain:         domain.DomainPersonal,
		Priority:       20,
	}
	if err := repo.Create(dbc, high); err != nil {
		t.Fatalf("Create high: %v", err)
	}
	if err := repo.Create(dbc, low); err != nil {
		t.Fatalf("Create low: %v", err)
	}

	rows, err := repo.List(dbc, Filter{Domain: domain.DomainFinance})
	if err != nil {
		t.Fatalf("List domain: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != high.ID {
		t.Fatalf("domain filter failed: %d rows", len(rows))
	}

	rows, err = repo.List(dbc, Filter{MinPriority: 50})
	if err != nil {
		t.Fatalf("List min priority: %v", err)
	}
	for _, r := range rows {
		if r.Priority < 50 {
			t.Fatalf("min priority filter leaked %d", r.Priority)
		}
	}

	cutoff := time.Now().UTC().Add(72 * time.Hour)
	rows, err = repo.List(dbc, Filter{DueBefore: &cutoff, PartyID: p.ID})
	if err != nil {
		t.Fatalf("List due before: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != high.ID {
		t.Fatalf("due-before+party filter failed: %d rows", len(rows))
	}
}

func TestCommitmentRepoActiveBlockers(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewCommitmentRepo(db, testutil.Logger(t))

	open := testutil.SeedCommitment(t, ctx, tx, "open blocker", nil)
	done := testutil.SeedCommitment(t, ctx, tx, "done blocker", nil)
	if err := repo.UpdateFields(dbc, done.ID, map[string]interface{}{"state": domain.CommitmentStateFulfilled}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	blockers, err := repo.ActiveBlockers(dbc, []uuid.UUID{open.ID, done.ID})
	if err != nil {
		t.Fatalf("ActiveBlockers: %v", err)
	}
	if len(blockers) != 1 || blockers[0] != open.ID {
		t.Fatalf("expected only the open commitment to block, got %v", blockers)
	}
}
