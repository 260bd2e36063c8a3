package priority

import (
	"strings"
	"testing"
	"time"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
)

func ptrF(v float64) *float64 { return &v }

func TestScoreFinanceInvoiceScenario(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	in := Inputs{
		DueDate:   &due,
		Domain:    domain.DomainFinance,
		AmountUSD: ptrF(12419.83),
		Now:       now,
	}
	score, reason := Score(in)

	// 0.30*90 + 0.25*90 + 0.15*70 + 0.15*50 + 0.10*100 = 77.5 -> 78
	if score != 78 {
		t.Fatalf("score = %d, want 78", score)
	}
	if reason != "Due in 2 days, finance risk, $12,419.83" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestScoreDeterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(5 * 24 * time.Hour)
	in := Inputs{
		DueDate:        &due,
		Domain:         domain.DomainLegal,
		AmountUSD:      ptrF(250),
		EstimatedHours: ptrF(3),
		Now:            now,
	}
	s1, r1 := Score(in)
	s2, r2 := Score(in)
	if s1 != s2 || r1 != r2 {
		t.Fatalf("scoring not idempotent: (%d,%q) vs (%d,%q)", s1, r1, s2, r2)
	}
}

func TestScoreOverdueSaturates(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	week := now.Add(-7 * 24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	sWeek, _ := Score(Inputs{DueDate: &week, Domain: domain.DomainWork, Now: now})
	sMonth, reason := Score(Inputs{DueDate: &month, Domain: domain.DomainWork, Now: now})
	if sWeek != sMonth {
		t.Fatalf("overdue must saturate: week=%d month=%d", sWeek, sMonth)
	}
	if want := "Overdue by 30 days, work risk"; reason != want {
		t.Fatalf("reason = %q, want %q", reason, want)
	}
}

func TestScoreNoDueDateUsesLowDefault(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(24 * time.Hour)

	withDue, _ := Score(Inputs{DueDate: &due, Domain: domain.DomainHealth, Now: now})
	without, _ := Score(Inputs{Domain: domain.DomainHealth, Now: now})
	if without >= withDue {
		t.Fatalf("missing due date must not outrank an imminent one: %d vs %d", without, withDue)
	}
}

func TestScoreBlockedSuppressed(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	free, _ := Score(Inputs{DueDate: &due, Domain: domain.DomainFinance, Now: now})
	blocked, reason := Score(Inputs{DueDate: &due, Domain: domain.DomainFinance, Blocked: true, Now: now})
	if free-blocked != 10 {
		t.Fatalf("dependency weight is 10%%: free=%d blocked=%d", free, blocked)
	}
	if !strings.Contains(reason, "blocked by another commitment") {
		t.Fatalf("blocked state missing from reason: %q", reason)
	}
}

func TestScoreUserBoost(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	plain, _ := Score(Inputs{Domain: domain.DomainPersonal, Now: now})
	boosted, _ := Score(Inputs{Domain: domain.DomainPersonal, UserBoost: true, Now: now})
	if boosted-plain != 5 {
		t.Fatalf("boost weight is 5%%: plain=%d boosted=%d", plain, boosted)
	}
}

func TestScoreClamped(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	overdue := now.Add(-24 * time.Hour)
	in := Inputs{
		DueDate:        &overdue,
		Domain:         domain.DomainLegal,
		AmountUSD:      ptrF(5_000_000),
		EstimatedHours: ptrF(0.5),
		UserBoost:      true,
		Now:            now,
	}
	score, _ := Score(in)
	if score < 0 || score > 100 {
		t.Fatalf("score out of range: %d", score)
	}
}

func TestAmountScoreMonotone(t *testing.T) {
	amounts := []float64{1, 50, 500, 5_000, 50_000, 500_000, 5_000_000}
	prev := amountScore(nil)
	for _, a := range amounts {
		cur := amountScore(&a)
		if cur < prev {
			t.Fatalf("amount score not monotone at %v: %v < %v", a, cur, prev)
		}
		prev = cur
	}
}
