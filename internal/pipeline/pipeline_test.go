package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/audit"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/commitments"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/documents"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/parties"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/testutil"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/extraction"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/resolve"
)

// invoiceFields builds a plausible extraction result for a finance invoice.
// Vendor names carry a random suffix so runs never collide on the party
// unique constraints.
func invoiceFields(vendor string) map[string]extraction.FieldValue {
	due := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")
	return map[string]extraction.FieldValue{
		extraction.FieldTitle:      {Value: "Pay invoice " + vendor, Confidence: 0.98},
		extraction.FieldDueDate:    {Value: due, Confidence: 0.95},
		extraction.FieldAmount:     {Value: "12,419.83", Confidence: 0.97},
		extraction.FieldDomain:     {Value: domain.DomainFinance, Confidence: 0.9},
		extraction.FieldVendorName: {Value: vendor, Confidence: 0.96},
	}
}

func newTestPipeline(t *testing.T, fields map[string]extraction.FieldValue) (*Pipeline, *extraction.StaticExtractor, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	static := &extraction.StaticExtractor{Result: extraction.Result{
		Fields:     fields,
		Confidence: 0.95,
		ModelID:    "static/test",
		CostUSD:    0.01,
		DurationMs: 5,
	}}

	partyRepo := parties.NewPartyRepo(db, log)
	linkRepo := documents.NewDocumentLinkRepo(db, log)
	p, err := New(Deps{
		DB:        db,
		Documents: documents.NewDocumentRepo(db, log),
		Links:     linkRepo,
		Parties:   partyRepo,
		Roles:     parties.NewRoleRepo(db, log),
		Commits:   commitments.NewCommitmentRepo(db, log),
		Audit:     audit.NewInteractionRepo(db, log),
		Resolver:  resolve.NewResolver(resolve.DefaultConfig(), partyRepo, linkRepo, log),
		Extractor: static,
	}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, static, db
}

func uniquePayload(t *testing.T) []byte {
	t.Helper()
	return []byte("invoice body " + uuid.NewString())
}

func TestProcessBuildsFullGraph(t *testing.T) {
	vendor := "Vendor " + uuid.NewString()
	p, static, _ := newTestPipeline(t, invoiceFields(vendor))

	graph, err := p.Process(context.Background(), uniquePayload(t), "invoice", "application/pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if graph.Duplicate {
		t.Fatal("first upload flagged duplicate")
	}
	if graph.Document == nil || !graph.Document.Extracted() {
		t.Fatal("document missing or extraction not attached")
	}
	if graph.Party == nil || graph.Party.CreationSource != domain.PartySourceCreated {
		t.Fatalf("party not created: %+v", graph.Party)
	}
	if graph.MatchTier != string(resolve.TierCreated) {
		t.Fatalf("match tier = %s", graph.MatchTier)
	}
	if graph.Commitment == nil || graph.Commitment.Priority <= 0 || graph.Commitment.PriorityReason == "" {
		t.Fatalf("commitment not scored: %+v", graph.Commitment)
	}
	if graph.Commitment.PartyID == nil || *graph.Commitment.PartyID != graph.Party.ID {
		t.Fatal("commitment not bound to the resolved party")
	}
	if len(graph.Links) != 2 {
		t.Fatalf("links = %d, want source + counterparty", len(graph.Links))
	}
	if static.Calls() != 1 {
		t.Fatalf("extractor calls = %d, want 1", static.Calls())
	}
}

func TestProcessDuplicateConvergesWithoutSecondExtraction(t *testing.T) {
	vendor := "Vendor " + uuid.NewString()
	p, static, _ := newTestPipeline(t, invoiceFields(vendor))
	payload := uniquePayload(t)

	first, err := p.Process(context.Background(), payload, "invoice", "application/pdf")
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	second, err := p.Process(context.Background(), payload, "invoice", "application/pdf")
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if !second.Duplicate {
		t.Fatal("second upload not flagged duplicate")
	}
	if second.Document.ID != first.Document.ID {
		t.Fatal("duplicate upload produced a second document row")
	}
	if second.Commitment == nil || second.Commitment.ID != first.Commitment.ID {
		t.Fatal("duplicate upload did not converge on the first commitment")
	}
	if static.Calls() != 1 {
		t.Fatalf("extractor calls = %d, want exactly 1", static.Calls())
	}
}

func TestProcessConcurrentSameDigest(t *testing.T) {
	vendor := "Vendor " + uuid.NewString()
	p, static, _ := newTestPipeline(t, invoiceFields(vendor))
	payload := uniquePayload(t)

	var wg sync.WaitGroup
	graphs := make([]*EntityGraph, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i], errs[i] = p.Process(context.Background(), payload, "invoice", "application/pdf")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	if graphs[0].Commitment.ID != graphs[1].Commitment.ID {
		t.Fatal("concurrent identical uploads produced two commitments")
	}
	if static.Calls() != 1 {
		t.Fatalf("extractor calls = %d, want exactly 1", static.Calls())
	}
}

func TestProcessConcurrentNewVendorSingleParty(t *testing.T) {
	vendor := "Vendor " + uuid.NewString()
	p, _, _ := newTestPipeline(t, invoiceFields(vendor))

	payloads := [][]byte{uniquePayload(t), uniquePayload(t)}
	var wg sync.WaitGroup
	graphs := make([]*EntityGraph, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			graphs[i], errs[i] = p.Process(context.Background(), payloads[i], "invoice", "application/pdf")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("goroutine %d: %v", i, err)
		}
	}
	if graphs[0].Party.ID != graphs[1].Party.ID {
		t.Fatal("same vendor name resolved to two party rows")
	}
}

func TestProcessInvalidExtractionKeepsDocument(t *testing.T) {
	// No title and no text: derivation cannot proceed.
	p, _, db := newTestPipeline(t, map[string]extraction.FieldValue{
		extraction.FieldAmount: {Value: "50.00", Confidence: 0.9},
	})
	payload := uniquePayload(t)

	_, err := p.Process(context.Background(), payload, "receipt", "application/pdf")
	var invalid *InvalidExtractionError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidExtractionError", err)
	}

	log := testutil.Logger(t)
	docs := documents.NewDocumentRepo(db, log)
	doc, getErr := docs.GetByDigest(dbctx.Context{Ctx: context.Background()}, Digest(payload))
	if getErr != nil {
		t.Fatalf("GetByDigest: %v", getErr)
	}
	if doc == nil {
		t.Fatal("document row must survive a failed derivation")
	}
	if doc.Extracted() {
		t.Fatal("failed derivation must roll extraction back with the transaction")
	}
}

func TestProcessReusesStoredExtraction(t *testing.T) {
	vendor := "Vendor " + uuid.NewString()
	p, static, db := newTestPipeline(t, invoiceFields(vendor))
	payload := uniquePayload(t)

	log := testutil.Logger(t)
	docs := documents.NewDocumentRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background()}

	doc, created, err := docs.CreateIfAbsent(dbc, &domain.Document{
		Digest:       Digest(payload),
		ByteSize:     int64(len(payload)),
		MimeType:     "application/pdf",
		StorageKey:   "documents/" + Digest(payload),
		DeclaredType: "invoice",
	})
	if err != nil || !created {
		t.Fatalf("seed document: created=%v err=%v", created, err)
	}
	encoded, err := encodeFields(invoiceFields(vendor))
	if err != nil {
		t.Fatalf("encodeFields: %v", err)
	}
	if attached, err := docs.AttachExtraction(dbc, doc.ID, encoded, "seed/test", 0.02, 7); err != nil || !attached {
		t.Fatalf("seed extraction: attached=%v err=%v", attached, err)
	}

	graph, err := p.Process(context.Background(), payload, "invoice", "application/pdf")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if static.Calls() != 0 {
		t.Fatalf("extractor calls = %d, stored extraction must be reused", static.Calls())
	}
	if graph.Commitment == nil || graph.Party == nil {
		t.Fatal("stored extraction did not derive the full graph")
	}
	if !graph.Duplicate {
		t.Fatal("pre-existing document must be flagged duplicate")
	}
}

func TestProcessEmptyUploadRejected(t *testing.T) {
	p, _, _ := newTestPipeline(t, invoiceFields("Vendor "+uuid.NewString()))
	if _, err := p.Process(context.Background(), nil, "invoice", "application/pdf"); err == nil {
		t.Fatal("empty upload must be rejected")
	}
}

func TestDigestStability(t *testing.T) {
	a := Digest([]byte("same bytes"))
	b := Digest([]byte("same bytes"))
	if a != b || len(a) != 64 {
		t.Fatalf("digest not stable hex sha256: %s vs %s", a, b)
	}
	if Digest([]byte("other bytes")) == a {
		t.Fatal("distinct payloads collided")
	}
}

func TestDeriveCommitmentDefaults(t *testing.T) {
	d, err := deriveCommitment(map[string]extraction.FieldValue{
		extraction.FieldText: {Value: "\n  Dentist appointment reminder\nplease arrive early"},
	}, "contract")
	if err != nil {
		t.Fatalf("deriveCommitment: %v", err)
	}
	if d.Title != "Dentist appointment reminder" {
		t.Fatalf("title from text = %q", d.Title)
	}
	if d.CommitmentType != domain.CommitmentTypeObligation {
		t.Fatalf("type = %s", d.CommitmentType)
	}
	if d.Domain != domain.DomainLegal {
		t.Fatalf("contract default domain = %s", d.Domain)
	}
	if d.Candidate != nil {
		t.Fatal("no vendor fields, no candidate")
	}
}

func TestDeriveCommitmentParsesAmountAndDate(t *testing.T) {
	d, err := deriveCommitment(map[string]extraction.FieldValue{
		extraction.FieldTitle:   {Value: "Pay retainer"},
		extraction.FieldAmount:  {Value: "$1,250.00"},
		extraction.FieldDueDate: {Value: "2026-09-15"},
	}, "invoice")
	if err != nil {
		t.Fatalf("deriveCommitment: %v", err)
	}
	if d.AmountUSD == nil || *d.AmountUSD != 1250 {
		t.Fatalf("amount = %v", d.AmountUSD)
	}
	if d.DueDate == nil || d.DueDate.Format("2006-01-02") != "2026-09-15" {
		t.Fatalf("due date = %v", d.DueDate)
	}
	if d.Domain != domain.DomainFinance {
		t.Fatalf("invoice default domain = %s", d.Domain)
	}
}

func TestDuplicateInFlightErrorIsRetryable(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &DuplicateInFlightError{Digest: "abc"})
	var dup *DuplicateInFlightError
	if !errors.As(err, &dup) || !dup.Retryable() {
		t.Fatal("in-flight duplicate must unwrap and report retryable")
	}
}
