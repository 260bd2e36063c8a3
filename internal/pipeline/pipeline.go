package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/audit"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/commitments"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/documents"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/parties"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/extraction"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/gcs"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/priority"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/realtime/bus"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/resolve"
)

// EntityGraph is everything one upload produced or converged on: the document
// row, the resolved party (if any), the derived commitment and the edges
// between them.
type EntityGraph struct {
	Document   *domain.Document       `json:"document"`
	Duplicate  bool                   `json:"duplicate"`
	Party      *domain.Party          `json:"party,omitempty"`
	MatchTier  string                 `json:"match_tier,omitempty"`
	MatchConf  float64                `json:"match_confidence,omitempty"`
	Commitment *domain.Commitment     `json:"commitment,omitempty"`
	Links      []*domain.DocumentLink `json:"links,omitempty"`
}

// Pipeline turns raw document bytes into the entity graph. The document row
// commits in its own transaction before extraction so dedup survives any
// downstream failure; everything after extraction commits atomically.
type Pipeline struct {
	log       *logger.Logger
	db        *gorm.DB
	docs      documents.DocumentRepo
	links     documents.DocumentLinkRepo
	parties   parties.PartyRepo
	roles     parties.RoleRepo
	commits   commitments.CommitmentRepo
	audit     audit.InteractionRepo
	resolver  *resolve.Resolver
	extractor extraction.Extractor
	blobs     gcs.BlobStore
	events    bus.Bus
	tracer    trace.Tracer

	inflightWait time.Duration
	mu           sync.Mutex
	inflight     map[string]chan struct{}
}

type Deps struct {
	DB           *gorm.DB
	Documents    documents.DocumentRepo
	Links        documents.DocumentLinkRepo
	Parties      parties.PartyRepo
	Roles        parties.RoleRepo
	Commits      commitments.CommitmentRepo
	Audit        audit.InteractionRepo
	Resolver     *resolve.Resolver
	Extractor    extraction.Extractor
	Blobs        gcs.BlobStore // optional
	Events       bus.Bus       // optional
	InflightWait time.Duration
}

func New(deps Deps, baseLog *logger.Logger) (*Pipeline, error) {
	if deps.DB == nil || deps.Documents == nil || deps.Links == nil || deps.Parties == nil ||
		deps.Roles == nil || deps.Commits == nil || deps.Audit == nil ||
		deps.Resolver == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("pipeline: missing dependency")
	}
	wait := deps.InflightWait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Pipeline{
		log:          baseLog.With("service", "Pipeline"),
		db:           deps.DB,
		docs:         deps.Documents,
		links:        deps.Links,
		parties:      deps.Parties,
		roles:        deps.Roles,
		commits:      deps.Commits,
		audit:        deps.Audit,
		resolver:     deps.Resolver,
		extractor:    deps.Extractor,
		blobs:        deps.Blobs,
		events:       deps.Events,
		tracer:       otel.Tracer("pipeline"),
		inflightWait: wait,
		inflight:     map[string]chan struct{}{},
	}, nil
}

// Digest is the canonical content digest used for dedup and storage keys.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Process runs the whole chain for one upload. It is safe to call
// concurrently with identical bytes: one caller does the work, the others
// converge on the same rows.
func (p *Pipeline) Process(ctx context.Context, data []byte, declaredType, mimeType string) (*EntityGraph, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty upload")
	}
	digest := Digest(data)

	ctx, span := p.tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("document.digest", digest),
		attribute.String("document.declared_type", declaredType),
	))
	defer span.End()

	release, err := p.acquire(ctx, digest)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	graph, err := p.process(ctx, data, digest, declaredType, mimeType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("document.duplicate", graph.Duplicate))
	return graph, nil
}

// Reprocess re-runs resolution and derivation for a document whose extraction
// is already stored but whose downstream commit failed. No adapter call, no
// new extraction cost.
func (p *Pipeline) Reprocess(ctx context.Context, id uuid.UUID) (*EntityGraph, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Reprocess", trace.WithAttributes(
		attribute.String("document.id", id.String()),
	))
	defer span.End()

	doc, err := p.docs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, &StorageError{Op: "document read", Err: err}
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}
	if !doc.Extracted() {
		return nil, &InvalidExtractionError{Reason: "no stored extraction to reprocess"}
	}

	release, err := p.acquire(ctx, doc.Digest)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	if graph, done, err := p.existingGraph(ctx, doc); err != nil {
		return nil, &StorageError{Op: "duplicate lookup", Err: err}
	} else if done {
		return graph, nil
	}

	fields, err := decodeFields(doc.ExtractedFields)
	if err != nil {
		return nil, fmt.Errorf("decode stored extraction: %w", err)
	}

	commitCtx := context.WithoutCancel(ctx)
	graph := &EntityGraph{Document: doc, Duplicate: true}
	err = p.db.Transaction(func(tx *gorm.DB) error {
		return p.commit(dbctx.Context{Ctx: commitCtx, Tx: tx}, graph, fields, nil)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p.publishGraph(ctx, graph)
	return graph, nil
}

// acquire serializes same-digest uploads in this process. One bounded wait and
// one retry; still busy after that means the caller gets a retryable error.
func (p *Pipeline) acquire(ctx context.Context, digest string) (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		p.mu.Lock()
		done, busy := p.inflight[digest]
		if !busy {
			ch := make(chan struct{})
			p.inflight[digest] = ch
			p.mu.Unlock()
			return func() {
				p.mu.Lock()
				delete(p.inflight, digest)
				p.mu.Unlock()
				close(ch)
			}, nil
		}
		p.mu.Unlock()

		select {
		case <-done:
		case <-time.After(p.inflightWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, &DuplicateInFlightError{Digest: digest}
}

func (p *Pipeline) process(ctx context.Context, data []byte, digest, declaredType, mimeType string) (*EntityGraph, error) {
	storageKey := gcs.DocumentKey(digest)
	if p.blobs != nil {
		// Content-addressed, so a duplicate upload overwrites with identical
		// bytes and nothing is lost.
		if err := p.blobs.Put(ctx, storageKey, data, mimeType); err != nil {
			return nil, &StorageError{Op: "blob upload", Err: err}
		}
	}

	doc, created, err := p.ingest(ctx, data, digest, declaredType, mimeType, storageKey)
	if err != nil {
		return nil, err
	}

	if !created {
		if graph, done, err := p.existingGraph(ctx, doc); err != nil {
			return nil, &StorageError{Op: "duplicate lookup", Err: err}
		} else if done {
			p.log.Info("duplicate upload converged", "digest", digest, "document_id", doc.ID)
			return graph, nil
		}
	}

	// Extraction runs outside any transaction; the adapter call is the only
	// step that costs money and must not hold row locks.
	var result *extraction.Result
	fields := map[string]extraction.FieldValue{}
	if doc.Extracted() {
		fields, err = decodeFields(doc.ExtractedFields)
		if err != nil {
			return nil, fmt.Errorf("decode stored extraction: %w", err)
		}
	} else {
		result, err = p.extractor.Extract(ctx, extraction.Request{
			Data:           data,
			MimeType:       doc.MimeType,
			ExtractionType: doc.DeclaredType,
		})
		if err != nil {
			return nil, fmt.Errorf("extraction: %w", err)
		}
		fields = result.Fields
	}

	// Extraction has been paid for at this point; cancellation no longer
	// aborts the commit phase.
	commitCtx := context.WithoutCancel(ctx)
	graph := &EntityGraph{Document: doc, Duplicate: !created}
	err = p.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: commitCtx, Tx: tx}
		return p.commit(dbc, graph, fields, result)
	})
	if err != nil {
		return nil, err
	}

	p.publishGraph(ctx, graph)
	return graph, nil
}

// ingest persists the document row in its own committed transaction. Whatever
// happens downstream, a second upload of the same bytes finds this row.
func (p *Pipeline) ingest(ctx context.Context, data []byte, digest, declaredType, mimeType, storageKey string) (*domain.Document, bool, error) {
	var doc *domain.Document
	var created bool
	err := p.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var err error
		doc, created, err = p.docs.CreateIfAbsent(dbc, &domain.Document{
			Digest:       digest,
			ByteSize:     int64(len(data)),
			MimeType:     mimeType,
			StorageKey:   storageKey,
			DeclaredType: declaredType,
		})
		if err != nil {
			return err
		}
		meta, _ := metadataJSON(map[string]any{
			"digest":    digest,
			"duplicate": !created,
			"byte_size": len(data),
		})
		return p.audit.Append(dbc, &domain.Interaction{
			EntityType:      domain.EntityTypeDocument,
			EntityID:        doc.ID,
			InteractionType: domain.InteractionDocumentUploaded,
			Metadata:        meta,
		})
	})
	if err != nil {
		return nil, false, &StorageError{Op: "document ingest", Err: err}
	}
	return doc, created, nil
}

// existingGraph reports whether the document already produced a commitment.
// If it did, the prior graph is returned and the pipeline stops; if the
// document exists but derivation never finished, processing resumes.
func (p *Pipeline) existingGraph(ctx context.Context, doc *domain.Document) (*EntityGraph, bool, error) {
	dbc := dbctx.Context{Ctx: ctx}
	links, err := p.links.GetByDocumentID(dbc, doc.ID)
	if err != nil {
		return nil, false, err
	}
	graph := &EntityGraph{Document: doc, Duplicate: true, Links: links}
	for _, l := range links {
		switch {
		case l.EntityType == domain.EntityTypeCommitment && l.LinkType == domain.LinkTypeSource:
			c, err := p.commits.GetByID(dbc, l.EntityID)
			if err != nil {
				return nil, false, err
			}
			graph.Commitment = c
		case l.EntityType == domain.EntityTypeParty && l.LinkType == domain.LinkTypeCounterparty:
			// Left nil on read failure; the commitment is the contract.
			if pr, err := p.parties.GetByID(dbc, l.EntityID); err == nil {
				graph.Party = pr
			}
		}
	}
	return graph, graph.Commitment != nil, nil
}

// commit is the atomic half: attach extraction, resolve the counterparty,
// derive and score the commitment, write edges and audit rows. All or
// nothing.
func (p *Pipeline) commit(dbc dbctx.Context, graph *EntityGraph, fields map[string]extraction.FieldValue, result *extraction.Result) error {
	doc := graph.Document

	if result != nil {
		encoded, err := encodeFields(fields)
		if err != nil {
			return fmt.Errorf("encode extraction: %w", err)
		}
		attached, err := p.docs.AttachExtraction(dbc, doc.ID, encoded, result.ModelID, result.CostUSD, result.DurationMs)
		if err != nil {
			return &StorageError{Op: "attach extraction", Err: err}
		}
		if attached {
			meta, _ := metadataJSON(map[string]any{
				"model_id":   result.ModelID,
				"confidence": result.Confidence,
				"warnings":   result.Warnings,
			})
			if err := p.audit.Append(dbc, &domain.Interaction{
				EntityType:      domain.EntityTypeDocument,
				EntityID:        doc.ID,
				InteractionType: domain.InteractionDocumentExtracted,
				CostUSD:         result.CostUSD,
				DurationMs:      result.DurationMs,
				Metadata:        meta,
			}); err != nil {
				return &StorageError{Op: "extraction audit", Err: err}
			}
		} else {
			// Another worker attached first; theirs is canonical.
			fresh, err := p.docs.GetByID(dbc, doc.ID)
			if err != nil || fresh == nil {
				return &StorageError{Op: "re-read document", Err: err}
			}
			graph.Document = fresh
			doc = fresh
			stored, err := decodeFields(fresh.ExtractedFields)
			if err != nil {
				return fmt.Errorf("decode stored extraction: %w", err)
			}
			fields = stored
		}
	}

	d, err := deriveCommitment(fields, doc.DeclaredType)
	if err != nil {
		return err
	}

	var partyID *uuid.UUID
	if d.Candidate != nil {
		match, err := p.resolver.Resolve(dbc, *d.Candidate)
		if err != nil {
			return err
		}
		graph.Party = match.Party
		graph.MatchTier = string(match.Tier)
		graph.MatchConf = match.Confidence
		partyID = &match.Party.ID

		resMeta := map[string]any{
			"document_id": doc.ID,
			"tier":        string(match.Tier),
			"confidence":  match.Confidence,
		}
		if match.NeedsMergeReview {
			resMeta["needs_merge_review"] = true
		}
		meta, _ := metadataJSON(resMeta)
		if err := p.audit.Append(dbc, &domain.Interaction{
			EntityType:      domain.EntityTypeParty,
			EntityID:        match.Party.ID,
			InteractionType: domain.InteractionVendorResolved,
			Metadata:        meta,
		}); err != nil {
			return &StorageError{Op: "resolution audit", Err: err}
		}
	}

	score, reason := priority.Score(priority.Inputs{
		DueDate:        d.DueDate,
		Domain:         d.Domain,
		AmountUSD:      d.AmountUSD,
		EstimatedHours: d.EstimatedHours,
		Now:            time.Now().UTC(),
	})
	c := &domain.Commitment{
		Title:          d.Title,
		CommitmentType: d.CommitmentType,
		Domain:         d.Domain,
		PartyID:        partyID,
		DueDate:        d.DueDate,
		AmountUSD:      d.AmountUSD,
		EstimatedHours: d.EstimatedHours,
		State:          domain.CommitmentStateActive,
		Priority:       score,
		PriorityReason: reason,
	}
	if err := p.commits.Create(dbc, c); err != nil {
		return &StorageError{Op: "commitment create", Err: err}
	}
	graph.Commitment = c

	srcLink := &domain.DocumentLink{
		DocumentID: doc.ID,
		EntityType: domain.EntityTypeCommitment,
		EntityID:   c.ID,
		LinkType:   domain.LinkTypeSource,
	}
	if err := p.links.LinkOnce(dbc, srcLink); err != nil {
		return &StorageError{Op: "commitment link", Err: err}
	}
	graph.Links = append(graph.Links, srcLink)

	if graph.Party != nil {
		partyLink := &domain.DocumentLink{
			DocumentID: doc.ID,
			EntityType: domain.EntityTypeParty,
			EntityID:   graph.Party.ID,
			LinkType:   domain.LinkTypeCounterparty,
		}
		if err := p.links.LinkOnce(dbc, partyLink); err != nil {
			return &StorageError{Op: "party link", Err: err}
		}
		graph.Links = append(graph.Links, partyLink)

		if err := p.roles.Create(dbc, &domain.Role{
			PartyID:     graph.Party.ID,
			RoleName:    "vendor",
			ContextType: domain.EntityTypeCommitment,
			ContextID:   c.ID,
		}); err != nil {
			return &StorageError{Op: "role create", Err: err}
		}
	}

	meta, _ := metadataJSON(map[string]any{
		"document_id": doc.ID,
		"priority":    c.Priority,
		"reason":      c.PriorityReason,
	})
	if err := p.audit.Append(dbc, &domain.Interaction{
		EntityType:      domain.EntityTypeCommitment,
		EntityID:        c.ID,
		InteractionType: domain.InteractionCommitmentCreated,
		Metadata:        meta,
	}); err != nil {
		return &StorageError{Op: "commitment audit", Err: err}
	}
	return nil
}

// publishGraph mirrors the commit onto the event bus. Best-effort only; a
// publish failure never fails the upload.
func (p *Pipeline) publishGraph(ctx context.Context, graph *EntityGraph) {
	if p.events == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	evts := []bus.Event{{
		EntityType:      domain.EntityTypeDocument,
		EntityID:        graph.Document.ID,
		InteractionType: domain.InteractionDocumentUploaded,
		Metadata:        map[string]any{"duplicate": graph.Duplicate},
		Timestamp:       time.Now().UTC(),
	}}
	if graph.Party != nil {
		evts = append(evts, bus.Event{
			EntityType:      domain.EntityTypeParty,
			EntityID:        graph.Party.ID,
			InteractionType: domain.InteractionVendorResolved,
			Metadata:        map[string]any{"tier": graph.MatchTier},
			Timestamp:       time.Now().UTC(),
		})
	}
	if graph.Commitment != nil {
		evts = append(evts, bus.Event{
			EntityType:      domain.EntityTypeCommitment,
			EntityID:        graph.Commitment.ID,
			InteractionType: domain.InteractionCommitmentCreated,
			Metadata:        map[string]any{"priority": graph.Commitment.Priority},
			Timestamp:       time.Now().UTC(),
		})
	}
	for _, evt := range evts {
		if err := p.events.Publish(pubCtx, evt); err != nil {
			p.log.Warn("event publish failed", "error", err, "interaction_type", evt.InteractionType)
			return
		}
	}
}

func metadataJSON(m map[string]any) (datatypes.JSON, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
