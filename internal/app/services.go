package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/extraction"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/pipeline"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/gcs"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/realtime/bus"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/resolve"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/services"
)

type Services struct {
	Pipeline    *pipeline.Pipeline
	Documents   services.DocumentService
	Parties     services.PartyService
	Commitments services.CommitmentService
	Timeline    services.TimelineService

	Extractor extraction.Extractor
	Blobs     gcs.BlobStore
	Events    bus.Bus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos) (Services, error) {
	log.Info("Wiring services...")

	resolverCfg, err := resolve.LoadConfig(cfg.ResolverConfigPath)
	if err != nil {
		return Services{}, fmt.Errorf("resolver config: %w", err)
	}
	resolver := resolve.NewResolver(resolverCfg, repos.Parties, repos.DocumentLinks, log)

	extractor, err := wireExtractor(log, cfg)
	if err != nil {
		return Services{}, err
	}

	var blobs gcs.BlobStore
	if cfg.BlobStoreEnabled {
		blobs, err = gcs.NewBlobStore(log)
		if err != nil {
			return Services{}, fmt.Errorf("blob store: %w", err)
		}
	}

	var events bus.Bus
	if cfg.EventBusEnabled {
		events, err = bus.NewRedisBus(log)
		if err != nil {
			// The bus is a mirror of the audit table, not a dependency.
			log.Warn("event bus unavailable, continuing without it", "error", err)
			events = nil
		}
	}

	pipe, err := pipeline.New(pipeline.Deps{
		DB:           db,
		Documents:    repos.Documents,
		Links:        repos.DocumentLinks,
		Parties:      repos.Parties,
		Roles:        repos.Roles,
		Commits:      repos.Commitments,
		Audit:        repos.Interactions,
		Resolver:     resolver,
		Extractor:    extractor,
		Blobs:        blobs,
		Events:       events,
		InflightWait: cfg.InflightWait,
	}, log)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Pipeline:    pipe,
		Documents:   services.NewDocumentService(log, repos.Documents, repos.DocumentLinks),
		Parties:     services.NewPartyService(log, repos.Parties),
		Commitments: services.NewCommitmentService(db, log, repos.Commitments, repos.Interactions),
		Timeline:    services.NewTimelineService(log, repos.Interactions),
		Extractor:   extractor,
		Blobs:       blobs,
		Events:      events,
	}, nil
}

func wireExtractor(log *logger.Logger, cfg Config) (extraction.Extractor, error) {
	if cfg.UseStubExtractor {
		log.Warn("using static extractor; uploads derive from canned fields")
		return &extraction.StaticExtractor{}, nil
	}
	docs, err := extraction.NewDocAIExtractor(log)
	if err != nil {
		return nil, fmt.Errorf("documentai extractor: %w", err)
	}
	if !cfg.VisionEnabled {
		return docs, nil
	}
	images, err := extraction.NewVisionExtractor(log)
	if err != nil {
		return nil, fmt.Errorf("vision extractor: %w", err)
	}
	return extraction.NewDispatcher(docs, images), nil
}
