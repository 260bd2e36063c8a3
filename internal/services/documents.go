package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/documents"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

// DocumentView is a document together with its outgoing edges.
type DocumentView struct {
	Document *domain.Document       `json:"document"`
	Links    []*domain.DocumentLink `json:"links"`
}

type DocumentService interface {
	GetDocument(dbc dbctx.Context, id uuid.UUID) (*DocumentView, error)
	GetByDigest(dbc dbctx.Context, digest string) (*DocumentView, error)
}

type documentService struct {
	log   *logger.Logger
	docs  documents.DocumentRepo
	links documents.DocumentLinkRepo
}

func NewDocumentService(log *logger.Logger, docs documents.DocumentRepo, links documents.DocumentLinkRepo) DocumentService {
	return &documentService{
		log:   log.With("service", "DocumentService"),
		docs:  docs,
		links: links,
	}
}

func (s *documentService) GetDocument(dbc dbctx.Context, id uuid.UUID) (*DocumentView, error) {
	doc, err := s.docs.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return s.withLinks(dbc, doc)
}

func (s *documentService) GetByDigest(dbc dbctx.Context, digest string) (*DocumentView, error) {
	doc, err := s.docs.GetByDigest(dbc, digest)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document digest %s: %w", digest, ErrNotFound)
	}
	return s.withLinks(dbc, doc)
}

func (s *documentService) withLinks(dbc dbctx.Context, doc *domain.Document) (*DocumentView, error) {
	links, err := s.links.GetByDocumentID(dbc, doc.ID)
	if err != nil {
		return nil, err
	}
	return &DocumentView{Document: doc, Links: links}, nil
}
