package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/parties"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/domain"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/dbctx"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type PartyService interface {
	GetParty(dbc dbctx.Context, id uuid.UUID) (*domain.Party, error)
	ListByKind(dbc dbctx.Context, kind string) ([]*domain.Party, error)
}

type partyService struct {
	log     *logger.Logger
	parties parties.PartyRepo
}

func NewPartyService(log *logger.Logger, partyRepo parties.PartyRepo) PartyService {
	return &partyService{
		log:     log.With("service", "PartyService"),
		parties: partyRepo,
	}
}

func (s *partyService) GetParty(dbc dbctx.Context, id uuid.UUID) (*domain.Party, error) {
	p, err := s.parties.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("party %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *partyService) ListByKind(dbc dbctx.Context, kind string) ([]*domain.Party, error) {
	return s.parties.ListByKind(dbc, kind)
}
