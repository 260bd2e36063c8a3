package app

import (
	"gorm.io/gorm"

	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/audit"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/commitments"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/documents"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/data/repos/parties"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type Repos struct {
	Documents     documents.DocumentRepo
	DocumentLinks documents.DocumentLinkRepo
	Parties       parties.PartyRepo
	Roles         parties.RoleRepo
	Commitments   commitments.CommitmentRepo
	Interactions  audit.InteractionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Documents:     documents.NewDocumentRepo(db, log),
		DocumentLinks: documents.NewDocumentLinkRepo(db, log),
		Parties:       parties.NewPartyRepo(db, log),
		Roles:         parties.NewRoleRepo(db, log),
		Commitments:   commitments.NewCommitmentRepo(db, log),
		Interactions:  audit.NewInteractionRepo(db, log),
	}
}
