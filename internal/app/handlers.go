package app

import (
	httpH "github.com/ledgerpilot/ledgerpilot-backend/internal/http/handlers"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type Handlers struct {
	Document   *httpH.DocumentHandler
	Party      *httpH.PartyHandler
	Commitment *httpH.CommitmentHandler
	Timeline   *httpH.TimelineHandler
	Health     *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, svcs Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Document:   httpH.NewDocumentHandler(log, svcs.Pipeline, svcs.Documents),
		Party:      httpH.NewPartyHandler(log, svcs.Parties),
		Commitment: httpH.NewCommitmentHandler(log, svcs.Commitments),
		Timeline:   httpH.NewTimelineHandler(log, svcs.Timeline),
		Health:     httpH.NewHealthHandler(),
	}
}
