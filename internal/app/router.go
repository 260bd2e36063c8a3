package app

import (
	"github.com/gin-gonic/gin"

	appHTTP "github.com/ledgerpilot/ledgerpilot-backend/internal/http"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return appHTTP.NewRouter(appHTTP.RouterConfig{
		Log:               log,
		DocumentHandler:   handlers.Document,
		PartyHandler:      handlers.Party,
		CommitmentHandler: handlers.Commitment,
		TimelineHandler:   handlers.Timeline,
		HealthHandler:     handlers.Health,
	})
}
