package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/ledgerpilot/ledgerpilot-backend/internal/http/handlers"
	httpMW "github.com/ledgerpilot/ledgerpilot-backend/internal/http/middleware"
	"github.com/ledgerpilot/ledgerpilot-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	DocumentHandler   *httpH.DocumentHandler
	PartyHandler      *httpH.PartyHandler
	CommitmentHandler *httpH.CommitmentHandler
	TimelineHandler   *httpH.TimelineHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("ledgerpilot-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.DocumentHandler != nil {
			api.POST("/documents", cfg.DocumentHandler.Upload)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
		}

		if cfg.PartyHandler != nil {
			api.GET("/parties", cfg.PartyHandler.List)
			api.GET("/parties/:id", cfg.PartyHandler.Get)
		}

		if cfg.CommitmentHandler != nil {
			api.GET("/commitments", cfg.CommitmentHandler.List)
			api.GET("/commitments/:id", cfg.CommitmentHandler.Get)
			api.PATCH("/commitments/:id", cfg.CommitmentHandler.Patch)
			api.POST("/commitments/:id/fulfill", cfg.CommitmentHandler.Fulfill)
			api.POST("/commitments/:id/pause", cfg.CommitmentHandler.Pause)
			api.POST("/commitments/:id/resume", cfg.CommitmentHandler.Resume)
			api.POST("/commitments/:id/cancel", cfg.CommitmentHandler.Cancel)
		}

		if cfg.TimelineHandler != nil {
			api.GET("/timeline/recent", cfg.TimelineHandler.Recent)
			api.GET("/timeline/:entityType/:id", cfg.TimelineHandler.ByEntity)
		}
	}

	return r
}
