package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/fanlume/fanlume-backend/internal/http/handlers"
	httpMW "github.com/fanlume/fanlume-backend/internal/http/middleware"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	HealthHandler   *httpH.HealthHandler
	EventsHandler   *httpH.EventsHandler
	FanHandler      *httpH.FanHandler
	HandoffHandler  *httpH.HandoffHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	if cfg.RealtimeHandler != nil {
		r.GET("/sse/stream", cfg.RealtimeHandler.Stream)
	}

	api := r.Group("/api")
	{
		if cfg.EventsHandler != nil {
			api.POST("/messages/events", cfg.EventsHandler.OnFanMessage)
			api.POST("/purchases/events", cfg.EventsHandler.OnPurchase)
		}

		if cfg.FanHandler != nil {
			fans := api.Group("/creators/:creatorID/fans/:fanID")
			fans.GET("/profile", cfg.FanHandler.GetProfile)
			fans.GET("/memory", cfg.FanHandler.GetMemory)
			fans.GET("/memory/prompt", cfg.FanHandler.GetMemoryPrompt)
			fans.POST("/memory", cfg.FanHandler.SaveFact)
			fans.POST("/quality/recompute", cfg.FanHandler.RecomputeQuality)
			fans.PUT("/note", cfg.FanHandler.SetNote)
			fans.POST("/note/generate", cfg.FanHandler.GenerateNote)

			api.POST("/creators/:creatorID/quality/sweep", cfg.FanHandler.SweepCreatorQuality)
			api.DELETE("/memory/:id", cfg.FanHandler.DeactivateFact)
		}

		if cfg.HandoffHandler != nil {
			api.GET("/conversations/:id/handoffs", cfg.HandoffHandler.ListForConversation)
			api.POST("/conversations/:id/handoffs", cfg.HandoffHandler.RequestManual)
			api.POST("/handoffs/:id/accept", cfg.HandoffHandler.Accept)
			api.POST("/handoffs/:id/decline", cfg.HandoffHandler.Decline)
		}
	}

	return r
}
