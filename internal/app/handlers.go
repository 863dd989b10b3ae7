package app

import (
	apphttp "github.com/fanlume/fanlume-backend/internal/http"
	httpH "github.com/fanlume/fanlume-backend/internal/http/handlers"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Events   *httpH.EventsHandler
	Fans     *httpH.FanHandler
	Handoffs *httpH.HandoffHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, r Repos, s Services, hub *realtime.SSEHub) Handlers {
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Events:   httpH.NewEventsHandler(s.Events),
		Fans:     httpH.NewFanHandler(r.FanProfiles, s.Memory, s.Quality, s.Notes),
		Handoffs: httpH.NewHandoffHandler(s.Handoffs),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		HealthHandler:   h.Health,
		EventsHandler:   h.Events,
		FanHandler:      h.Fans,
		HandoffHandler:  h.Handoffs,
		RealtimeHandler: h.Realtime,
	})
}
