package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/fanlume/fanlume-backend/internal/data/db"
	apphttp "github.com/fanlume/fanlume-backend/internal/http"
	"github.com/fanlume/fanlume-backend/internal/jobs/sweeper"
	"github.com/fanlume/fanlume-backend/internal/observability"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/platform/envutil"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Handlers Handlers
	Server   *apphttp.Server
	Hub      *realtime.SSEHub
	Sweeper  *sweeper.Sweeper

	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := pg.DB()

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(log, cfg, reposet, hub)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, reposet, serviceset, hub)
	server := wireRouter(log, cfg, handlerset)

	sw := sweeper.New(log, sweeper.ConfigFromEnv(), nil,
		serviceset.Signals, serviceset.Memory, serviceset.Handoffs)

	return &App{
		Log:      log,
		DB:       theDB,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Handlers: handlerset,
		Server:   server,
		Hub:      hub,
		Sweeper:  sw,
	}, nil
}

// Start launches the background pieces: tracing, the sweep scheduler,
// and (when the redis bus is in play) the event forwarder.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: a.Cfg.ServiceName,
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if a.Services.Bus != nil {
		if err := a.Services.Bus.StartForwarder(ctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start bus forwarder: %w", err)
		}
	}

	if err := a.Sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("listening", "addr", a.Cfg.Addr)
	return a.Server.Run(a.Cfg.Addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.Services.Bus != nil {
		if err := a.Services.Bus.Close(); err != nil {
			a.Log.Warn("bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
