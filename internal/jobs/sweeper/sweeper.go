package sweeper

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/platform/envutil"
	"github.com/fanlume/fanlume-backend/internal/services"
)

// Scheduler is the slice of cron.Cron the sweeper needs. Injectable so
// tests can drive jobs without waiting on wall-clock time.
type Scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

type Config struct {
	ProfileSpec string
	MemorySpec  string
	HandoffSpec string
	BatchLimit  int
}

func ConfigFromEnv() Config {
	return Config{
		ProfileSpec: envutil.String("SWEEP_PROFILE_SPEC", "@every 15m"),
		MemorySpec:  envutil.String("SWEEP_MEMORY_SPEC", "@every 1h"),
		HandoffSpec: envutil.String("SWEEP_HANDOFF_SPEC", "@every 5m"),
		BatchLimit:  envutil.Int("SWEEP_BATCH_LIMIT", 200),
	}
}

// Sweeper owns the periodic maintenance passes: profile re-scoring for
// fans with newer messages, memory fact expiry, and handoff expiry.
type Sweeper struct {
	log      *logger.Logger
	cfg      Config
	sched    Scheduler
	signals  services.SignalService
	memory   services.MemoryService
	handoffs services.HandoffService
}

func New(
	baseLog *logger.Logger,
	cfg Config,
	sched Scheduler,
	signals services.SignalService,
	memory services.MemoryService,
	handoffs services.HandoffService,
) *Sweeper {
	if sched == nil {
		sched = cron.New()
	}
	return &Sweeper{
		log:      baseLog.With("component", "Sweeper"),
		cfg:      cfg,
		sched:    sched,
		signals:  signals,
		memory:   memory,
		handoffs: handoffs,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{s.cfg.ProfileSpec, "profile_rescore", func() { s.SweepProfiles(ctx) }},
		{s.cfg.MemorySpec, "memory_expiry", func() { s.SweepMemory(ctx) }},
		{s.cfg.HandoffSpec, "handoff_expiry", func() { s.SweepHandoffs(ctx) }},
	}
	for _, j := range jobs {
		if _, err := s.sched.AddFunc(j.spec, j.run); err != nil {
			return err
		}
		s.log.Info("sweep scheduled", "job", j.name, "spec", j.spec)
	}
	s.sched.Start()
	return nil
}

func (s *Sweeper) Stop() {
	<-s.sched.Stop().Done()
	s.log.Info("sweeper stopped")
}

func (s *Sweeper) SweepProfiles(ctx context.Context) {
	n, err := s.signals.SweepStaleProfiles(dbctx.Context{Ctx: ctx}, s.cfg.BatchLimit)
	if err != nil {
		s.log.Error("profile sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("profiles re-scored", "count", n)
	}
}

func (s *Sweeper) SweepMemory(ctx context.Context) {
	n, err := s.memory.SweepExpired(dbctx.Context{Ctx: ctx}, s.cfg.BatchLimit)
	if err != nil {
		s.log.Error("memory sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("expired facts deactivated", "count", n)
	}
}

func (s *Sweeper) SweepHandoffs(ctx context.Context) {
	n, err := s.handoffs.SweepExpired(dbctx.Context{Ctx: ctx}, s.cfg.BatchLimit)
	if err != nil {
		s.log.Error("handoff sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("handoffs expired", "count", n)
	}
}
