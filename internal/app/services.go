package app

import (
	"fmt"

	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
	"github.com/fanlume/fanlume-backend/internal/realtime/bus"
	"github.com/fanlume/fanlume-backend/internal/services"
)

type Services struct {
	Taxonomy *services.CompiledTaxonomy
	Signals  services.SignalService
	Memory   services.MemoryService
	Quality  services.QualityService
	Handoffs services.HandoffService
	Events   services.MessageEventService
	Notes    services.NoteService
	Emitter  services.SSEEmitter
	Bus      bus.Bus
}

func wireServices(log *logger.Logger, cfg Config, r Repos, hub *realtime.SSEHub) (Services, error) {
	tax, err := services.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return Services{}, fmt.Errorf("load taxonomy: %w", err)
	}
	compiled, err := tax.Compile()
	if err != nil {
		return Services{}, fmt.Errorf("compile taxonomy: %w", err)
	}

	var client services.OpenAIClient
	if cfg.LLMEnabled {
		client, err = services.NewOpenAIClient(log)
		if err != nil {
			log.Warn("language model unavailable; slow-path extraction disabled", "error", err)
			client = nil
		}
	}
	var extractor services.FactExtractor
	if client != nil {
		extractor = services.NewLLMFactExtractor(log, client)
	}

	emitter := services.SSEEmitter(services.NewHubEmitter(hub))
	var redisBus bus.Bus
	if cfg.EmitterMode == "redis" {
		redisBus, err = bus.NewRedisBus(log)
		if err != nil {
			return Services{}, fmt.Errorf("init redis bus: %w", err)
		}
		emitter = services.NewRedisEmitter(log, redisBus)
	}
	notifier := services.NewHandoffNotifier(log, emitter)

	signals := services.NewSignalService(log, compiled, r.FanProfiles, r.Messages, r.Transactions)
	memory := services.NewMemoryService(log, compiled, r.FanMemories, r.Messages, r.Conversations, extractor)
	quality := services.NewQualityService(log, r.FanProfiles, r.Messages, r.Transactions, r.Subscriptions)
	handoffs := services.NewHandoffService(log, compiled,
		r.Handoffs, r.Conversations, r.FanProfiles, r.Transactions, r.Agents, r.CreatorSettings, notifier)
	quality.SetTierUpgradeHook(handoffs.TriggerQualityUpgrade)

	events := services.NewMessageEventService(log, compiled, r.Conversations, signals, memory, quality, handoffs)
	notes := services.NewNoteService(log, r.FanProfiles, memory, client)

	return Services{
		Taxonomy: compiled,
		Signals:  signals,
		Memory:   memory,
		Quality:  quality,
		Handoffs: handoffs,
		Events:   events,
		Notes:    notes,
		Emitter:  emitter,
		Bus:      redisBus,
	}, nil
}
