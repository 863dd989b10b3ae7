package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const workerTimeout = 30 * time.Second

// MessageEventService is the engine's ingress: the messaging subsystem
// reports inbound fan messages and purchases here, and the service fans
// the event out to the extraction, classification, and handoff paths.
type MessageEventService interface {
	OnFanMessage(dbc dbctx.Context, conversationID uuid.UUID, text string) error
	OnPurchase(dbc dbctx.Context, fanID, creatorID uuid.UUID) error
}

type messageEventService struct {
	log           *logger.Logger
	tax           *CompiledTaxonomy
	conversations repos.ConversationRepo
	signals       SignalService
	memory        MemoryService
	quality       QualityService
	handoffs      HandoffService
}

func NewMessageEventService(
	baseLog *logger.Logger,
	tax *CompiledTaxonomy,
	conversations repos.ConversationRepo,
	signals SignalService,
	memory MemoryService,
	quality QualityService,
	handoffs HandoffService,
) MessageEventService {
	return &messageEventService{
		log:           baseLog.With("service", "MessageEventService"),
		tax:           tax,
		conversations: conversations,
		signals:       signals,
		memory:        memory,
		quality:       quality,
		handoffs:      handoffs,
	}
}

// OnFanMessage runs the cheap synchronous path (counters and handoff
// trigger evaluation) inline and the expensive extraction paths in the
// background. Worker failures are logged and swallowed so the message
// send is never blocked.
func (s *messageEventService) OnFanMessage(dbc dbctx.Context, conversationID uuid.UUID, text string) error {
	conv, err := s.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return pkgerrors.ErrNotFound
	}

	if err := s.quality.RecordFanMessage(dbc, conv.FanID, conv.CreatorID); err != nil {
		s.log.Warn("message counter bump failed", "fan_id", conv.FanID, "error", err)
	}
	if s.containsFreeRequest(text) {
		if err := s.quality.RecordFreeContentRequest(dbc, conv.FanID, conv.CreatorID); err != nil {
			s.log.Warn("free-request counter bump failed", "fan_id", conv.FanID, "error", err)
		}
	}

	s.handoffs.CheckTriggers(dbc, conversationID, text)

	// Detach from the request context; the caller returns immediately.
	go s.runExtraction(conv)
	return nil
}

func (s *messageEventService) runExtraction(conv *types.Conversation) {
	ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
	defer cancel()
	bg := dbctx.Context{Ctx: ctx}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.signals.ExtractForPair(bg, conv.FanID, conv.CreatorID)
	})
	g.Go(func() error {
		return s.memory.ExtractFromConversation(bg, conv.ID)
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("background extraction failed", "conversation_id", conv.ID, "error", err)
	}
}

func (s *messageEventService) containsFreeRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range s.tax.FreeRequestPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// OnPurchase resets the no-purchase counter and forces an immediate
// quality recomputation, which can lift the fan out of AI-only mode.
func (s *messageEventService) OnPurchase(dbc dbctx.Context, fanID, creatorID uuid.UUID) error {
	return s.quality.OnPurchase(dbc, fanID, creatorID)
}
