package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
)

type stubSignalService struct {
	mu    sync.Mutex
	pairs int
}

func (s *stubSignalService) ExtractForPair(_ dbctx.Context, _, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs++
	return nil
}

func (s *stubSignalService) SweepStaleProfiles(_ dbctx.Context, _ int) (int, error) { return 0, nil }

type stubMemoryService struct {
	mu            sync.Mutex
	conversations int
}

func (s *stubMemoryService) ExtractFromConversation(_ dbctx.Context, _ uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations++
	return nil
}

func (s *stubMemoryService) GetMemoryContext(_ dbctx.Context, _, _ uuid.UUID) (*MemoryContext, error) {
	return &MemoryContext{}, nil
}

func (s *stubMemoryService) SaveManualFact(_ dbctx.Context, _, _ uuid.UUID, _ types.MemoryCategory, _, _ string, _ types.MemorySource) error {
	return nil
}
func (s *stubMemoryService) DeactivateFact(_ dbctx.Context, _ uuid.UUID) error { return nil }
func (s *stubMemoryService) SweepExpired(_ dbctx.Context, _ int) (int64, error) {
	return 0, nil
}

type stubQualityService struct {
	fanMessages  int
	freeRequests int
	purchases    int
}

func (s *stubQualityService) Recompute(_ dbctx.Context, _, _ uuid.UUID) (*QualityResult, error) {
	return &QualityResult{}, nil
}

func (s *stubQualityService) OnPurchase(_ dbctx.Context, _, _ uuid.UUID) error {
	s.purchases++
	return nil
}

func (s *stubQualityService) RecordFanMessage(_ dbctx.Context, _, _ uuid.UUID) error {
	s.fanMessages++
	return nil
}

func (s *stubQualityService) RecordFreeContentRequest(_ dbctx.Context, _, _ uuid.UUID) error {
	s.freeRequests++
	return nil
}

func (s *stubQualityService) SweepCreator(_ dbctx.Context, _ uuid.UUID, _ int) (int, error) {
	return 0, nil
}
func (s *stubQualityService) SetTierUpgradeHook(_ TierUpgradeFunc) {}

type stubHandoffService struct {
	checked []string
}

func (s *stubHandoffService) CheckTriggers(_ dbctx.Context, _ uuid.UUID, text string) {
	s.checked = append(s.checked, text)
}

func (s *stubHandoffService) RequestManual(_ dbctx.Context, _ uuid.UUID, _ string) (*types.ConversationHandoff, error) {
	return nil, nil
}

func (s *stubHandoffService) TriggerQualityUpgrade(_ dbctx.Context, _, _ uuid.UUID, _ QualityResult) {
}

func (s *stubHandoffService) Accept(_ dbctx.Context, _, _ uuid.UUID) (*types.ConversationHandoff, error) {
	return nil, nil
}

func (s *stubHandoffService) Decline(_ dbctx.Context, _, _ uuid.UUID, _ string) (*types.ConversationHandoff, error) {
	return nil, nil
}

func (s *stubHandoffService) ListByConversation(_ dbctx.Context, _ uuid.UUID, _ int) ([]*types.ConversationHandoff, error) {
	return nil, nil
}

func (s *stubHandoffService) SweepExpired(_ dbctx.Context, _ int) (int, error) { return 0, nil }

type eventFixture struct {
	svc      MessageEventService
	convs    *fakeConversationRepo
	signals  *stubSignalService
	memory   *stubMemoryService
	quality  *stubQualityService
	handoffs *stubHandoffService

	conversationID uuid.UUID
}

func newEventFixture(t *testing.T) *eventFixture {
	t.Helper()
	f := &eventFixture{
		convs:          newFakeConversationRepo(),
		signals:        &stubSignalService{},
		memory:         &stubMemoryService{},
		quality:        &stubQualityService{},
		handoffs:       &stubHandoffService{},
		conversationID: uuid.New(),
	}
	f.convs.conversations[f.conversationID] = &types.Conversation{
		ID:        f.conversationID,
		FanID:     uuid.New(),
		CreatorID: uuid.New(),
		Mode:      types.ConversationModeAuto,
	}
	f.svc = NewMessageEventService(newTestLogger(t), mustCompiledTaxonomy(t),
		f.convs, f.signals, f.memory, f.quality, f.handoffs)
	return f
}

func TestOnFanMessageRunsSynchronousPath(t *testing.T) {
	f := newEventFixture(t)

	if err := f.svc.OnFanMessage(testDBC(), f.conversationID, "hey there"); err != nil {
		t.Fatalf("on message: %v", err)
	}
	if f.quality.fanMessages != 1 {
		t.Fatalf("message counter bumps = %d", f.quality.fanMessages)
	}
	if f.quality.freeRequests != 0 {
		t.Fatalf("free-request bump for a plain message: %d", f.quality.freeRequests)
	}
	if len(f.handoffs.checked) != 1 || f.handoffs.checked[0] != "hey there" {
		t.Fatalf("trigger check missing: %v", f.handoffs.checked)
	}
}

func TestOnFanMessageDetectsFreeRequestPhrase(t *testing.T) {
	f := newEventFixture(t)

	if err := f.svc.OnFanMessage(testDBC(), f.conversationID, "Can you send me FREE PIC please"); err != nil {
		t.Fatalf("on message: %v", err)
	}
	if f.quality.freeRequests != 1 {
		t.Fatalf("free-request phrase not counted: %d", f.quality.freeRequests)
	}
}

func TestOnFanMessageUnknownConversation(t *testing.T) {
	f := newEventFixture(t)

	err := f.svc.OnFanMessage(testDBC(), uuid.New(), "hello")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if f.quality.fanMessages != 0 || len(f.handoffs.checked) != 0 {
		t.Fatal("pipeline ran for an unknown conversation")
	}
}

func TestOnPurchaseDelegates(t *testing.T) {
	f := newEventFixture(t)
	if err := f.svc.OnPurchase(testDBC(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("on purchase: %v", err)
	}
	if f.quality.purchases != 1 {
		t.Fatalf("purchase not delegated: %d", f.quality.purchases)
	}
}
