package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

type handoffFixture struct {
	svc      HandoffService
	handoffs *fakeHandoffRepo
	convs    *fakeConversationRepo
	profiles *fakeProfileRepo
	txns     *fakeTransactionRepo
	agents   *fakeAgentRepo
	settings *fakeSettingsRepo
	emitter  *recordingEmitter

	conversationID uuid.UUID
	fanID          uuid.UUID
	creatorID      uuid.UUID
}

func newHandoffFixture(t *testing.T) *handoffFixture {
	t.Helper()
	f := &handoffFixture{
		handoffs:       newFakeHandoffRepo(),
		convs:          newFakeConversationRepo(),
		profiles:       newFakeProfileRepo(),
		txns:           newFakeTransactionRepo(),
		agents:         newFakeAgentRepo(),
		settings:       newFakeSettingsRepo(),
		emitter:        &recordingEmitter{},
		conversationID: uuid.New(),
		fanID:          uuid.New(),
		creatorID:      uuid.New(),
	}
	f.convs.conversations[f.conversationID] = &types.Conversation{
		ID:        f.conversationID,
		FanID:     f.fanID,
		CreatorID: f.creatorID,
		Mode:      types.ConversationModeAuto,
	}
	log := newTestLogger(t)
	notifier := NewHandoffNotifier(log, f.emitter)
	f.svc = NewHandoffService(log, mustCompiledTaxonomy(t),
		f.handoffs, f.convs, f.profiles, f.txns, f.agents, f.settings, notifier)
	return f
}

func (f *handoffFixture) configure(cfg types.CreatorAISettings) {
	cfg.CreatorID = f.creatorID
	f.settings.settings[f.creatorID] = &cfg
}

func (f *handoffFixture) addAgent() uuid.UUID {
	a := &types.Agent{ID: uuid.New(), DisplayName: "agent", Available: true}
	f.agents.agents[f.creatorID] = append(f.agents.agents[f.creatorID], a)
	return a.ID
}

func (f *handoffFixture) onlyHandoff(t *testing.T) *types.ConversationHandoff {
	t.Helper()
	rows, err := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one handoff, got %d", len(rows))
	}
	return rows[0]
}

func TestSpendingTriggerAutoAssignsLeastLoaded(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, AutoAssignEnabled: true})
	busy := f.addAgent()
	idle := f.addAgent()
	f.convs.assisted[busy] = 3
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 55, PurchaseCount: 2})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")

	row := f.onlyHandoff(t)
	if row.TriggerType != types.TriggerSpendingThreshold {
		t.Fatalf("trigger = %s", row.TriggerType)
	}
	if row.TriggerValue != "spent:55.00" {
		t.Fatalf("trigger value = %q", row.TriggerValue)
	}
	if row.Status != types.HandoffStatusAutoAssigned {
		t.Fatalf("status = %s", row.Status)
	}
	if row.ToAgentID == nil || *row.ToAgentID != idle {
		t.Fatalf("assigned to %v, want idle agent %s", row.ToAgentID, idle)
	}

	conv, _ := f.convs.GetByID(testDBC(), f.conversationID)
	if conv.Mode != types.ConversationModeAssisted {
		t.Fatalf("conversation not flipped to assisted: %s", conv.Mode)
	}
	if len(f.emitter.messages) != 2 {
		t.Fatalf("expected both agents notified, got %d events", len(f.emitter.messages))
	}
	if f.emitter.messages[0].Event != realtime.SSEEventHandoffAssigned {
		t.Fatalf("event = %s", f.emitter.messages[0].Event)
	}
}

func TestSpendingTriggerWithoutAutoAssignStaysPending(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})
	f.addAgent()
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 40})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")

	row := f.onlyHandoff(t)
	if row.Status != types.HandoffStatusPending || row.ToAgentID != nil {
		t.Fatalf("expected unassigned pending handoff: %+v", row)
	}
	if time.Until(row.ExpiresAt) > 25*time.Hour || time.Until(row.ExpiresAt) < 23*time.Hour {
		t.Fatalf("expiry not ~24h: %v", row.ExpiresAt)
	}
	if f.emitter.messages[0].Event != realtime.SSEEventHandoffCreated {
		t.Fatalf("event = %s", f.emitter.messages[0].Event)
	}
}

func TestHighIntentTriggerMatchesKeywords(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, HighIntentHandoffEnabled: true})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "How much to unlock this? I want to buy")

	row := f.onlyHandoff(t)
	if row.TriggerType != types.TriggerHighIntent {
		t.Fatalf("trigger = %s", row.TriggerType)
	}
	for _, kw := range []string{"buy", "how much", "unlock"} {
		if !strings.Contains(row.TriggerValue, kw) {
			t.Fatalf("trigger value %q missing %q", row.TriggerValue, kw)
		}
	}
}

func TestHighIntentDisabledDoesNotFire(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "i want to buy")

	if rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0); len(rows) != 0 {
		t.Fatalf("handoff fired with high-intent disabled: %+v", rows)
	}
}

func TestTriggersBlockedByAIOnlyProfile(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, HighIntentHandoffEnabled: true})
	f.profiles.Upsert(testDBC(), &types.FanProfile{
		FanID: f.fanID, CreatorID: f.creatorID, AIOnlyMode: true,
	})
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 500})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "i want to buy")

	if rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0); len(rows) != 0 {
		t.Fatalf("ai-only fan reached a human: %+v", rows)
	}
}

func TestTriggersBlockedByActiveHandoff(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 500})
	f.handoffs.Create(testDBC(), &types.ConversationHandoff{
		ConversationID: f.conversationID,
		TriggerType:    types.TriggerManual,
		Status:         types.HandoffStatusPending,
	})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "hello")

	if rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0); len(rows) != 1 {
		t.Fatalf("second concurrent handoff opened: %d rows", len(rows))
	}
}

func TestTriggersSkipAssistedConversation(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})
	f.convs.conversations[f.conversationID].Mode = types.ConversationModeAssisted
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 500})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "hello")

	if rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0); len(rows) != 0 {
		t.Fatalf("trigger fired on assisted conversation: %+v", rows)
	}
}

func TestTriggersMissingSettingsFailClosed(t *testing.T) {
	f := newHandoffFixture(t)
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 500})

	f.svc.CheckTriggers(testDBC(), f.conversationID, "i want to buy")

	if rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0); len(rows) != 0 {
		t.Fatalf("handoff fired without creator settings: %+v", rows)
	}
}

func TestAcceptFromPending(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})
	agentID := f.addAgent()
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 50})
	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")
	pending := f.onlyHandoff(t)

	accepted, err := f.svc.Accept(testDBC(), pending.ID, agentID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != types.HandoffStatusAccepted {
		t.Fatalf("status = %s", accepted.Status)
	}
	if accepted.ToAgentID == nil || *accepted.ToAgentID != agentID {
		t.Fatalf("to_agent = %v", accepted.ToAgentID)
	}
	if accepted.RespondedAt == nil {
		t.Fatal("responded_at not stamped")
	}
	conv, _ := f.convs.GetByID(testDBC(), f.conversationID)
	if conv.Mode != types.ConversationModeAssisted || *conv.AssignedAgentID != agentID {
		t.Fatalf("conversation not assigned: %+v", conv)
	}
}

func TestAcceptResolvedHandoffIsRejected(t *testing.T) {
	f := newHandoffFixture(t)
	agentID := f.addAgent()
	row := &types.ConversationHandoff{
		ConversationID: f.conversationID,
		TriggerType:    types.TriggerManual,
		Status:         types.HandoffStatusExpired,
	}
	f.handoffs.Create(testDBC(), row)

	if _, err := f.svc.Accept(testDBC(), row.ID, agentID); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAcceptByWrongAgentIsRejected(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, AutoAssignEnabled: true})
	assigned := f.addAgent()
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 50})
	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")
	row := f.onlyHandoff(t)
	if row.Status != types.HandoffStatusAutoAssigned || *row.ToAgentID != assigned {
		t.Fatalf("fixture expected auto-assignment: %+v", row)
	}

	other := uuid.New()
	if _, err := f.svc.Accept(testDBC(), row.ID, other); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict for wrong agent, got %v", err)
	}
}

func TestAcceptMissingHandoff(t *testing.T) {
	f := newHandoffFixture(t)
	if _, err := f.svc.Accept(testDBC(), uuid.New(), uuid.New()); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeclineCascadesToOtherAgent(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, AutoAssignEnabled: true})
	first := f.addAgent()
	second := f.addAgent()
	f.convs.assisted[second] = 5 // first is least loaded and gets the offer
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 50})
	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")
	original := f.onlyHandoff(t)
	if *original.ToAgentID != first {
		t.Fatalf("fixture expected first agent assigned, got %v", original.ToAgentID)
	}

	declined, err := f.svc.Decline(testDBC(), original.ID, first, "busy")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != types.HandoffStatusDeclined {
		t.Fatalf("status = %s", declined.Status)
	}

	rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0)
	if len(rows) != 2 {
		t.Fatalf("cascade did not open a new handoff: %d rows", len(rows))
	}
	var cascade *types.ConversationHandoff
	for _, r := range rows {
		if r.ID != original.ID {
			cascade = r
		}
	}
	if cascade.TriggerType != original.TriggerType || cascade.TriggerValue != original.TriggerValue {
		t.Fatalf("cascade lost trigger provenance: %+v", cascade)
	}
	if cascade.ToAgentID == nil || *cascade.ToAgentID != second {
		t.Fatalf("cascade assigned to %v, want %s", cascade.ToAgentID, second)
	}
	if cascade.Notes == nil || !strings.Contains(*cascade.Notes, "reassigned after decline by agent "+first.String()) {
		t.Fatalf("cascade note missing provenance: %v", cascade.Notes)
	}
}

func TestDeclineWithNoCandidateRevertsToAuto(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, AutoAssignEnabled: true})
	only := f.addAgent()
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 50})
	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")
	original := f.onlyHandoff(t)

	if _, err := f.svc.Decline(testDBC(), original.ID, only, ""); err != nil {
		t.Fatalf("decline: %v", err)
	}
	rows, _ := f.handoffs.ListByConversation(testDBC(), f.conversationID, 0)
	if len(rows) != 1 {
		t.Fatalf("cascade fired with no eligible agent: %d rows", len(rows))
	}
	conv, _ := f.convs.GetByID(testDBC(), f.conversationID)
	if conv.Mode != types.ConversationModeAuto || conv.AssignedAgentID != nil {
		t.Fatalf("conversation not handed back to the AI: %+v", conv)
	}
}

func TestDeclineByWrongAgentIsRejected(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40, AutoAssignEnabled: true})
	f.addAgent()
	f.txns.set(f.fanID, f.creatorID, repos.SpendSummary{TotalSpent: 50})
	f.svc.CheckTriggers(testDBC(), f.conversationID, "hey")
	row := f.onlyHandoff(t)

	if _, err := f.svc.Decline(testDBC(), row.ID, uuid.New(), ""); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRequestManualConflictsWithActiveHandoff(t *testing.T) {
	f := newHandoffFixture(t)
	f.addAgent()

	first, err := f.svc.RequestManual(testDBC(), f.conversationID, "please take over")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if first.TriggerType != types.TriggerManual || first.Notes == nil {
		t.Fatalf("unexpected manual handoff: %+v", first)
	}

	if _, err := f.svc.RequestManual(testDBC(), f.conversationID, "again"); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict for second request, got %v", err)
	}
}

func TestQualityUpgradeOpensHandoff(t *testing.T) {
	f := newHandoffFixture(t)
	f.configure(types.CreatorAISettings{SpendingHandoffThreshold: 40})
	f.addAgent()

	f.svc.TriggerQualityUpgrade(testDBC(), f.fanID, f.creatorID, QualityResult{
		Score: 85, Tier: types.QualityTierVIP,
	})

	row := f.onlyHandoff(t)
	if row.TriggerType != types.TriggerQualityUpgrade {
		t.Fatalf("trigger = %s", row.TriggerType)
	}
	if row.TriggerValue != "score:85" {
		t.Fatalf("trigger value = %q", row.TriggerValue)
	}
}

func TestSweepExpiredTransitionsAndNotifies(t *testing.T) {
	f := newHandoffFixture(t)
	f.addAgent()
	stale := &types.ConversationHandoff{
		ConversationID: f.conversationID,
		TriggerType:    types.TriggerManual,
		Status:         types.HandoffStatusPending,
		CreatedAt:      time.Now().UTC().Add(-48 * time.Hour),
	}
	f.handoffs.Create(testDBC(), stale)

	n, err := f.svc.SweepExpired(testDBC(), 100)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d, want 1", n)
	}
	row, _ := f.handoffs.GetByID(testDBC(), stale.ID)
	if row.Status != types.HandoffStatusExpired {
		t.Fatalf("status = %s", row.Status)
	}
	if len(f.emitter.messages) != 1 || f.emitter.messages[0].Event != realtime.SSEEventHandoffExpired {
		t.Fatalf("expiry not notified: %+v", f.emitter.messages)
	}

	// An expired handoff can no longer be claimed.
	if _, err := f.svc.Accept(testDBC(), stale.ID, uuid.New()); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("expected conflict accepting expired, got %v", err)
	}
}
