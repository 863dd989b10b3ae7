package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/pkg/pointers"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

type HandoffService interface {
	// CheckTriggers runs the cheap trigger evaluation for one inbound fan
	// message. It never returns an error: evaluation failures fail closed.
	CheckTriggers(dbc dbctx.Context, conversationID uuid.UUID, messageText string)
	RequestManual(dbc dbctx.Context, conversationID uuid.UUID, note string) (*types.ConversationHandoff, error)
	TriggerQualityUpgrade(dbc dbctx.Context, fanID, creatorID uuid.UUID, result QualityResult)
	Accept(dbc dbctx.Context, handoffID, agentID uuid.UUID) (*types.ConversationHandoff, error)
	Decline(dbc dbctx.Context, handoffID, agentID uuid.UUID, note string) (*types.ConversationHandoff, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.ConversationHandoff, error)
	SweepExpired(dbc dbctx.Context, limit int) (int, error)
}

type handoffService struct {
	log           *logger.Logger
	tax           *CompiledTaxonomy
	handoffs      repos.HandoffRepo
	conversations repos.ConversationRepo
	profiles      repos.FanProfileRepo
	transactions  repos.TransactionRepo
	agents        repos.AgentRepo
	settings      repos.CreatorSettingsRepo
	notifier      *HandoffNotifier
}

func NewHandoffService(
	baseLog *logger.Logger,
	tax *CompiledTaxonomy,
	handoffs repos.HandoffRepo,
	conversations repos.ConversationRepo,
	profiles repos.FanProfileRepo,
	transactions repos.TransactionRepo,
	agents repos.AgentRepo,
	settings repos.CreatorSettingsRepo,
	notifier *HandoffNotifier,
) HandoffService {
	return &handoffService{
		log:           baseLog.With("service", "HandoffService"),
		tax:           tax,
		handoffs:      handoffs,
		conversations: conversations,
		profiles:      profiles,
		transactions:  transactions,
		agents:        agents,
		settings:      settings,
		notifier:      notifier,
	}
}

func (s *handoffService) CheckTriggers(dbc dbctx.Context, conversationID uuid.UUID, messageText string) {
	conv, err := s.conversations.GetByID(dbc, conversationID)
	if err != nil || conv == nil {
		if err != nil {
			s.log.Warn("trigger evaluation aborted", "conversation_id", conversationID, "error", err)
		}
		return
	}
	if conv.Mode != types.ConversationModeAuto {
		return
	}

	cfg, err := s.settings.GetByCreator(dbc, conv.CreatorID)
	if err != nil || cfg == nil {
		if err != nil {
			s.log.Warn("settings load failed during trigger evaluation", "creator_id", conv.CreatorID, "error", err)
		}
		return
	}

	profile, err := s.profiles.GetByPair(dbc, conv.FanID, conv.CreatorID)
	if err != nil {
		s.log.Warn("profile load failed during trigger evaluation", "fan_id", conv.FanID, "error", err)
		return
	}
	if profile != nil && profile.AIOnlyMode {
		return
	}

	active, err := s.handoffs.GetActiveByConversation(dbc, conversationID)
	if err != nil {
		s.log.Warn("active handoff lookup failed", "conversation_id", conversationID, "error", err)
		return
	}
	if active != nil {
		return
	}

	summary, err := s.transactions.Summary(dbc, conv.FanID, conv.CreatorID)
	if err != nil {
		s.log.Warn("spend summary failed during trigger evaluation", "fan_id", conv.FanID, "error", err)
		return
	}
	if summary.TotalSpent >= cfg.SpendingHandoffThreshold {
		evidence, _ := json.Marshal(map[string]any{"total_spent": summary.TotalSpent})
		s.fire(dbc, conv, cfg, types.TriggerSpendingThreshold,
			fmt.Sprintf("spent:%.2f", summary.TotalSpent), evidence, nil, nil)
		return
	}

	if cfg.HighIntentHandoffEnabled {
		matched := s.matchHighIntent(messageText)
		if len(matched) > 0 {
			evidence, _ := json.Marshal(map[string]any{"matched_keywords": matched})
			s.fire(dbc, conv, cfg, types.TriggerHighIntent,
				"keywords:"+strings.Join(matched, ","), evidence, nil, nil)
		}
	}
}

func (s *handoffService) matchHighIntent(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	seen := map[string]bool{}
	for _, keywords := range s.tax.HighIntentKeywords {
		for _, kw := range keywords {
			if !seen[kw] && strings.Contains(lower, kw) {
				seen[kw] = true
				matched = append(matched, kw)
			}
		}
	}
	return matched
}

// TriggerQualityUpgrade is wired as the quality classifier's upgrade
// hook. It opens a quality_upgrade handoff unless one is already active.
func (s *handoffService) TriggerQualityUpgrade(dbc dbctx.Context, fanID, creatorID uuid.UUID, result QualityResult) {
	conv, err := s.conversationForPair(dbc, fanID, creatorID)
	if err != nil || conv == nil || conv.Mode != types.ConversationModeAuto {
		return
	}
	cfg, err := s.settings.GetByCreator(dbc, creatorID)
	if err != nil || cfg == nil {
		return
	}
	active, err := s.handoffs.GetActiveByConversation(dbc, conv.ID)
	if err != nil || active != nil {
		return
	}
	evidence, _ := json.Marshal(map[string]any{"score": result.Score, "tier": result.Tier})
	s.fire(dbc, conv, cfg, types.TriggerQualityUpgrade,
		fmt.Sprintf("score:%d", result.Score), evidence, nil, nil)
}

func (s *handoffService) conversationForPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*types.Conversation, error) {
	return s.conversations.GetByPair(dbc, fanID, creatorID)
}

// fire creates the handoff and runs assignment. excludeAgent carries the
// declining agent on a cascade; note annotates reassignment provenance.
func (s *handoffService) fire(
	dbc dbctx.Context,
	conv *types.Conversation,
	cfg *types.CreatorAISettings,
	trigger types.HandoffTriggerType,
	value string,
	evidence []byte,
	excludeAgent *uuid.UUID,
	note *string,
) *types.ConversationHandoff {
	row := &types.ConversationHandoff{
		ConversationID: conv.ID,
		TriggerType:    trigger,
		TriggerValue:   value,
		FromAgentID:    conv.ActivePersonaID,
		Status:         types.HandoffStatusPending,
		Notes:          note,
	}
	if len(evidence) > 0 {
		row.Evidence = datatypes.JSON(evidence)
	}

	event := realtime.SSEEventHandoffCreated
	if cfg.AutoAssignEnabled {
		candidate, err := s.leastLoadedAgent(dbc, conv.CreatorID, excludeAgent)
		if err != nil {
			s.log.Warn("agent selection failed", "creator_id", conv.CreatorID, "error", err)
		} else if candidate != nil {
			row.Status = types.HandoffStatusAutoAssigned
			row.ToAgentID = &candidate.ID
			event = realtime.SSEEventHandoffAssigned
		}
	}

	if err := s.handoffs.Create(dbc, row); err != nil {
		s.log.Error("handoff create failed", "conversation_id", conv.ID, "trigger", trigger, "error", err)
		return nil
	}

	if row.Status == types.HandoffStatusAutoAssigned {
		if err := s.conversations.SetAssisted(dbc, conv.ID, row.ToAgentID); err != nil {
			s.log.Error("conversation mode flip failed", "conversation_id", conv.ID, "error", err)
		}
	}

	s.log.Info("handoff opened",
		"handoff_id", row.ID,
		"conversation_id", conv.ID,
		"trigger", trigger,
		"status", row.Status,
	)
	s.notifyCreatorAgents(dbc, conv.CreatorID, event, row)
	return row
}

// leastLoadedAgent picks the available agent with the fewest assisted
// conversations. Plain linear scan; agent pools per creator are small.
func (s *handoffService) leastLoadedAgent(dbc dbctx.Context, creatorID uuid.UUID, exclude *uuid.UUID) (*types.Agent, error) {
	candidates, err := s.agents.ListAssignedToCreator(dbc, creatorID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, a := range candidates {
		if exclude != nil && a.ID == *exclude {
			continue
		}
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	loads, err := s.conversations.CountAssistedByAgents(dbc, ids)
	if err != nil {
		return nil, err
	}
	var best *types.Agent
	bestLoad := int64(-1)
	for _, a := range candidates {
		if exclude != nil && a.ID == *exclude {
			continue
		}
		load := loads[a.ID]
		if best == nil || load < bestLoad {
			best = a
			bestLoad = load
		}
	}
	return best, nil
}

func (s *handoffService) RequestManual(dbc dbctx.Context, conversationID uuid.UUID, note string) (*types.ConversationHandoff, error) {
	conv, err := s.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, pkgerrors.ErrNotFound)
	}
	active, err := s.handoffs.GetActiveByConversation(dbc, conversationID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("conversation already has an active handoff: %w", pkgerrors.ErrConflict)
	}
	cfg, err := s.settings.GetByCreator(dbc, conv.CreatorID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &types.CreatorAISettings{CreatorID: conv.CreatorID}
	}
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	row := s.fire(dbc, conv, cfg, types.TriggerManual, "manual", nil, nil, notePtr)
	if row == nil {
		return nil, fmt.Errorf("handoff creation failed")
	}
	return row, nil
}

// Accept claims a handoff for an agent. Valid only from PENDING or
// AUTO_ASSIGNED; an auto-assigned handoff may only be accepted by its
// assigned agent.
func (s *handoffService) Accept(dbc dbctx.Context, handoffID, agentID uuid.UUID) (*types.ConversationHandoff, error) {
	row, err := s.handoffs.GetByID(dbc, handoffID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("handoff %s: %w", handoffID, pkgerrors.ErrNotFound)
	}
	if row.Status == types.HandoffStatusAutoAssigned && row.ToAgentID != nil && *row.ToAgentID != agentID {
		return nil, fmt.Errorf("handoff assigned to another agent: %w", pkgerrors.ErrConflict)
	}

	now := time.Now().UTC()
	ok, err := s.handoffs.Transition(dbc, handoffID,
		[]types.HandoffStatus{types.HandoffStatusPending, types.HandoffStatusAutoAssigned},
		types.HandoffStatusAccepted,
		map[string]any{"to_agent_id": agentID, "responded_at": now},
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("handoff is not open for acceptance: %w", pkgerrors.ErrConflict)
	}

	if err := s.conversations.SetAssisted(dbc, row.ConversationID, &agentID); err != nil {
		s.log.Error("conversation mode flip failed on accept", "conversation_id", row.ConversationID, "error", err)
	}

	updated, err := s.handoffs.GetByID(dbc, handoffID)
	if err != nil || updated == nil {
		updated = row
		updated.Status = types.HandoffStatusAccepted
		updated.ToAgentID = &agentID
		updated.RespondedAt = &now
	}

	conv, convErr := s.conversations.GetByID(dbc, row.ConversationID)
	if convErr == nil && conv != nil {
		s.notifyCreatorAgents(dbc, conv.CreatorID, realtime.SSEEventHandoffAccepted, updated)
	}
	s.log.Info("handoff accepted", "handoff_id", handoffID, "agent_id", agentID)
	return updated, nil
}

// Decline releases a handoff and cascades to the next least-loaded
// agent, excluding the decliner. With no other candidate the
// conversation reverts to fully automated mode.
func (s *handoffService) Decline(dbc dbctx.Context, handoffID, agentID uuid.UUID, note string) (*types.ConversationHandoff, error) {
	row, err := s.handoffs.GetByID(dbc, handoffID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("handoff %s: %w", handoffID, pkgerrors.ErrNotFound)
	}
	if row.ToAgentID != nil && *row.ToAgentID != agentID {
		return nil, fmt.Errorf("handoff assigned to another agent: %w", pkgerrors.ErrConflict)
	}

	now := time.Now().UTC()
	fields := map[string]any{"responded_at": now}
	if note != "" {
		fields["notes"] = note
	}
	ok, err := s.handoffs.Transition(dbc, handoffID,
		[]types.HandoffStatus{types.HandoffStatusPending, types.HandoffStatusAutoAssigned},
		types.HandoffStatusDeclined, fields,
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("handoff is not open for decline: %w", pkgerrors.ErrConflict)
	}

	declined, err := s.handoffs.GetByID(dbc, handoffID)
	if err != nil || declined == nil {
		declined = row
		declined.Status = types.HandoffStatusDeclined
		declined.RespondedAt = &now
	}
	s.log.Info("handoff declined", "handoff_id", handoffID, "agent_id", agentID)

	conv, err := s.conversations.GetByID(dbc, row.ConversationID)
	if err != nil || conv == nil {
		return declined, nil
	}
	s.notifyCreatorAgents(dbc, conv.CreatorID, realtime.SSEEventHandoffDeclined, declined)

	cfg, err := s.settings.GetByCreator(dbc, conv.CreatorID)
	if err != nil || cfg == nil {
		return declined, nil
	}

	reassignNote := pointers.Ptr(fmt.Sprintf("reassigned after decline by agent %s", agentID))
	candidate, err := s.leastLoadedAgent(dbc, conv.CreatorID, &agentID)
	if err != nil {
		s.log.Warn("cascade agent selection failed", "conversation_id", conv.ID, "error", err)
		return declined, nil
	}
	if candidate == nil {
		// Nobody left to offer the conversation to; hand it back to the AI.
		if err := s.conversations.SetAuto(dbc, conv.ID); err != nil {
			s.log.Warn("conversation revert failed after decline", "conversation_id", conv.ID, "error", err)
		}
		return declined, nil
	}
	s.fire(dbc, conv, cfg, row.TriggerType, row.TriggerValue, []byte(row.Evidence), &agentID, reassignNote)
	return declined, nil
}

func (s *handoffService) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.ConversationHandoff, error) {
	return s.handoffs.ListByConversation(dbc, conversationID, limit)
}

// SweepExpired moves PENDING handoffs past their deadline to EXPIRED.
func (s *handoffService) SweepExpired(dbc dbctx.Context, limit int) (int, error) {
	rows, err := s.handoffs.ListExpiredPending(dbc, time.Now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, row := range rows {
		ok, err := s.handoffs.Transition(dbc, row.ID,
			[]types.HandoffStatus{types.HandoffStatusPending},
			types.HandoffStatusExpired, nil,
		)
		if err != nil {
			s.log.Warn("expiry transition failed", "handoff_id", row.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		expired++
		row.Status = types.HandoffStatusExpired
		conv, err := s.conversations.GetByID(dbc, row.ConversationID)
		if err == nil && conv != nil {
			s.notifyCreatorAgents(dbc, conv.CreatorID, realtime.SSEEventHandoffExpired, row)
		}
	}
	return expired, nil
}

func (s *handoffService) notifyCreatorAgents(dbc dbctx.Context, creatorID uuid.UUID, event realtime.SSEEvent, row *types.ConversationHandoff) {
	agents, err := s.agents.ListAssignedToCreator(dbc, creatorID)
	if err != nil {
		s.log.Warn("agent list failed for notification", "creator_id", creatorID, "error", err)
		return
	}
	ids := make([]uuid.UUID, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	s.notifier.Notify(dbc.Ctx, ids, event, row)
}
