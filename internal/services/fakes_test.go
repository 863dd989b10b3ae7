package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	hd "github.com/fanlume/fanlume-backend/internal/domain/handoff"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func testDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func pairKey(fanID, creatorID uuid.UUID) string {
	return fanID.String() + "|" + creatorID.String()
}

// fakeProfileRepo keeps profiles in a map keyed by (fan, creator).
type fakeProfileRepo struct {
	profiles map[string]*types.FanProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*types.FanProfile)}
}

func (r *fakeProfileRepo) GetByPair(_ dbctx.Context, fanID, creatorID uuid.UUID) (*types.FanProfile, error) {
	p, ok := r.profiles[pairKey(fanID, creatorID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) Upsert(_ dbctx.Context, profile *types.FanProfile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.UpdatedAt = time.Now().UTC()
	cp := *profile
	r.profiles[pairKey(profile.FanID, profile.CreatorID)] = &cp
	return nil
}

func (r *fakeProfileRepo) UpdateFields(_ dbctx.Context, fanID, creatorID uuid.UUID, fields map[string]any) error {
	p, ok := r.profiles[pairKey(fanID, creatorID)]
	if !ok {
		return nil
	}
	for k, v := range fields {
		switch k {
		case "quality_score":
			p.QualityScore = v.(int)
		case "quality_tier":
			p.QualityTier = v.(types.QualityTier)
		case "ai_only_mode":
			p.AIOnlyMode = v.(bool)
		case "ai_only_reason":
			if v == nil {
				p.AIOnlyReason = nil
			} else {
				s := v.(string)
				p.AIOnlyReason = &s
			}
		case "total_spent":
			p.TotalSpent = v.(float64)
		case "messages_without_purchase":
			p.MessagesWithoutPurchase = v.(int)
		case "personal_note":
			s := v.(string)
			p.PersonalNote = &s
		}
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeProfileRepo) IncrementCounter(_ dbctx.Context, fanID, creatorID uuid.UUID, column string) error {
	p, ok := r.profiles[pairKey(fanID, creatorID)]
	if !ok {
		p = &types.FanProfile{ID: uuid.New(), FanID: fanID, CreatorID: creatorID}
		r.profiles[pairKey(fanID, creatorID)] = p
	}
	switch column {
	case "free_content_requests":
		p.FreeContentRequests++
	case "messages_without_purchase":
		p.MessagesWithoutPurchase++
	default:
		return fmt.Errorf("column %q not allowed", column)
	}
	return nil
}

func (r *fakeProfileRepo) ListStaleForCreator(_ dbctx.Context, creatorID uuid.UUID, limit int) ([]*types.FanProfile, error) {
	var out []*types.FanProfile
	for _, p := range r.profiles {
		if p.CreatorID == creatorID {
			cp := *p
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) ListWithNewerMessages(_ dbctx.Context, limit int) ([]*types.FanProfile, error) {
	return nil, nil
}

// fakeMemoryRepo enforces the one-active-row-per-key invariant in memory.
type fakeMemoryRepo struct {
	rows []*types.FanMemory
}

func newFakeMemoryRepo() *fakeMemoryRepo { return &fakeMemoryRepo{} }

func (r *fakeMemoryRepo) GetActiveByKey(_ dbctx.Context, fanID, creatorID uuid.UUID, key string) (*types.FanMemory, error) {
	for _, row := range r.rows {
		if row.IsActive && row.FanID == fanID && row.CreatorID == creatorID && row.Key == key {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeMemoryRepo) ListActive(_ dbctx.Context, fanID, creatorID uuid.UUID, now time.Time) ([]*types.FanMemory, error) {
	var out []*types.FanMemory
	for _, row := range r.rows {
		if !row.IsActive || row.FanID != fanID || row.CreatorID != creatorID {
			continue
		}
		if row.ExpiresAt != nil && !row.ExpiresAt.After(now) {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMemoryRepo) Upsert(_ dbctx.Context, row *types.FanMemory) error {
	for _, existing := range r.rows {
		if existing.IsActive && existing.FanID == row.FanID && existing.CreatorID == row.CreatorID && existing.Key == row.Key {
			existing.Value = row.Value
			existing.Confidence = row.Confidence
			existing.ExtractedBy = row.ExtractedBy
			existing.ExpiresAt = row.ExpiresAt
			existing.LastConfirmed = time.Now().UTC()
			return nil
		}
	}
	cp := *row
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	cp.IsActive = true
	cp.LastConfirmed = time.Now().UTC()
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeMemoryRepo) Deactivate(_ dbctx.Context, id uuid.UUID) error {
	for _, row := range r.rows {
		if row.ID == id {
			row.IsActive = false
		}
	}
	return nil
}

func (r *fakeMemoryRepo) DeactivateExpired(_ dbctx.Context, now time.Time, limit int) (int64, error) {
	var n int64
	for _, row := range r.rows {
		if row.IsActive && row.ExpiresAt != nil && !row.ExpiresAt.After(now) {
			row.IsActive = false
			n++
			if limit > 0 && n >= int64(limit) {
				break
			}
		}
	}
	return n, nil
}

type fakeMessageRepo struct {
	byConversation map[uuid.UUID][]*types.Message
	byPair         map[string][]*types.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		byConversation: make(map[uuid.UUID][]*types.Message),
		byPair:         make(map[string][]*types.Message),
	}
}

func (r *fakeMessageRepo) add(conversationID, fanID, creatorID uuid.UUID, text string, sentAt time.Time) {
	msg := &types.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         types.MessageSenderFan,
		Text:           text,
		SentAt:         sentAt,
	}
	r.byConversation[conversationID] = append(r.byConversation[conversationID], msg)
	k := pairKey(fanID, creatorID)
	r.byPair[k] = append(r.byPair[k], msg)
}

func (r *fakeMessageRepo) ListRecentFanMessages(_ dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	msgs := r.byConversation[conversationID]
	// Newest first, like the real repo.
	out := make([]*types.Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		out = append(out, msgs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) ListFanMessagesForPairSince(_ dbctx.Context, fanID, creatorID uuid.UUID, since time.Time, limit int) ([]*types.Message, error) {
	var out []*types.Message
	for _, m := range r.byPair[pairKey(fanID, creatorID)] {
		if m.SentAt.After(since) {
			out = append(out, m)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountFanMessagesForPair(_ dbctx.Context, fanID, creatorID uuid.UUID) (int64, error) {
	return int64(len(r.byPair[pairKey(fanID, creatorID)])), nil
}

type fakeConversationRepo struct {
	conversations map[uuid.UUID]*types.Conversation
	assisted      map[uuid.UUID]int64
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]*types.Conversation),
		assisted:      make(map[uuid.UUID]int64),
	}
}

func (r *fakeConversationRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	c, ok := r.conversations[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeConversationRepo) GetByPair(_ dbctx.Context, fanID, creatorID uuid.UUID) (*types.Conversation, error) {
	for _, c := range r.conversations {
		if c.FanID == fanID && c.CreatorID == creatorID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) SetAssisted(_ dbctx.Context, id uuid.UUID, agentID *uuid.UUID) error {
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	c.Mode = types.ConversationModeAssisted
	c.AssignedAgentID = agentID
	if agentID != nil {
		r.assisted[*agentID]++
	}
	return nil
}

func (r *fakeConversationRepo) SetAuto(_ dbctx.Context, id uuid.UUID) error {
	c, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("conversation not found")
	}
	c.Mode = types.ConversationModeAuto
	c.AssignedAgentID = nil
	return nil
}

func (r *fakeConversationRepo) CountAssistedByAgents(_ dbctx.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(agentIDs))
	for _, id := range agentIDs {
		out[id] = r.assisted[id]
	}
	return out, nil
}

type fakeTransactionRepo struct {
	summaries map[string]repos.SpendSummary
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{summaries: make(map[string]repos.SpendSummary)}
}

func (r *fakeTransactionRepo) set(fanID, creatorID uuid.UUID, s repos.SpendSummary) {
	r.summaries[pairKey(fanID, creatorID)] = s
}

func (r *fakeTransactionRepo) Summary(_ dbctx.Context, fanID, creatorID uuid.UUID) (repos.SpendSummary, error) {
	return r.summaries[pairKey(fanID, creatorID)], nil
}

type fakeSubscriptionRepo struct {
	active map[string]bool
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{active: make(map[string]bool)}
}

func (r *fakeSubscriptionRepo) HasActive(_ dbctx.Context, fanID, creatorID uuid.UUID, _ time.Time) (bool, error) {
	return r.active[pairKey(fanID, creatorID)], nil
}

type fakeHandoffRepo struct {
	rows map[uuid.UUID]*types.ConversationHandoff
}

func newFakeHandoffRepo() *fakeHandoffRepo {
	return &fakeHandoffRepo{rows: make(map[uuid.UUID]*types.ConversationHandoff)}
}

func (r *fakeHandoffRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.ConversationHandoff, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeHandoffRepo) GetActiveByConversation(_ dbctx.Context, conversationID uuid.UUID) (*types.ConversationHandoff, error) {
	for _, row := range r.rows {
		if row.ConversationID == conversationID && row.Status.Active() {
			cp := *row
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeHandoffRepo) ListByConversation(_ dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.ConversationHandoff, error) {
	var out []*types.ConversationHandoff
	for _, row := range r.rows {
		if row.ConversationID == conversationID {
			cp := *row
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeHandoffRepo) Create(_ dbctx.Context, row *types.ConversationHandoff) error {
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.ExpiresAt.IsZero() {
		row.ExpiresAt = row.CreatedAt.Add(24 * time.Hour)
	}
	cp := *row
	r.rows[row.ID] = &cp
	return nil
}

func (r *fakeHandoffRepo) Transition(_ dbctx.Context, id uuid.UUID, from []hd.Status, to hd.Status, fields map[string]any) (bool, error) {
	row, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, f := range from {
		if row.Status == f {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	row.Status = to
	for k, v := range fields {
		switch k {
		case "to_agent_id":
			agentID := v.(uuid.UUID)
			row.ToAgentID = &agentID
		case "responded_at":
			ts := v.(time.Time)
			row.RespondedAt = &ts
		case "notes":
			s := v.(string)
			row.Notes = &s
		}
	}
	return true, nil
}

func (r *fakeHandoffRepo) ListExpiredPending(_ dbctx.Context, now time.Time, limit int) ([]*types.ConversationHandoff, error) {
	var out []*types.ConversationHandoff
	for _, row := range r.rows {
		if row.Status == types.HandoffStatusPending && !row.ExpiresAt.After(now) {
			cp := *row
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeAgentRepo struct {
	agents map[uuid.UUID][]*types.Agent
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: make(map[uuid.UUID][]*types.Agent)}
}

func (r *fakeAgentRepo) ListAssignedToCreator(_ dbctx.Context, creatorID uuid.UUID) ([]*types.Agent, error) {
	return r.agents[creatorID], nil
}

type fakeSettingsRepo struct {
	settings map[uuid.UUID]*types.CreatorAISettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[uuid.UUID]*types.CreatorAISettings)}
}

func (r *fakeSettingsRepo) GetByCreator(_ dbctx.Context, creatorID uuid.UUID) (*types.CreatorAISettings, error) {
	s, ok := r.settings[creatorID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

// recordingEmitter captures emitted SSE messages for assertions.
type recordingEmitter struct {
	messages []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.messages = append(e.messages, msg)
}

func mustCompiledTaxonomy(t *testing.T) *CompiledTaxonomy {
	t.Helper()
	compiled, err := DefaultTaxonomy().Compile()
	if err != nil {
		t.Fatalf("compile taxonomy: %v", err)
	}
	return compiled
}
