package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const (
	slowPathMinMessages = 5
	slowPathWindow      = 10
	transientExpiry     = 14 * 24 * time.Hour
	manualConfidence    = 1.0
)

// MemoryFact is the read-side representation of one active fact.
type MemoryFact struct {
	Category   types.MemoryCategory `json:"category"`
	Key        string               `json:"key"`
	Value      string               `json:"value"`
	Confidence float64              `json:"confidence"`
}

// MemoryContext folds a fan's active facts into the typed shape consumed
// by prompt builders and the back-office UI.
type MemoryContext struct {
	Name     string       `json:"name,omitempty"`
	Age      string       `json:"age,omitempty"`
	Job      string       `json:"job,omitempty"`
	Location string       `json:"location,omitempty"`
	Birthday string       `json:"birthday,omitempty"`
	Facts    []MemoryFact `json:"facts"`
}

type MemoryService interface {
	ExtractFromConversation(dbc dbctx.Context, conversationID uuid.UUID) error
	GetMemoryContext(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*MemoryContext, error)
	SaveManualFact(dbc dbctx.Context, fanID, creatorID uuid.UUID, category types.MemoryCategory, key, value string, source types.MemorySource) error
	DeactivateFact(dbc dbctx.Context, id uuid.UUID) error
	SweepExpired(dbc dbctx.Context, limit int) (int64, error)
}

type memoryService struct {
	log           *logger.Logger
	tax           *CompiledTaxonomy
	memories      repos.FanMemoryRepo
	messages      repos.MessageRepo
	conversations repos.ConversationRepo
	extractor     FactExtractor
}

func NewMemoryService(
	baseLog *logger.Logger,
	tax *CompiledTaxonomy,
	memories repos.FanMemoryRepo,
	messages repos.MessageRepo,
	conversations repos.ConversationRepo,
	extractor FactExtractor,
) MemoryService {
	return &memoryService{
		log:           baseLog.With("service", "MemoryService"),
		tax:           tax,
		memories:      memories,
		messages:      messages,
		conversations: conversations,
		extractor:     extractor,
	}
}

// ExtractFromConversation runs the fast pattern path and, when enough
// history exists, the slow model path. Both paths respect the conflict
// policy: an already-known key is never overwritten by re-extraction.
func (s *memoryService) ExtractFromConversation(dbc dbctx.Context, conversationID uuid.UUID) error {
	conv, err := s.conversations.GetByID(dbc, conversationID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s: %w", conversationID, pkgerrors.ErrNotFound)
	}

	recent, err := s.messages.ListRecentFanMessages(dbc, conversationID, slowPathWindow)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}

	// Newest-first from the repo; flip to chronological order.
	ordered := make([]*types.Message, len(recent))
	for i, m := range recent {
		ordered[len(recent)-1-i] = m
	}

	texts := make([]string, 0, len(ordered))
	for _, m := range ordered {
		texts = append(texts, m.Text)
	}
	combined := strings.Join(texts, "\n")
	newestID := ordered[len(ordered)-1].ID

	for _, pf := range extractPatternFacts(combined) {
		row := &types.FanMemory{
			FanID:           conv.FanID,
			CreatorID:       conv.CreatorID,
			Category:        pf.Category,
			Key:             pf.Key,
			Value:           pf.Value,
			Confidence:      patternConfidence,
			ExtractedBy:     types.MemorySourcePattern,
			SourceMessageID: &newestID,
		}
		if err := s.saveExtracted(dbc, row); err != nil {
			s.log.Warn("pattern fact save failed", "key", pf.Key, "error", err)
		}
	}

	if len(ordered) >= slowPathMinMessages && s.extractor != nil {
		s.runSlowPath(dbc, conv, texts, newestID)
	}
	return nil
}

// runSlowPath is wholly best-effort: a failed or malformed model call
// produces no facts and no error.
func (s *memoryService) runSlowPath(dbc dbctx.Context, conv *types.Conversation, texts []string, sourceID uuid.UUID) {
	known, err := s.knownFacts(dbc, conv.FanID, conv.CreatorID)
	if err != nil {
		s.log.Warn("memory context load failed before extraction", "error", err)
		return
	}

	facts, err := s.extractor.ExtractFacts(dbc.Ctx, texts, known)
	if err != nil {
		s.log.Warn("fact extraction call failed", "conversation_id", conv.ID, "error", err)
		return
	}
	for _, f := range facts {
		row := &types.FanMemory{
			FanID:           conv.FanID,
			CreatorID:       conv.CreatorID,
			Category:        f.Category,
			Key:             f.Key,
			Value:           f.Value,
			Confidence:      f.Confidence,
			ExtractedBy:     types.MemorySourceAI,
			SourceMessageID: &sourceID,
		}
		if err := s.saveExtracted(dbc, row); err != nil {
			s.log.Warn("extracted fact save failed", "key", f.Key, "error", err)
		}
	}
}

// saveExtracted applies the conflict policy for pattern/AI sources: a
// fact only lands when its key was previously unknown. Contradicting
// values for a known key are intentionally dropped.
func (s *memoryService) saveExtracted(dbc dbctx.Context, row *types.FanMemory) error {
	existing, err := s.memories.GetActiveByKey(dbc, row.FanID, row.CreatorID, row.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	s.stampExpiry(row)
	return s.memories.Upsert(dbc, row)
}

// SaveManualFact records a chatter/manual fact at confidence 1.0,
// overwriting any existing value for the key regardless of its source.
func (s *memoryService) SaveManualFact(dbc dbctx.Context, fanID, creatorID uuid.UUID, category types.MemoryCategory, key, value string, source types.MemorySource) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return pkgerrors.ErrInvalidArgument
	}
	if source != types.MemorySourceChatter && source != types.MemorySourceManual {
		return pkgerrors.ErrInvalidArgument
	}
	row := &types.FanMemory{
		FanID:       fanID,
		CreatorID:   creatorID,
		Category:    category,
		Key:         key,
		Value:       value,
		Confidence:  manualConfidence,
		ExtractedBy: source,
	}
	s.stampExpiry(row)
	return s.memories.Upsert(dbc, row)
}

func (s *memoryService) stampExpiry(row *types.FanMemory) {
	if s.tax != nil && s.tax.TransientMemoryKeys[row.Key] {
		exp := time.Now().UTC().Add(transientExpiry)
		row.ExpiresAt = &exp
	}
}

func (s *memoryService) DeactivateFact(dbc dbctx.Context, id uuid.UUID) error {
	return s.memories.Deactivate(dbc, id)
}

func (s *memoryService) SweepExpired(dbc dbctx.Context, limit int) (int64, error) {
	return s.memories.DeactivateExpired(dbc, time.Now().UTC(), limit)
}

func (s *memoryService) GetMemoryContext(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*MemoryContext, error) {
	rows, err := s.memories.ListActive(dbc, fanID, creatorID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return buildMemoryContext(rows), nil
}

func (s *memoryService) knownFacts(dbc dbctx.Context, fanID, creatorID uuid.UUID) (map[string]string, error) {
	rows, err := s.memories.ListActive(dbc, fanID, creatorID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	known := make(map[string]string, len(rows))
	for _, r := range rows {
		known[r.Key] = r.Value
	}
	return known, nil
}

func buildMemoryContext(rows []*types.FanMemory) *MemoryContext {
	mc := &MemoryContext{Facts: make([]MemoryFact, 0, len(rows))}
	for _, r := range rows {
		switch r.Key {
		case "name":
			mc.Name = r.Value
		case "age":
			mc.Age = r.Value
		case "job":
			mc.Job = r.Value
		case "location":
			mc.Location = r.Value
		case "birthday":
			mc.Birthday = r.Value
		}
		mc.Facts = append(mc.Facts, MemoryFact{
			Category:   r.Category,
			Key:        r.Key,
			Value:      r.Value,
			Confidence: r.Confidence,
		})
	}
	return mc
}

// FormatForPrompt renders the context as a short natural-language
// paragraph. Output is deterministic and order-stable for given inputs
// (rows arrive sorted by category then key).
func FormatForPrompt(mc *MemoryContext) string {
	if mc == nil || len(mc.Facts) == 0 {
		return ""
	}
	var parts []string
	if mc.Name != "" {
		parts = append(parts, fmt.Sprintf("The fan's name is %s.", mc.Name))
	}
	if mc.Age != "" {
		parts = append(parts, fmt.Sprintf("They are %s years old.", mc.Age))
	}
	if mc.Job != "" {
		parts = append(parts, fmt.Sprintf("They work as %s.", mc.Job))
	}
	if mc.Location != "" {
		parts = append(parts, fmt.Sprintf("They live in %s.", mc.Location))
	}
	if mc.Birthday != "" {
		parts = append(parts, fmt.Sprintf("Their birthday is %s.", mc.Birthday))
	}
	identity := map[string]bool{"name": true, "age": true, "job": true, "location": true, "birthday": true}
	for _, f := range mc.Facts {
		if identity[f.Key] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s.", strings.ReplaceAll(f.Key, "_", " "), f.Value))
	}
	return strings.Join(parts, " ")
}
