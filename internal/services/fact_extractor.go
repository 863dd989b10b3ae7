package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const minExtractConfidence = 0.5

// ExtractedFact is one candidate fact returned by the slow-path model
// call.
type ExtractedFact struct {
	Category   types.MemoryCategory `json:"category"`
	Key        string               `json:"key"`
	Value      string               `json:"value"`
	Confidence float64              `json:"confidence"`
}

// FactExtractor is the narrow port around the free-text extraction call.
// Implementations must be best-effort: any failure maps to zero facts at
// the call site, never a propagated engine error.
type FactExtractor interface {
	ExtractFacts(ctx context.Context, messages []string, knownFacts map[string]string) ([]ExtractedFact, error)
}

type llmFactExtractor struct {
	log    *logger.Logger
	client OpenAIClient
}

func NewLLMFactExtractor(baseLog *logger.Logger, client OpenAIClient) FactExtractor {
	return &llmFactExtractor{
		log:    baseLog.With("service", "FactExtractor"),
		client: client,
	}
}

const factExtractSystemPrompt = `You extract durable personal facts about a fan from chat messages.
Return ONLY a JSON array. Each element: {"category","key","value","confidence"}.
Categories: personal, preference, event, purchase, relationship.
Only include facts that are NOT in the known facts list and that you are
at least 50% confident about. Return [] when there is nothing new.`

func (e *llmFactExtractor) ExtractFacts(ctx context.Context, messages []string, knownFacts map[string]string) ([]ExtractedFact, error) {
	if e.client == nil {
		return nil, fmt.Errorf("no text-generation client configured")
	}

	var sb strings.Builder
	sb.WriteString("Known facts:\n")
	if len(knownFacts) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, key := range sortedKeys(knownFacts) {
		fmt.Fprintf(&sb, "- %s: %s\n", key, knownFacts[key])
	}
	sb.WriteString("\nRecent fan messages (oldest first):\n")
	for _, m := range messages {
		fmt.Fprintf(&sb, "- %s\n", m)
	}

	raw, err := e.client.Generate(ctx, factExtractSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	facts, err := parseExtractedFacts(raw)
	if err != nil {
		return nil, err
	}
	return facts, nil
}

// parseExtractedFacts tolerates code fences and surrounding prose but
// otherwise rejects malformed output wholesale; partial extraction is
// not worth the risk of garbage facts.
func parseExtractedFacts(raw string) ([]ExtractedFact, error) {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			raw = raw[start : end+1]
		}
	}
	var facts []ExtractedFact
	if err := json.Unmarshal([]byte(raw), &facts); err != nil {
		return nil, fmt.Errorf("unparseable extraction response: %w", err)
	}

	out := make([]ExtractedFact, 0, len(facts))
	for _, f := range facts {
		f.Key = strings.ToLower(strings.TrimSpace(f.Key))
		f.Value = strings.TrimSpace(f.Value)
		if f.Key == "" || f.Value == "" {
			continue
		}
		if f.Confidence < minExtractConfidence || f.Confidence > 1.0 {
			continue
		}
		switch f.Category {
		case types.MemoryCategoryPersonal, types.MemoryCategoryPreference,
			types.MemoryCategoryEvent, types.MemoryCategoryPurchase,
			types.MemoryCategoryRelationship:
		default:
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}
