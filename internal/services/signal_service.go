package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const (
	languageMinHits  = 2
	toneMinScore     = 2
	toneEmojiWeight  = 2
	toneWordWeight   = 1
	maxTopics        = 10
	activityWindow   = 7 * 24 * time.Hour
	whaleThreshold   = 10000
	regularThreshold = 1000
	signalBatchSize  = 40
)

// SignalService derives behavioral signals (language, topics, tone,
// activity level, spending tier) from a fan's recent messages and writes
// them into the FanProfile. Extraction is best-effort: callers treat a
// returned error as log-and-continue, never as a delivery blocker.
type SignalService interface {
	ExtractForPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) error
	SweepStaleProfiles(dbc dbctx.Context, limit int) (int, error)
}

type signalService struct {
	log      *logger.Logger
	tax      *CompiledTaxonomy
	profiles repos.FanProfileRepo
	messages repos.MessageRepo
	ledger   repos.TransactionRepo
}

func NewSignalService(
	baseLog *logger.Logger,
	tax *CompiledTaxonomy,
	profiles repos.FanProfileRepo,
	messages repos.MessageRepo,
	ledger repos.TransactionRepo,
) SignalService {
	return &signalService{
		log:      baseLog.With("service", "SignalService"),
		tax:      tax,
		profiles: profiles,
		messages: messages,
		ledger:   ledger,
	}
}

func (s *signalService) ExtractForPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) error {
	now := time.Now().UTC()

	msgs, err := s.messages.ListFanMessagesForPairSince(dbc, fanID, creatorID, now.Add(-activityWindow), signalBatchSize*5)
	if err != nil {
		return err
	}

	profile, err := s.profiles.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &types.FanProfile{
			FanID:           fanID,
			CreatorID:       creatorID,
			ActivityLevel:   types.ActivityUnknown,
			SpendingTier:    types.SpendingTierFree,
			QualityTier:     types.QualityTierUnknown,
			QualityScore:    50,
			PreferredTopics: datatypes.JSON([]byte("[]")),
		}
	}

	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	combined := strings.ToLower(strings.Join(texts, "\n"))

	if lang, ok := detectLanguage(s.tax, combined); ok {
		profile.Language = lang
	}

	merged := mergeTopics(decodeTopics(profile.PreferredTopics), detectTopics(s.tax, combined))
	profile.PreferredTopics = encodeTopics(merged)

	if tone, ok := detectTone(s.tax, texts); ok {
		profile.PreferredTone = &tone
	}

	profile.ActivityLevel = activityLevel(msgs, now)

	summary, err := s.ledger.Summary(dbc, fanID, creatorID)
	if err != nil {
		// Spend summary is optional input; tier is left as-is on failure.
		s.log.Warn("spend summary unavailable", "fan_id", fanID, "error", err)
	} else {
		profile.TotalSpent = summary.TotalSpent
		profile.SpendingTier = spendingTier(summary.TotalSpent)
	}

	return s.profiles.Upsert(dbc, profile)
}

// SweepStaleProfiles re-scores fans whose conversations received messages
// after the profile's last update, bounded per invocation.
func (s *signalService) SweepStaleProfiles(dbc dbctx.Context, limit int) (int, error) {
	candidates, err := s.profiles.ListWithNewerMessages(dbc, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, p := range candidates {
		if err := s.ExtractForPair(dbc, p.FanID, p.CreatorID); err != nil {
			s.log.Warn("profile re-score failed", "fan_id", p.FanID, "creator_id", p.CreatorID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}

// detectLanguage scores each supported language by counting pattern hits
// in the combined text; a language is committed only when its aggregate
// hit count reaches languageMinHits.
func detectLanguage(tax *CompiledTaxonomy, combined string) (string, bool) {
	best := ""
	bestHits := 0
	for _, lang := range tax.Languages {
		hits := 0
		for _, re := range lang.Patterns {
			hits += len(re.FindAllString(combined, -1))
		}
		if hits > bestHits {
			best = lang.Language
			bestHits = hits
		}
	}
	if bestHits < languageMinHits {
		return "", false
	}
	return best, true
}

func detectTopics(tax *CompiledTaxonomy, combined string) []string {
	var found []string
	for topic, keywords := range tax.Topics {
		for _, kw := range keywords {
			if strings.Contains(combined, strings.ToLower(kw)) {
				found = append(found, topic)
				break
			}
		}
	}
	return found
}

// mergeTopics folds new detections into the existing set, de-duplicated,
// existing entries first, capped at maxTopics. Order is stable so the
// merge is idempotent.
func mergeTopics(existing, detected []string) []string {
	seen := make(map[string]bool, len(existing)+len(detected))
	out := make([]string, 0, maxTopics)
	for _, lists := range [][]string{existing, sortedCopy(detected)} {
		for _, t := range lists {
			if t == "" || seen[t] {
				continue
			}
			if len(out) >= maxTopics {
				return out
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// detectTone accumulates weighted pattern scores per tone across the
// fan's messages; emoji hits count double. The winning tone is committed
// only when its score reaches toneMinScore, so a single stray match never
// overwrites an established preference.
func detectTone(tax *CompiledTaxonomy, texts []string) (types.Tone, bool) {
	var best types.Tone
	bestScore := 0
	for _, tone := range tax.Tones {
		score := 0
		for _, text := range texts {
			for _, re := range tone.Words {
				score += toneWordWeight * len(re.FindAllString(text, -1))
			}
			for _, emoji := range tone.Emojis {
				score += toneEmojiWeight * strings.Count(text, emoji)
			}
		}
		if score > bestScore {
			best = tone.Tone
			bestScore = score
		}
	}
	if bestScore < toneMinScore {
		return "", false
	}
	return best, true
}

// activityLevel maps distinct calendar days with fan messages in the
// trailing 7 days onto the activity enum.
func activityLevel(msgs []*types.Message, now time.Time) types.ActivityLevel {
	cutoff := now.Add(-activityWindow)
	days := make(map[string]bool)
	for _, m := range msgs {
		if m.SentAt.Before(cutoff) {
			continue
		}
		days[m.SentAt.UTC().Format("2006-01-02")] = true
	}
	switch n := len(days); {
	case n >= 7:
		return types.ActivityDaily
	case n >= 3:
		return types.ActivityWeekly
	case n >= 1:
		return types.ActivityOccasional
	default:
		return types.ActivityInactive
	}
}

func spendingTier(totalSpent float64) types.SpendingTier {
	switch {
	case totalSpent >= whaleThreshold:
		return types.SpendingTierWhale
	case totalSpent >= regularThreshold:
		return types.SpendingTierRegular
	default:
		return types.SpendingTierFree
	}
}

func decodeTopics(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeTopics(topics []string) datatypes.JSON {
	if topics == nil {
		topics = []string{}
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
