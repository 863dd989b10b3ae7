package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

const (
	qualityBaseScore = 50

	spendHighThreshold = 100
	spendMidThreshold  = 20

	freeRequestForceThreshold = 5

	tierVIPMin       = 80
	tierQualifiedMin = 50
	tierUnqualMin    = 30

	aiOnlyMessageFloor = 30

	reasonHighMessageCount = "High message count without purchases"
	reasonVeryLowScore     = "Very low quality score"
)

// QualityFactor is one additive step in a score computation, kept as
// human-readable audit output.
type QualityFactor struct {
	Label string `json:"label"`
	Delta int    `json:"delta"`
}

// QualityResult is the full outcome of one classification pass.
type QualityResult struct {
	Score      int               `json:"score"`
	Tier       types.QualityTier `json:"tier"`
	AIOnlyMode bool              `json:"ai_only_mode"`
	Reason     string            `json:"reason,omitempty"`
	Factors    []QualityFactor   `json:"factors"`
}

// qualityInputs is everything computeScore needs, gathered up front so
// the scoring itself stays pure and testable.
type qualityInputs struct {
	TotalSpent          float64
	PurchaseCount       int64
	MessageCount        int64
	FreeContentRequests int
	HasSubscription     bool
}

// computeScore applies the factor table to the inputs. Factors within a
// group are mutually exclusive; the final score is clamped to [0,100].
func computeScore(in qualityInputs) QualityResult {
	score := qualityBaseScore
	var factors []QualityFactor

	add := func(label string, delta int) {
		score += delta
		factors = append(factors, QualityFactor{Label: label, Delta: delta})
	}

	switch {
	case in.TotalSpent >= spendHighThreshold:
		add(fmt.Sprintf("total spend %.2f", in.TotalSpent), 35)
	case in.TotalSpent >= spendMidThreshold:
		add(fmt.Sprintf("total spend %.2f", in.TotalSpent), 20)
	case in.TotalSpent > 0:
		add(fmt.Sprintf("total spend %.2f", in.TotalSpent), 10)
	}

	switch {
	case in.MessageCount >= aiOnlyMessageFloor && in.PurchaseCount == 0:
		add(fmt.Sprintf("%d messages, no purchases", in.MessageCount), -30)
	case in.PurchaseCount > 0 && in.MessageCount > 100*in.PurchaseCount:
		add("message-to-purchase ratio over 100", -20)
	case in.PurchaseCount > 0 && in.MessageCount > 50*in.PurchaseCount:
		add("message-to-purchase ratio over 50", -10)
	}

	switch {
	case in.FreeContentRequests >= 5:
		add(fmt.Sprintf("%d free content requests", in.FreeContentRequests), -25)
	case in.FreeContentRequests >= 2:
		add(fmt.Sprintf("%d free content requests", in.FreeContentRequests), -10)
	}

	if in.HasSubscription {
		add("active subscription", 20)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	res := QualityResult{Score: score, Factors: factors}
	switch {
	case score >= tierVIPMin:
		res.Tier = types.QualityTierVIP
	case score >= tierQualifiedMin:
		res.Tier = types.QualityTierQualified
	case score >= tierUnqualMin:
		res.Tier = types.QualityTierUnqualified
		if in.MessageCount >= aiOnlyMessageFloor && in.PurchaseCount == 0 {
			res.AIOnlyMode = true
			res.Reason = reasonHighMessageCount
		}
	default:
		res.Tier = types.QualityTierUnqualified
		res.AIOnlyMode = true
		res.Reason = reasonVeryLowScore
	}
	return res
}

// TierUpgradeFunc is notified when a recomputation moves a fan from a
// non-VIP tier to VIP. Wired by the composition root to the handoff
// coordinator's quality_upgrade trigger.
type TierUpgradeFunc func(dbc dbctx.Context, fanID, creatorID uuid.UUID, result QualityResult)

type QualityService interface {
	Recompute(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*QualityResult, error)
	OnPurchase(dbc dbctx.Context, fanID, creatorID uuid.UUID) error
	RecordFanMessage(dbc dbctx.Context, fanID, creatorID uuid.UUID) error
	RecordFreeContentRequest(dbc dbctx.Context, fanID, creatorID uuid.UUID) error
	SweepCreator(dbc dbctx.Context, creatorID uuid.UUID, limit int) (int, error)
	SetTierUpgradeHook(fn TierUpgradeFunc)
}

type qualityService struct {
	log           *logger.Logger
	profiles      repos.FanProfileRepo
	messages      repos.MessageRepo
	transactions  repos.TransactionRepo
	subscriptions repos.SubscriptionRepo
	onTierUpgrade TierUpgradeFunc
}

func NewQualityService(
	baseLog *logger.Logger,
	profiles repos.FanProfileRepo,
	messages repos.MessageRepo,
	transactions repos.TransactionRepo,
	subscriptions repos.SubscriptionRepo,
) QualityService {
	return &qualityService{
		log:           baseLog.With("service", "QualityService"),
		profiles:      profiles,
		messages:      messages,
		transactions:  transactions,
		subscriptions: subscriptions,
	}
}

func (s *qualityService) SetTierUpgradeHook(fn TierUpgradeFunc) {
	s.onTierUpgrade = fn
}

// Recompute gathers inputs, scores the pair, and persists the outcome
// onto the profile. Tier upgrades into VIP fire the upgrade hook.
func (s *qualityService) Recompute(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*QualityResult, error) {
	profile, err := s.profiles.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		return nil, err
	}

	summary, err := s.transactions.Summary(dbc, fanID, creatorID)
	if err != nil {
		return nil, err
	}
	msgCount, err := s.messages.CountFanMessagesForPair(dbc, fanID, creatorID)
	if err != nil {
		return nil, err
	}
	hasSub, err := s.subscriptions.HasActive(dbc, fanID, creatorID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	freeRequests := 0
	prevTier := types.QualityTierUnknown
	if profile != nil {
		freeRequests = profile.FreeContentRequests
		prevTier = profile.QualityTier
	}

	result := computeScore(qualityInputs{
		TotalSpent:          summary.TotalSpent,
		PurchaseCount:       summary.PurchaseCount,
		MessageCount:        msgCount,
		FreeContentRequests: freeRequests,
		HasSubscription:     hasSub,
	})

	fields := map[string]any{
		"quality_score":  result.Score,
		"quality_tier":   result.Tier,
		"ai_only_mode":   result.AIOnlyMode,
		"ai_only_reason": nil,
		"total_spent":    summary.TotalSpent,
	}
	if result.Reason != "" {
		fields["ai_only_reason"] = result.Reason
	}

	if profile == nil {
		profile = &types.FanProfile{FanID: fanID, CreatorID: creatorID}
		profile.QualityScore = result.Score
		profile.QualityTier = result.Tier
		profile.AIOnlyMode = result.AIOnlyMode
		if result.Reason != "" {
			profile.AIOnlyReason = &result.Reason
		}
		profile.TotalSpent = summary.TotalSpent
		if err := s.profiles.Upsert(dbc, profile); err != nil {
			return nil, err
		}
	} else if err := s.profiles.UpdateFields(dbc, fanID, creatorID, fields); err != nil {
		return nil, err
	}

	s.log.Info("quality recomputed",
		"fan_id", fanID,
		"creator_id", creatorID,
		"score", result.Score,
		"tier", result.Tier,
		"ai_only", result.AIOnlyMode,
	)

	if result.Tier == types.QualityTierVIP && prevTier != types.QualityTierVIP && s.onTierUpgrade != nil {
		s.onTierUpgrade(dbc, fanID, creatorID, result)
	}
	return &result, nil
}

// OnPurchase resets the no-purchase counter and recomputes immediately,
// since a purchase can flip a fan out of AI-only mode.
func (s *qualityService) OnPurchase(dbc dbctx.Context, fanID, creatorID uuid.UUID) error {
	if err := s.profiles.UpdateFields(dbc, fanID, creatorID, map[string]any{
		"messages_without_purchase": 0,
	}); err != nil {
		s.log.Warn("counter reset failed", "fan_id", fanID, "error", err)
	}
	_, err := s.Recompute(dbc, fanID, creatorID)
	return err
}

func (s *qualityService) RecordFanMessage(dbc dbctx.Context, fanID, creatorID uuid.UUID) error {
	return s.profiles.IncrementCounter(dbc, fanID, creatorID, "messages_without_purchase")
}

// RecordFreeContentRequest bumps the counter and forces a recomputation
// once the counter crosses the penalty threshold.
func (s *qualityService) RecordFreeContentRequest(dbc dbctx.Context, fanID, creatorID uuid.UUID) error {
	if err := s.profiles.IncrementCounter(dbc, fanID, creatorID, "free_content_requests"); err != nil {
		return err
	}
	profile, err := s.profiles.GetByPair(dbc, fanID, creatorID)
	if err != nil || profile == nil {
		return err
	}
	if profile.FreeContentRequests >= freeRequestForceThreshold {
		if _, err := s.Recompute(dbc, fanID, creatorID); err != nil {
			s.log.Warn("forced recompute failed", "fan_id", fanID, "error", err)
		}
	}
	return nil
}

// SweepCreator re-scores the oldest-updated profiles for a creator,
// bounded by limit. Individual failures do not stop the sweep.
func (s *qualityService) SweepCreator(dbc dbctx.Context, creatorID uuid.UUID, limit int) (int, error) {
	profiles, err := s.profiles.ListStaleForCreator(dbc, creatorID, limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, p := range profiles {
		if _, err := s.Recompute(dbc, p.FanID, p.CreatorID); err != nil {
			s.log.Warn("sweep recompute failed", "fan_id", p.FanID, "creator_id", p.CreatorID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}
