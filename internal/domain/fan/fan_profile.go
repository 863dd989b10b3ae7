package fan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SpendingTier string

const (
	SpendingTierWhale   SpendingTier = "whale"
	SpendingTierRegular SpendingTier = "regular"
	SpendingTierFree    SpendingTier = "free"
)

type ActivityLevel string

const (
	ActivityDaily      ActivityLevel = "daily"
	ActivityWeekly     ActivityLevel = "weekly"
	ActivityOccasional ActivityLevel = "occasional"
	ActivityInactive   ActivityLevel = "inactive"
	ActivityUnknown    ActivityLevel = "unknown"
)

type Tone string

const (
	ToneRomantic  Tone = "romantic"
	TonePlayful   Tone = "playful"
	ToneExplicit  Tone = "explicit"
	ToneCasual    Tone = "casual"
	ToneDemanding Tone = "demanding"
)

type QualityTier string

const (
	QualityTierVIP         QualityTier = "vip"
	QualityTierQualified   QualityTier = "qualified"
	QualityTierUnqualified QualityTier = "unqualified"
	QualityTierUnknown     QualityTier = "unknown"
)

// FanProfile is the durable behavioral ledger for one (fan, creator) pair.
// It is upserted on every extraction pass and never deleted.
type FanProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FanID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_fan_profile_pair,priority:1" json:"fan_id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_fan_profile_pair,priority:2" json:"creator_id"`

	Language        string         `gorm:"type:text" json:"language"`
	PreferredTopics datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"preferred_topics"`
	PreferredTone   *Tone          `gorm:"type:text" json:"preferred_tone,omitempty"`
	ActivityLevel   ActivityLevel  `gorm:"type:text;not null;default:'unknown'" json:"activity_level"`

	TotalSpent   float64      `gorm:"not null;default:0" json:"total_spent"`
	SpendingTier SpendingTier `gorm:"type:text;not null;default:'free'" json:"spending_tier"`

	QualityScore int         `gorm:"not null;default:50" json:"quality_score"`
	QualityTier  QualityTier `gorm:"type:text;not null;default:'unknown';index" json:"quality_tier"`
	AIOnlyMode   bool        `gorm:"not null;default:false" json:"ai_only_mode"`
	AIOnlyReason *string     `gorm:"type:text" json:"ai_only_reason,omitempty"`

	FreeContentRequests     int `gorm:"not null;default:0" json:"free_content_requests"`
	MessagesWithoutPurchase int `gorm:"not null;default:0" json:"messages_without_purchase"`

	PersonalNote          *string    `gorm:"type:text" json:"personal_note,omitempty"`
	PersonalNoteUpdatedAt *time.Time `json:"personal_note_updated_at,omitempty"`
	PersonalNoteUpdatedBy *string    `gorm:"type:text" json:"personal_note_updated_by,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FanProfile) TableName() string { return "fan_profile" }
