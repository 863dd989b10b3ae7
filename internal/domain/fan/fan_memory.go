package fan

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemoryCategory string

const (
	MemoryCategoryPersonal     MemoryCategory = "personal"
	MemoryCategoryPreference   MemoryCategory = "preference"
	MemoryCategoryEvent        MemoryCategory = "event"
	MemoryCategoryPurchase     MemoryCategory = "purchase"
	MemoryCategoryRelationship MemoryCategory = "relationship"
)

type MemorySource string

const (
	MemorySourcePattern MemorySource = "pattern"
	MemorySourceAI      MemorySource = "ai"
	MemorySourceChatter MemorySource = "chatter"
	MemorySourceManual  MemorySource = "manual"
)

// FanMemory is one structured, confidence-scored fact about a fan.
// At most one active row may exist per (fan, creator, key); re-extraction
// overwrites value/confidence in place instead of duplicating. Expired
// rows are deactivated by the sweep, never deleted.
type FanMemory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FanID     uuid.UUID `gorm:"type:uuid;not null;index:idx_fan_memory_pair" json:"fan_id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;index:idx_fan_memory_pair" json:"creator_id"`

	Category   MemoryCategory `gorm:"type:text;not null;index" json:"category"`
	Key        string         `gorm:"type:text;not null" json:"key"`
	Value      string         `gorm:"type:text;not null" json:"value"`
	Confidence float64        `gorm:"not null;default:0.0" json:"confidence"`

	ExtractedBy     MemorySource `gorm:"type:text;not null" json:"extracted_by"`
	SourceMessageID *uuid.UUID   `gorm:"type:uuid" json:"source_message_id,omitempty"`

	LastConfirmed time.Time  `gorm:"not null" json:"last_confirmed"`
	ExpiresAt     *time.Time `gorm:"index" json:"expires_at,omitempty"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (FanMemory) TableName() string { return "fan_memory" }
