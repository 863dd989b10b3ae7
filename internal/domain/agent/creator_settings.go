package agent

import (
	"time"

	"github.com/google/uuid"
)

// CreatorAISettings configures the AI persona behavior for one creator,
// including the handoff policy the coordinator consults on every inbound
// message. Missing settings mean handoff is unavailable, not an error.
type CreatorAISettings struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"creator_id"`

	PersonaID *uuid.UUID `gorm:"type:uuid" json:"persona_id,omitempty"`

	HighIntentHandoffEnabled bool    `gorm:"not null;default:false" json:"high_intent_handoff_enabled"`
	AutoAssignEnabled        bool    `gorm:"not null;default:true" json:"auto_assign_enabled"`
	SpendingHandoffThreshold float64 `gorm:"not null;default:40" json:"spending_handoff_threshold"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CreatorAISettings) TableName() string { return "creator_ai_settings" }
