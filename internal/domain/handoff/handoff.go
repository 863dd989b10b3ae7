package handoff

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TriggerType string

const (
	TriggerSpendingThreshold TriggerType = "spending_threshold"
	TriggerHighIntent        TriggerType = "high_intent"
	TriggerQualityUpgrade    TriggerType = "quality_upgrade"
	TriggerManual            TriggerType = "manual"
)

type Status string

const (
	StatusPending      Status = "PENDING"
	StatusAutoAssigned Status = "AUTO_ASSIGNED"
	StatusAccepted     Status = "ACCEPTED"
	StatusDeclined     Status = "DECLINED"
	StatusExpired      Status = "EXPIRED"
)

// Active reports whether a status still claims the conversation. At most
// one handoff per conversation may be in an active status at a time.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusAutoAssigned, StatusAccepted:
		return true
	default:
		return false
	}
}

// ConversationHandoff records one offer to move a conversation from the
// AI persona to a human operator. Rows are never hard-deleted; resolved
// offers stay as the audit trail.
type ConversationHandoff struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`

	TriggerType  TriggerType `gorm:"type:text;not null" json:"trigger_type"`
	TriggerValue string      `gorm:"type:text;not null" json:"trigger_value"`

	FromAgentID *uuid.UUID `gorm:"type:uuid" json:"from_agent_id,omitempty"`
	ToAgentID   *uuid.UUID `gorm:"type:uuid;index" json:"to_agent_id,omitempty"`

	Status Status `gorm:"type:text;not null;index" json:"status"`

	NotifiedAt  time.Time  `gorm:"not null" json:"notified_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ExpiresAt   time.Time  `gorm:"not null;index" json:"expires_at"`

	Notes    *string        `gorm:"type:text" json:"notes,omitempty"`
	Evidence datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"evidence"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ConversationHandoff) TableName() string { return "conversation_handoff" }
