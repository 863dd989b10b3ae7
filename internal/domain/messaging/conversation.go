package messaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationMode string

const (
	// ConversationModeAuto means the AI persona answers without human help.
	ConversationModeAuto ConversationMode = "auto"
	// ConversationModeAssisted means a human operator is steering replies.
	ConversationModeAssisted ConversationMode = "assisted"
)

// Conversation rows are owned by the messaging subsystem; the engine only
// reads them and flips Mode when a handoff is assigned.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FanID     uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_pair" json:"fan_id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;index:idx_conversation_pair" json:"creator_id"`

	Mode            ConversationMode `gorm:"type:text;not null;default:'auto'" json:"mode"`
	ActivePersonaID *uuid.UUID       `gorm:"type:uuid" json:"active_persona_id,omitempty"`
	AssignedAgentID *uuid.UUID       `gorm:"type:uuid;index" json:"assigned_agent_id,omitempty"`

	LastMessageAt *time.Time `json:"last_message_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Conversation) TableName() string { return "conversation" }
