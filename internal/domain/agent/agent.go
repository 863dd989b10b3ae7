package agent

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Agent is a human operator who can take over conversations for the
// creators they are assigned to.
type Agent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string    `gorm:"type:text;not null" json:"display_name"`
	Available   bool      `gorm:"not null;default:true" json:"available"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Agent) TableName() string { return "agent" }

// AgentAssignment links an agent to a creator whose conversations they
// may be offered.
type AgentAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_agent_assignment,priority:1" json:"agent_id"`
	CreatorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_agent_assignment,priority:2" json:"creator_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (AgentAssignment) TableName() string { return "agent_assignment" }
