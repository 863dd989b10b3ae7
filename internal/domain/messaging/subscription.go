package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tracks a fan's paid subscription to one creator.
type Subscription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	FanID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_subscription_pair" json:"fan_id"`
	CreatorID uuid.UUID  `gorm:"type:uuid;not null;index:idx_subscription_pair" json:"creator_id"`
	Active    bool       `gorm:"not null;default:true" json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscription" }
