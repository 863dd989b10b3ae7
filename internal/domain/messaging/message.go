package messaging

import (
	"time"

	"github.com/google/uuid"
)

type MessageSender string

const (
	MessageSenderFan     MessageSender = "fan"
	MessageSenderCreator MessageSender = "creator"
)

// Message rows are read-only inputs supplied by the messaging subsystem.
type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Sender         MessageSender `gorm:"type:text;not null" json:"sender"`
	Text           string        `gorm:"type:text;not null" json:"text"`
	IsPurchase     bool          `gorm:"not null;default:false" json:"is_purchase"`
	SentAt         time.Time     `gorm:"not null;index" json:"sent_at"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
}

func (Message) TableName() string { return "message" }
