package messaging

import (
	"time"

	"github.com/google/uuid"
)

type TransactionKind string

const (
	TransactionKindPurchase     TransactionKind = "purchase"
	TransactionKindTip          TransactionKind = "tip"
	TransactionKindSubscription TransactionKind = "subscription"
)

// Transaction rows mirror the ledger service; the engine reads them for
// spend summaries and purchase counts.
type Transaction struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	FanID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_transaction_pair" json:"fan_id"`
	CreatorID uuid.UUID       `gorm:"type:uuid;not null;index:idx_transaction_pair" json:"creator_id"`
	Kind      TransactionKind `gorm:"type:text;not null" json:"kind"`
	Amount    float64         `gorm:"not null" json:"amount"`
	CreatedAt time.Time       `gorm:"not null;index" json:"created_at"`
}

func (Transaction) TableName() string { return "transaction" }
