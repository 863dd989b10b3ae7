package messaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

// SpendSummary mirrors what the ledger service reports for one pair.
type SpendSummary struct {
	TotalSpent    float64
	PurchaseCount int64
}

type TransactionRepo interface {
	Summary(dbc dbctx.Context, fanID, creatorID uuid.UUID) (SpendSummary, error)
}

type SubscriptionRepo interface {
	HasActive(dbc dbctx.Context, fanID, creatorID uuid.UUID, now time.Time) (bool, error)
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	return &transactionRepo{db: db, log: baseLog.With("repo", "TransactionRepo")}
}

func (r *transactionRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *transactionRepo) Summary(dbc dbctx.Context, fanID, creatorID uuid.UUID) (SpendSummary, error) {
	type agg struct {
		Total float64
		N     int64
	}
	var out agg
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS n").
		Where("fan_id = ? AND creator_id = ?", fanID, creatorID).
		Scan(&out).Error
	if err != nil {
		return SpendSummary{}, err
	}
	return SpendSummary{TotalSpent: out.Total, PurchaseCount: out.N}, nil
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *logger.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *subscriptionRepo) HasActive(dbc dbctx.Context, fanID, creatorID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Subscription{}).
		Where("fan_id = ? AND creator_id = ? AND active = ?", fanID, creatorID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
