package messaging

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type MessageRepo interface {
	ListRecentFanMessages(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	ListFanMessagesForPairSince(dbc dbctx.Context, fanID, creatorID uuid.UUID, since time.Time, limit int) ([]*types.Message, error)
	CountFanMessagesForPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "MessageRepo")}
}

func (r *messageRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

// ListRecentFanMessages returns the newest fan messages first.
func (r *messageRepo) ListRecentFanMessages(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []*types.Message
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("conversation_id = ? AND sender = ?", conversationID, types.MessageSenderFan).
		Order("sent_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) ListFanMessagesForPairSince(dbc dbctx.Context, fanID, creatorID uuid.UUID, since time.Time, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []*types.Message
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Joins("JOIN conversation c ON c.id = message.conversation_id").
		Where("c.fan_id = ? AND c.creator_id = ?", fanID, creatorID).
		Where("message.sender = ? AND message.sent_at >= ?", types.MessageSenderFan, since).
		Order("message.sent_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *messageRepo) CountFanMessagesForPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Message{}).
		Joins("JOIN conversation c ON c.id = message.conversation_id").
		Where("c.fan_id = ? AND c.creator_id = ?", fanID, creatorID).
		Where("message.sender = ?", types.MessageSenderFan).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
