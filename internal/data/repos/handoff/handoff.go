package handoff

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	hd "github.com/fanlume/fanlume-backend/internal/domain/handoff"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

var activeStatuses = []hd.Status{hd.StatusPending, hd.StatusAutoAssigned, hd.StatusAccepted}

type HandoffRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationHandoff, error)
	GetActiveByConversation(dbc dbctx.Context, conversationID uuid.UUID) (*types.ConversationHandoff, error)
	ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.ConversationHandoff, error)
	Create(dbc dbctx.Context, row *types.ConversationHandoff) error
	// Transition performs a compare-and-set on status: the update applies
	// only if the row's current status is one of from. A zero rows-affected
	// result means a concurrent actor won the race.
	Transition(dbc dbctx.Context, id uuid.UUID, from []hd.Status, to hd.Status, fields map[string]any) (bool, error)
	ListExpiredPending(dbc dbctx.Context, now time.Time, limit int) ([]*types.ConversationHandoff, error)
}

type handoffRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHandoffRepo(db *gorm.DB, baseLog *logger.Logger) HandoffRepo {
	return &handoffRepo{db: db, log: baseLog.With("repo", "HandoffRepo")}
}

func (r *handoffRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *handoffRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ConversationHandoff, error) {
	var row types.ConversationHandoff
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *handoffRepo) GetActiveByConversation(dbc dbctx.Context, conversationID uuid.UUID) (*types.ConversationHandoff, error) {
	var row types.ConversationHandoff
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("conversation_id = ? AND status IN ?", conversationID, activeStatuses).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *handoffRepo) ListByConversation(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*types.ConversationHandoff, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []*types.ConversationHandoff
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *handoffRepo) Create(dbc dbctx.Context, row *types.ConversationHandoff) error {
	if row == nil {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if row.NotifiedAt.IsZero() {
		row.NotifiedAt = now
	}
	if row.ExpiresAt.IsZero() {
		row.ExpiresAt = row.CreatedAt.Add(24 * time.Hour)
	}
	return r.conn(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *handoffRepo) Transition(dbc dbctx.Context, id uuid.UUID, from []hd.Status, to hd.Status, fields map[string]any) (bool, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["status"] = to
	fields["updated_at"] = time.Now().UTC()
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.ConversationHandoff{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *handoffRepo) ListExpiredPending(dbc dbctx.Context, now time.Time, limit int) ([]*types.ConversationHandoff, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []*types.ConversationHandoff
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("status = ? AND expires_at <= ?", hd.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
