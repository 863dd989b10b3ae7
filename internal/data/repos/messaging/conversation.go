package messaging

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type ConversationRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error)
	GetByPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*types.Conversation, error)
	SetAssisted(dbc dbctx.Context, id uuid.UUID, agentID *uuid.UUID) error
	SetAuto(dbc dbctx.Context, id uuid.UUID) error
	CountAssistedByAgents(dbc dbctx.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *conversationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByPair returns the most recently updated conversation between a
// fan and a creator, or nil when they have never talked.
func (r *conversationRepo) GetByPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("fan_id = ? AND creator_id = ?", fanID, creatorID).
		Order("updated_at DESC").
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) SetAssisted(dbc dbctx.Context, id uuid.UUID, agentID *uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"mode":              types.ConversationModeAssisted,
			"assigned_agent_id": agentID,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// SetAuto hands the conversation back to the AI persona.
func (r *conversationRepo) SetAuto(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"mode":              types.ConversationModeAuto,
			"assigned_agent_id": nil,
			"updated_at":        time.Now().UTC(),
		}).Error
}

// CountAssistedByAgents returns each agent's current assisted-conversation
// count; agents with no assisted conversations are present with zero.
func (r *conversationRepo) CountAssistedByAgents(dbc dbctx.Context, agentIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(agentIDs))
	for _, id := range agentIDs {
		counts[id] = 0
	}
	if len(agentIDs) == 0 {
		return counts, nil
	}

	type row struct {
		AssignedAgentID uuid.UUID
		N               int64
	}
	var rows []row
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Conversation{}).
		Select("assigned_agent_id, COUNT(*) AS n").
		Where("assigned_agent_id IN ? AND mode = ?", agentIDs, types.ConversationModeAssisted).
		Group("assigned_agent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		counts[rw.AssignedAgentID] = rw.N
	}
	return counts, nil
}
