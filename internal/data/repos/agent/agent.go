package agent

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type AgentRepo interface {
	ListAssignedToCreator(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.Agent, error)
}

type CreatorSettingsRepo interface {
	GetByCreator(dbc dbctx.Context, creatorID uuid.UUID) (*types.CreatorAISettings, error)
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{db: db, log: baseLog.With("repo", "AgentRepo")}
}

func (r *agentRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *agentRepo) ListAssignedToCreator(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.Agent, error) {
	var rows []*types.Agent
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Joins("JOIN agent_assignment aa ON aa.agent_id = agent.id").
		Where("aa.creator_id = ? AND agent.available = ?", creatorID, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type creatorSettingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCreatorSettingsRepo(db *gorm.DB, baseLog *logger.Logger) CreatorSettingsRepo {
	return &creatorSettingsRepo{db: db, log: baseLog.With("repo", "CreatorSettingsRepo")}
}

func (r *creatorSettingsRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *creatorSettingsRepo) GetByCreator(dbc dbctx.Context, creatorID uuid.UUID) (*types.CreatorAISettings, error) {
	var row types.CreatorAISettings
	err := r.conn(dbc).WithContext(dbc.Ctx).Where("creator_id = ?", creatorID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
