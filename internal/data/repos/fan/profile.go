package fan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
)

type FanProfileRepo interface {
	GetByPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*types.FanProfile, error)
	Upsert(dbc dbctx.Context, profile *types.FanProfile) error
	UpdateFields(dbc dbctx.Context, fanID, creatorID uuid.UUID, fields map[string]any) error
	IncrementCounter(dbc dbctx.Context, fanID, creatorID uuid.UUID, column string) error
	ListStaleForCreator(dbc dbctx.Context, creatorID uuid.UUID, limit int) ([]*types.FanProfile, error)
	ListWithNewerMessages(dbc dbctx.Context, limit int) ([]*types.FanProfile, error)
}

type fanProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFanProfileRepo(db *gorm.DB, baseLog *logger.Logger) FanProfileRepo {
	return &fanProfileRepo{db: db, log: baseLog.With("repo", "FanProfileRepo")}
}

func (r *fanProfileRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *fanProfileRepo) GetByPair(dbc dbctx.Context, fanID, creatorID uuid.UUID) (*types.FanProfile, error) {
	var profile types.FanProfile
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("fan_id = ? AND creator_id = ?", fanID, creatorID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *fanProfileRepo) Upsert(dbc dbctx.Context, profile *types.FanProfile) error {
	if profile == nil {
		return nil
	}
	now := time.Now().UTC()
	profile.UpdatedAt = now

	existing, err := r.GetByPair(dbc, profile.FanID, profile.CreatorID)
	if err != nil {
		return err
	}
	if existing != nil {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		return r.conn(dbc).WithContext(dbc.Ctx).Save(profile).Error
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	return r.conn(dbc).WithContext(dbc.Ctx).Create(profile).Error
}

func (r *fanProfileRepo) UpdateFields(dbc dbctx.Context, fanID, creatorID uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.FanProfile{}).
		Where("fan_id = ? AND creator_id = ?", fanID, creatorID).
		Updates(fields).Error
}

func (r *fanProfileRepo) IncrementCounter(dbc dbctx.Context, fanID, creatorID uuid.UUID, column string) error {
	switch column {
	case "free_content_requests", "messages_without_purchase":
	default:
		return gorm.ErrInvalidField
	}
	now := time.Now().UTC()
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.FanProfile{}).
		Where("fan_id = ? AND creator_id = ?", fanID, creatorID).
		Updates(map[string]any{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// A fan's first signals can land before any recompute has created the
	// profile row; seed it here so the count survives.
	profile := &types.FanProfile{
		ID:        uuid.New(),
		FanID:     fanID,
		CreatorID: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch column {
	case "free_content_requests":
		profile.FreeContentRequests = 1
	case "messages_without_purchase":
		profile.MessagesWithoutPurchase = 1
	}
	return r.conn(dbc).WithContext(dbc.Ctx).Create(profile).Error
}

// ListStaleForCreator feeds the quality recompute sweep, oldest updated
// first so repeated bounded invocations make progress across the fleet.
func (r *fanProfileRepo) ListStaleForCreator(dbc dbctx.Context, creatorID uuid.UUID, limit int) ([]*types.FanProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []*types.FanProfile
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("creator_id = ?", creatorID).
		Order("updated_at ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ListWithNewerMessages selects profiles whose conversation received fan
// messages after the profile's last update, bounding signal re-scoring.
func (r *fanProfileRepo) ListWithNewerMessages(dbc dbctx.Context, limit int) ([]*types.FanProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	var results []*types.FanProfile
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where(`EXISTS (
			SELECT 1 FROM conversation c
			JOIN message m ON m.conversation_id = c.id
			WHERE c.fan_id = fan_profile.fan_id
			  AND c.creator_id = fan_profile.creator_id
			  AND m.sender = 'fan'
			  AND m.sent_at > fan_profile.updated_at
		)`).
		Order("updated_at ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
