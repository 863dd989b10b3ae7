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

type FanMemoryRepo interface {
	GetActiveByKey(dbc dbctx.Context, fanID, creatorID uuid.UUID, key string) (*types.FanMemory, error)
	ListActive(dbc dbctx.Context, fanID, creatorID uuid.UUID, now time.Time) ([]*types.FanMemory, error)
	Upsert(dbc dbctx.Context, row *types.FanMemory) error
	Deactivate(dbc dbctx.Context, id uuid.UUID) error
	DeactivateExpired(dbc dbctx.Context, now time.Time, limit int) (int64, error)
}

type fanMemoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFanMemoryRepo(db *gorm.DB, baseLog *logger.Logger) FanMemoryRepo {
	return &fanMemoryRepo{db: db, log: baseLog.With("repo", "FanMemoryRepo")}
}

func (r *fanMemoryRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *fanMemoryRepo) GetActiveByKey(dbc dbctx.Context, fanID, creatorID uuid.UUID, key string) (*types.FanMemory, error) {
	var row types.FanMemory
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("fan_id = ? AND creator_id = ? AND key = ? AND is_active = ?", fanID, creatorID, key, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *fanMemoryRepo) ListActive(dbc dbctx.Context, fanID, creatorID uuid.UUID, now time.Time) ([]*types.FanMemory, error) {
	var rows []*types.FanMemory
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("fan_id = ? AND creator_id = ? AND is_active = ?", fanID, creatorID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("category ASC, key ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert enforces the single-active-row-per-(fan, creator, key) invariant
// at the write boundary: if an active row exists it is updated in place,
// otherwise a new row is created.
func (r *fanMemoryRepo) Upsert(dbc dbctx.Context, row *types.FanMemory) error {
	if row == nil {
		return nil
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.LastConfirmed.IsZero() {
		row.LastConfirmed = now
	}

	existing, err := r.GetActiveByKey(dbc, row.FanID, row.CreatorID, row.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := r.conn(dbc).WithContext(dbc.Ctx).
			Model(&types.FanMemory{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"category":          row.Category,
				"value":             row.Value,
				"confidence":        row.Confidence,
				"extracted_by":      row.ExtractedBy,
				"source_message_id": row.SourceMessageID,
				"last_confirmed":    row.LastConfirmed,
				"expires_at":        row.ExpiresAt,
				"is_active":         true,
				"updated_at":        row.UpdatedAt,
			}).Error; err != nil {
			return err
		}
		row.ID = existing.ID
		return nil
	}

	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.IsActive = true
	return r.conn(dbc).WithContext(dbc.Ctx).Create(row).Error
}

func (r *fanMemoryRepo) Deactivate(dbc dbctx.Context, id uuid.UUID) error {
	return r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.FanMemory{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// DeactivateExpired flips is_active off for rows past their expiry. Rows
// are retained for audit; the sweep is bounded and safe to re-run.
func (r *fanMemoryRepo) DeactivateExpired(dbc dbctx.Context, now time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []uuid.UUID
	err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.FanMemory{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Order("expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.FanMemory{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}
