package repository

import (
	"context"

	"fittedin/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository stores the append-only activity log.
type ActivityRepository interface {
	Create(ctx context.Context, a *models.Activity) error
	// ListForUsers returns entries by any of userIDs, newest first,
	// optionally filtered by type.
	ListForUsers(ctx context.Context, userIDs []uint, activityType models.ActivityType, limit, offset int) ([]models.Activity, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository returns an ActivityRepository backed by db.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, a *models.Activity) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *activityRepository) ListForUsers(ctx context.Context, userIDs []uint, activityType models.ActivityType, limit, offset int) ([]models.Activity, int64, error) {
	if len(userIDs) == 0 {
		return []models.Activity{}, 0, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Activity{}).Where("user_id IN ?", userIDs)
	if activityType != "" {
		q = q.Where("activity_type = ?", activityType)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var out []models.Activity
	if err := q.Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return out, total, nil
}
