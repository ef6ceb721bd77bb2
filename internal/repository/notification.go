package repository

import (
	"context"
	"errors"
	"time"

	"fittedin/internal/cache"
	"fittedin/internal/models"

	"gorm.io/gorm"
)

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationRepository persists notifications. Every read and write is
// scoped to the recipient.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uint, f NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, id, userID uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a NotificationRepository backed by db.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUnreadCount(ctx, n.UserID)
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID uint, f NotificationFilter) ([]models.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var out []models.Notification
	if err := q.Preload("FromUser").
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return out, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(userID), &count, cache.UnreadCountTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Count(&count).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Notification", id)
		}
		return nil, models.NewInternalError(err)
	}
	if n.IsRead {
		return &n, nil
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&n).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	n.IsRead = true
	n.ReadAt = &now
	cache.InvalidateUnreadCount(ctx, userID)
	return &n, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	cache.InvalidateUnreadCount(ctx, userID)
	return res.RowsAffected, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	cache.InvalidateUnreadCount(ctx, userID)
	return nil
}
