// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fittedin/internal/cache"
	"fittedin/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	// SearchConnectable lists users other than userID that share no
	// connection row with userID, optionally filtered by term against
	// display name or e-mail. Newest accounts first.
	SearchConnectable(ctx context.Context, userID uint, term string, limit, offset int) ([]models.User, int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User

	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email. The lookup is
// case-insensitive and bypasses the cache so the password hash is loaded.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the mutable account fields. Email, password and the seeded
// flag are never changed here.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{ID: user.ID}).
		Select("display_name", "avatar_url").
		Updates(user)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", user.ID)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// Delete removes the account and every row owned by it in one transaction.
// Notifications the user sent to others keep their row with from_user_id
// cleared.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return err
		}

		ownPosts := tx.Unscoped().Model(&models.Post{}).Select("id").Where("user_id = ?", id)
		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&models.PostLike{}, "user_id = ? OR post_id IN (?)", []any{id, ownPosts}},
			{&models.PostComment{}, "user_id = ? OR post_id IN (?)", []any{id, ownPosts}},
			{&models.Post{}, "user_id = ?", []any{id}},
			{&models.Goal{}, "user_id = ?", []any{id}},
			{&models.Activity{}, "user_id = ?", []any{id}},
			{&models.Notification{}, "user_id = ?", []any{id}},
			{&models.Connection{}, "requester_id = ? OR receiver_id = ?", []any{id, id}},
			{&models.Profile{}, "user_id = ?", []any{id}},
		}
		for _, step := range steps {
			if err := tx.Unscoped().Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete %T: %w", step.model, err)
			}
		}
		if err := tx.Model(&models.Notification{}).
			Where("from_user_id = ?", id).
			Update("from_user_id", nil).Error; err != nil {
			return fmt.Errorf("detach notifications: %w", err)
		}
		return tx.Unscoped().Delete(&models.User{}, id).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, id)
	cache.InvalidateUnreadCount(ctx, id)
	return nil
}

func (r *userRepository) SearchConnectable(ctx context.Context, userID uint, term string, limit, offset int) ([]models.User, int64, error) {
	related := r.db.Model(&models.Connection{}).
		Select("CASE WHEN requester_id = ? THEN receiver_id ELSE requester_id END", userID).
		Where("requester_id = ? OR receiver_id = ?", userID, userID)

	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("users.id <> ?", userID).
		Where("users.id NOT IN (?)", related)
	if term = strings.TrimSpace(term); term != "" {
		p := likePattern(term)
		q = q.Where(`(LOWER(users.display_name) LIKE ? ESCAPE '\' OR LOWER(users.email) LIKE ? ESCAPE '\')`, p, p)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var users []models.User
	if err := q.Preload("Profile").
		Order("users.created_at DESC").
		Order("users.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
