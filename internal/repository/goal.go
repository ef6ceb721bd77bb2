package repository

import (
	"context"
	"errors"

	"fittedin/internal/models"

	"gorm.io/gorm"
)

// GoalFilter narrows a goal listing. Empty fields match everything.
type GoalFilter struct {
	Status   models.GoalStatus
	Category models.GoalCategory
}

// GoalRepository persists goals.
type GoalRepository interface {
	Create(ctx context.Context, goal *models.Goal) error
	// GetForUser returns goal id if it belongs to userID.
	GetForUser(ctx context.Context, id, userID uint) (*models.Goal, error)
	List(ctx context.Context, userID uint, f GoalFilter) ([]models.Goal, error)
	Update(ctx context.Context, goal *models.Goal) error
	Delete(ctx context.Context, id, userID uint) error
}

type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository returns a GoalRepository backed by db.
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *models.Goal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *goalRepository) GetForUser(ctx context.Context, id, userID uint) (*models.Goal, error) {
	var goal models.Goal
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Goal", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &goal, nil
}

func (r *goalRepository) List(ctx context.Context, userID uint, f GoalFilter) ([]models.Goal, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	var goals []models.Goal
	if err := q.Order("created_at DESC").Order("id DESC").Find(&goals).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return goals, nil
}

func (r *goalRepository) Update(ctx context.Context, goal *models.Goal) error {
	if err := r.db.WithContext(ctx).Save(goal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *goalRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Goal{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Goal", id)
	}
	return nil
}
