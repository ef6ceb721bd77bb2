package repository

import (
	"context"
	"errors"

	"fittedin/internal/cache"
	"fittedin/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository persists the one-per-user profile.
type ProfileRepository interface {
	// GetByUserID returns nil, nil when the user has not filled a profile yet.
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a ProfileRepository backed by db.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

var errNoProfile = errors.New("no profile")

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(userID), &profile, cache.ProfileTTL, func() error {
		err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNoProfile
		}
		return err
	})
	if errors.Is(err, errNoProfile) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pronouns", "bio", "location", "fitness_level", "primary_goals", "skills", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.ProfileKey(profile.UserID))
	return nil
}
