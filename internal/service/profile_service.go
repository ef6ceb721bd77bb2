package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"fittedin/internal/models"
	"fittedin/internal/repository"
)

// ProfileService reads and edits member profiles.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	userRepo    repository.UserRepository
	activities  ActivityRecorder
}

// NewProfileService returns a ProfileService. activities may be nil.
func NewProfileService(profileRepo repository.ProfileRepository, userRepo repository.UserRepository, activities ActivityRecorder) *ProfileService {
	return &ProfileService{profileRepo: profileRepo, userRepo: userRepo, activities: activities}
}

// ProfileView is a profile together with its owner.
type ProfileView struct {
	*models.Profile
	User models.PublicUser `json:"user"`
}

// GetProfile returns userID's profile. Users who never edited theirs get an
// empty profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, err
	}
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &models.Profile{UserID: userID}
	}
	return &ProfileView{Profile: profile, User: user.Public()}, nil
}

// GetPublicProfile is GetProfile for another member. The e-mail address is hidden.
func (s *ProfileService) GetPublicProfile(ctx context.Context, userID uint) (*ProfileView, error) {
	view, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	view.User.Email = ""
	return view, nil
}

// UpdateProfileInput holds the new profile values. Nil fields keep their value.
type UpdateProfileInput struct {
	UserID       uint
	Pronouns     *string
	Bio          *string
	Location     *string
	FitnessLevel *string
	PrimaryGoals *string
	Skills       *string
}

var profileLimits = struct {
	pronouns, bio, location, goals, skills int
}{pronouns: 50, bio: 1000, location: 100, goals: 2000, skills: 2000}

func trimmedWithin(field string, v *string, max int) (string, error) {
	s := strings.TrimSpace(*v)
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(field + " is too long")
	}
	return s, nil
}

// UpdateProfile creates or updates the caller's profile.
func (s *ProfileService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*ProfileView, error) {
	current, err := s.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	p := *current.Profile

	type field struct {
		name string
		in   *string
		out  *string
		max  int
	}
	for _, f := range []field{
		{"pronouns", in.Pronouns, &p.Pronouns, profileLimits.pronouns},
		{"bio", in.Bio, &p.Bio, profileLimits.bio},
		{"location", in.Location, &p.Location, profileLimits.location},
		{"primary_goals", in.PrimaryGoals, &p.PrimaryGoals, profileLimits.goals},
		{"skills", in.Skills, &p.Skills, profileLimits.skills},
	} {
		if f.in == nil {
			continue
		}
		v, err := trimmedWithin(f.name, f.in, f.max)
		if err != nil {
			return nil, err
		}
		*f.out = v
	}
	if in.FitnessLevel != nil {
		level := models.FitnessLevel(strings.ToLower(strings.TrimSpace(*in.FitnessLevel)))
		if !level.Valid() {
			return nil, models.NewValidationError("fitness_level must be beginner, intermediate or advanced")
		}
		p.FitnessLevel = level
	}

	// The upsert is keyed on user_id; a stale primary key would conflict first.
	p.ID = 0
	if err := s.profileRepo.Upsert(ctx, &p); err != nil {
		return nil, err
	}

	recordActivity(ctx, s.activities, &models.Activity{
		UserID:       in.UserID,
		ActivityType: models.ActivityProfileUpdated,
		ActivityData: map[string]any{"fitness_level": string(p.FitnessLevel)},
	})

	return s.GetProfile(ctx, in.UserID)
}
