package service

import (
	"context"
	"log/slog"
	"strings"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/repository"
	"fittedin/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService handles accounts: registration, credential checks and the
// mutable account fields.
type UserService struct {
	userRepo repository.UserRepository
	cost     int
}

// NewUserService returns a UserService hashing with bcrypt.DefaultCost.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost used for new hashes. Values outside bcrypt's
// range fall back to bcrypt.DefaultCost.
func (s *UserService) WithCost(cost int) *UserService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	s.cost = cost
	return s
}

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	// IsSeeded is only set by the seeder.
	IsSeeded bool
}

// HashPassword hashes a plain-text password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// Register validates in and creates the account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.DisplayName)

	if err := validation.ValidateDisplayName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("User with this email already exists")
	}

	hashed, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:       email,
		DisplayName: name,
		Password:    hashed,
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		IsSeeded:    in.IsSeeded,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			return nil, models.NewConflictError("User with this email already exists")
		}
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate returns the account matching email and password. Unknown
// e-mail and wrong password produce the same Unauthorized error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("Invalid email or password")
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

// GetUser returns the account with id.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateAccountInput changes account fields. Nil fields are left alone.
type UpdateAccountInput struct {
	UserID      uint
	DisplayName *string
	AvatarURL   *string
}

const maxAvatarURLLen = 500

// UpdateAccount applies in to the caller's account.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := validation.ValidateDisplayName(name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.DisplayName = name
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if len(avatar) > maxAvatarURLLen {
			return nil, models.NewValidationError("Avatar URL too long (max 500 characters)")
		}
		user.AvatarURL = avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount permanently removes the account together with its
// connections, notifications, goals, posts and profile.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "account deleted", slog.Uint64("user_id", uint64(userID)))
	return nil
}
