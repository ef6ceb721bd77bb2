// Package seed populates a database with demo accounts for development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/repository"
	"fittedin/internal/service"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultDomain is the e-mail domain of generated accounts.
const DefaultDomain = "fittedin-seeded.com"

// Options configures a seeding run.
type Options struct {
	NumUsers           int
	PostsPerUser       int
	GoalsPerUser       int
	ConnectionsPerUser int
	// Domain is the e-mail domain of generated accounts.
	Domain string
	// Password is shared by every generated account.
	Password   string
	BcryptCost int
	// MaxDays bounds how far back generated timestamps go.
	MaxDays int
	// RosterPath points at a roster YAML file; empty uses the built-in one.
	RosterPath string
	// Clean removes every seeded account before seeding.
	Clean      bool
	RandomSeed int64
}

// DefaultOptions returns the settings used by cmd/seed.
func DefaultOptions() Options {
	return Options{
		NumUsers:           20,
		PostsPerUser:       3,
		GoalsPerUser:       2,
		ConnectionsPerUser: 3,
		Domain:             DefaultDomain,
		Password:           "SeededUser123!",
		BcryptCost:         bcrypt.DefaultCost,
		MaxDays:            60,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Domain == "" {
		o.Domain = d.Domain
	}
	if o.Password == "" {
		o.Password = d.Password
	}
	if o.BcryptCost == 0 {
		o.BcryptCost = d.BcryptCost
	}
	if o.MaxDays <= 0 {
		o.MaxDays = d.MaxDays
	}
	return o
}

// Result counts what a run created.
type Result struct {
	RosterUsers  int
	RosterSkips  int
	Users        int
	Profiles     int
	Goals        int
	Posts        int
	Connections  int
	CleanedUsers int64
}

// Seeder creates demo data.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	users *service.UserService
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	opts = opts.withDefaults()
	users := service.NewUserService(repository.NewUserRepository(db)).WithCost(opts.BcryptCost)
	return &Seeder{db: db, opts: opts, users: users}
}

// Run seeds the roster accounts and then the generated ones. Roster accounts
// that already exist are skipped, so repeated runs are safe.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if s.opts.Clean {
		n, err := s.Clean(ctx)
		if err != nil {
			return nil, err
		}
		res.CleanedUsers = n
	}

	roster, err := LoadRoster(s.opts.RosterPath)
	if err != nil {
		return nil, err
	}
	factory, err := NewFactory(s.db.WithContext(ctx), s.opts)
	if err != nil {
		return nil, err
	}

	if err := s.seedRoster(ctx, factory, roster, res); err != nil {
		return nil, err
	}
	if err := s.seedGenerated(ctx, factory, res); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seeding completed",
		slog.Int("roster_users", res.RosterUsers),
		slog.Int("roster_skipped", res.RosterSkips),
		slog.Int("users", res.Users),
		slog.Int("goals", res.Goals),
		slog.Int("posts", res.Posts),
		slog.Int("connections", res.Connections),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Seeder) seedRoster(ctx context.Context, factory *Factory, roster *Roster, res *Result) error {
	for _, ru := range roster.Users {
		user, err := s.users.Register(ctx, service.RegisterInput{
			Email:       ru.Email,
			Password:    ru.Password,
			DisplayName: ru.DisplayName,
			AvatarURL:   ru.AvatarURL,
			IsSeeded:    ru.IsSeeded(),
		})
		if models.IsCode(err, models.CodeConflict) {
			res.RosterSkips++
			continue
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", ru.Email, err)
		}
		res.RosterUsers++

		if p := ru.Profile; p != nil {
			if _, err := factory.CreateProfile(user, func(profile *models.Profile) {
				profile.Pronouns = p.Pronouns
				profile.Bio = p.Bio
				profile.Location = p.Location
				profile.FitnessLevel = models.FitnessLevel(p.FitnessLevel)
				profile.PrimaryGoals = p.PrimaryGoals
				profile.Skills = p.Skills
			}); err != nil {
				return fmt.Errorf("profile for %s: %w", ru.Email, err)
			}
			res.Profiles++
		}

		for _, g := range ru.Goals {
			if _, err := factory.CreateGoal(user, rosterGoal(g)); err != nil {
				return fmt.Errorf("goal %q for %s: %w", g.Title, ru.Email, err)
			}
			res.Goals++
		}
	}
	return nil
}

func rosterGoal(g RosterGoal) func(*models.Goal) {
	return func(goal *models.Goal) {
		goal.Title = g.Title
		goal.Description = g.Description
		goal.Category = models.GoalCategory(g.Category)
		goal.TargetValue = g.TargetValue
		goal.CurrentValue = g.CurrentValue
		goal.Unit = g.Unit
		goal.Status = models.GoalStatusActive
		goal.Priority = models.GoalPriorityMedium
		if p := models.GoalPriority(g.Priority); p.Valid() {
			goal.Priority = p
		}
		if g.TargetValue != nil && *g.TargetValue > 0 && g.CurrentValue >= *g.TargetValue {
			goal.Status = models.GoalStatusCompleted
		}
	}
}

func (s *Seeder) seedGenerated(ctx context.Context, factory *Factory, res *Result) error {
	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)
		res.Users++

		if _, err := factory.CreateProfile(user); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		res.Profiles++

		for j := 0; j < s.opts.GoalsPerUser; j++ {
			if _, err := factory.CreateGoal(user); err != nil {
				return fmt.Errorf("create goal: %w", err)
			}
			res.Goals++
		}
		for j := 0; j < s.opts.PostsPerUser; j++ {
			if _, err := factory.CreatePost(user); err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			res.Posts++
		}
	}

	// Each generated account is connected to the next few in a ring.
	k := min(s.opts.ConnectionsPerUser, len(users)-1)
	for i, a := range users {
		for step := 1; step <= k; step++ {
			b := users[(i+step)%len(users)]
			created, err := factory.CreateConnection(a, b, models.ConnectionStatusAccepted)
			if err != nil {
				return fmt.Errorf("connect %d and %d: %w", a.ID, b.ID, err)
			}
			if created {
				res.Connections++
			}
		}
	}
	return nil
}

// Clean hard-deletes every seeded account and the rows that belong to it.
// Returns the number of accounts removed.
func (s *Seeder) Clean(ctx context.Context) (int64, error) {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seeded := tx.Unscoped().Model(&models.User{}).Select("id").Where("is_seeded = ?", true)
		seededPosts := tx.Unscoped().Model(&models.Post{}).Select("id").Where("user_id IN (?)", seeded)

		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&models.PostLike{}, "user_id IN (?) OR post_id IN (?)", []any{seeded, seededPosts}},
			{&models.PostComment{}, "user_id IN (?) OR post_id IN (?)", []any{seeded, seededPosts}},
			{&models.Post{}, "user_id IN (?)", []any{seeded}},
			{&models.Goal{}, "user_id IN (?)", []any{seeded}},
			{&models.Activity{}, "user_id IN (?)", []any{seeded}},
			{&models.Notification{}, "user_id IN (?) OR from_user_id IN (?)", []any{seeded, seeded}},
			{&models.Connection{}, "requester_id IN (?) OR receiver_id IN (?)", []any{seeded, seeded}},
			{&models.Profile{}, "user_id IN (?)", []any{seeded}},
		}
		for _, step := range steps {
			if err := tx.Unscoped().Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("clean %T: %w", step.model, err)
			}
		}

		del := tx.Unscoped().Where("is_seeded = ?", true).Delete(&models.User{})
		if del.Error != nil {
			return fmt.Errorf("clean users: %w", del.Error)
		}
		removed = del.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	middleware.Logger.InfoContext(ctx, "seeded accounts removed", slog.Int64("users", removed))
	return removed, nil
}
