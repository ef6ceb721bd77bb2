package service

import (
	"context"
	"strings"
	"testing"

	"fittedin/internal/models"
	"fittedin/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_Register(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewUserService(env.users).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		u, err := svc.Register(ctx, RegisterInput{
			Email:       "  Jamie@FitMail.io ",
			Password:    "Str0ngPass",
			DisplayName: " Jamie ",
		})
		require.NoError(t, err)
		assert.Equal(t, "jamie@fitmail.io", u.Email)
		assert.Equal(t, "Jamie", u.DisplayName)
		assert.False(t, u.IsSeeded)
		assert.NotEqual(t, "Str0ngPass", u.Password)
	})

	t.Run("Duplicate Email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "jamie@fitmail.io", Password: "Str0ngPass", DisplayName: "Jamie Two"})
		requireCode(t, err, models.CodeConflict)
		assert.Equal(t, "User with this email already exists", err.Error())
	})

	t.Run("Weak Password", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "kai@fitmail.io", Password: "weak", DisplayName: "Kai"})
		requireCode(t, err, models.CodeValidation)
	})

	t.Run("Bad Email", func(t *testing.T) {
		_, err := svc.Register(ctx, RegisterInput{Email: "kai-at-fitmail", Password: "Str0ngPass", DisplayName: "Kai"})
		requireCode(t, err, models.CodeValidation)
	})

	t.Run("Seeded Flag Kept", func(t *testing.T) {
		u, err := svc.Register(ctx, RegisterInput{Email: "coach@fitmail.io", Password: "Str0ngPass", DisplayName: "Coach", IsSeeded: true})
		require.NoError(t, err)
		stored, err := env.users.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsSeeded)
	})
}

func TestUserService_Authenticate(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewUserService(env.users).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "lee@fitmail.io", Password: "Str0ngPass", DisplayName: "Lee"})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "LEE@fitmail.io", "Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, "lee@fitmail.io", u.Email)

	for _, tc := range []struct{ email, password string }{
		{"lee@fitmail.io", "WrongPass1"},
		{"nobody@fitmail.io", "Str0ngPass"},
		{"", ""},
	} {
		_, err := svc.Authenticate(ctx, tc.email, tc.password)
		requireCode(t, err, models.CodeUnauthorized)
		assert.Equal(t, "Invalid email or password", err.Error())
	}
}

func TestUserService_UpdateAccount(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewUserService(env.users)
	ctx := context.Background()
	u := env.user(t, "Morgan", "morgan@fitmail.io")

	name := "Morgan R"
	avatar := "https://cdn.fitmail.io/a.png"
	updated, err := svc.UpdateAccount(ctx, UpdateAccountInput{UserID: u.ID, DisplayName: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Morgan R", updated.DisplayName)
	assert.Equal(t, avatar, updated.AvatarURL)

	long := strings.Repeat("a", 501)
	_, err = svc.UpdateAccount(ctx, UpdateAccountInput{UserID: u.ID, AvatarURL: &long})
	requireCode(t, err, models.CodeValidation)

	short := "M"
	_, err = svc.UpdateAccount(ctx, UpdateAccountInput{UserID: u.ID, DisplayName: &short})
	requireCode(t, err, models.CodeValidation)
}

func TestProfileService_GetAndUpdate(t *testing.T) {
	env := newServiceEnv(t)
	svc := NewProfileService(repository.NewProfileRepository(env.db), env.users, env.activities)
	ctx := context.Background()
	u := env.user(t, "Riley", "riley@fitmail.io")

	view, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, view.UserID)
	assert.Empty(t, view.Bio)
	assert.Equal(t, "riley@fitmail.io", view.User.Email)

	bio := "  Trail runner  "
	level := "Intermediate"
	view, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, Bio: &bio, FitnessLevel: &level})
	require.NoError(t, err)
	assert.Equal(t, "Trail runner", view.Bio)
	assert.Equal(t, models.FitnessLevel("intermediate"), view.FitnessLevel)

	goals := "Sub-2h half marathon"
	view, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, PrimaryGoals: &goals})
	require.NoError(t, err)
	assert.Equal(t, "Trail runner", view.Bio)
	assert.Equal(t, goals, view.PrimaryGoals)
	assert.Len(t, env.activitiesOf(t, u.ID, models.ActivityProfileUpdated), 2)

	public, err := svc.GetPublicProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, public.User.Email)

	bad := "elite"
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, FitnessLevel: &bad})
	requireCode(t, err, models.CodeValidation)

	long := strings.Repeat("p", 51)
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: u.ID, Pronouns: &long})
	requireCode(t, err, models.CodeValidation)

	_, err = svc.GetProfile(ctx, 9999)
	requireCode(t, err, models.CodeNotFound)
}

func TestActivityService_FeedAndFilter(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	a := env.user(t, "Avery", "avery@fitmail.io")
	b := env.user(t, "Blake", "blake@fitmail.io")
	c := env.user(t, "Casey", "casey@fitmail.io")
	env.rawConnection(t, a.ID, b.ID, models.ConnectionStatusAccepted)

	requireCode(t, env.activities.Record(ctx, &models.Activity{UserID: a.ID}), models.CodeValidation)

	for _, act := range []*models.Activity{
		{UserID: a.ID, ActivityType: models.ActivityGoalCreated},
		{UserID: a.ID, ActivityType: models.ActivityProfileUpdated},
		{UserID: b.ID, ActivityType: models.ActivityGoalCompleted},
		{UserID: c.ID, ActivityType: models.ActivityGoalCreated},
	} {
		require.NoError(t, env.activities.Record(ctx, act))
	}

	feed, err := env.activities.Feed(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, feed.Total)
	assert.Equal(t, defaultActivityLimit, feed.Limit)
	for _, act := range feed.Activities {
		assert.NotEqual(t, c.ID, act.UserID)
	}

	own, err := env.activities.ListForUser(ctx, a.ID, models.ActivityGoalCreated, 500, -1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, own.Total)
	assert.Equal(t, maxActivityLimit, own.Limit)
	assert.Equal(t, 0, own.Offset)
}
