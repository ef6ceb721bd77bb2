package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"fittedin/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository_GetByID_Mock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		expectedCode string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "display_name", "email"}).
					AddRow(1, "Ann", "ann@fitmail.io")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WithArgs(2, 1).
					WillReturnError(errors.New("db down"))
			},
			expectedCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)
			if tt.expectedCode != "" {
				assert.True(t, models.IsCode(err, tt.expectedCode), "got %v", err)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Ann", user.DisplayName)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db := newDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Email: "dup@fitmail.io", DisplayName: "One", Password: "x"}))
	err := repo.Create(ctx, &models.User{Email: "dup@fitmail.io", DisplayName: "Two", Password: "x"})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestUserRepository_GetByEmailCaseInsensitive(t *testing.T) {
	db := newDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, db, "ann")

	u, err := repo.GetByEmail(ctx, "  ANN@FitMail.io ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "hash", u.Password)

	missing, err := repo.GetByEmail(ctx, "nobody@fitmail.io")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_UpdateKeepsPassword(t *testing.T) {
	db := newDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "ann")

	require.NoError(t, repo.Update(ctx, &models.User{ID: u.ID, DisplayName: "Annie", AvatarURL: "https://img/a.png"}))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, u.ID).Error)
	assert.Equal(t, "Annie", reloaded.DisplayName)
	assert.Equal(t, "hash", reloaded.Password)

	err := repo.Update(ctx, &models.User{ID: 4242, DisplayName: "Ghost"})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_SearchConnectable(t *testing.T) {
	db := newDB(t)
	repo := NewUserRepository(db)
	conns := NewConnectionRepository(db)
	ctx := context.Background()

	me := createUser(t, db, "me")
	friend := createUser(t, db, "friend")
	rejected := createUser(t, db, "rejected")
	stranger := createUser(t, db, "stranger")
	other := createUser(t, db, "other_person")

	require.NoError(t, conns.Create(ctx, &models.Connection{RequesterID: me.ID, ReceiverID: friend.ID, Status: models.ConnectionStatusAccepted}))
	require.NoError(t, conns.Create(ctx, &models.Connection{RequesterID: rejected.ID, ReceiverID: me.ID, Status: models.ConnectionStatusRejected}))

	users, total, err := repo.SearchConnectable(ctx, me.ID, "", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	var ids []uint
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []uint{stranger.ID, other.ID}, ids)

	users, total, err = repo.SearchConnectable(ctx, me.ID, "STRAN", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, stranger.ID, users[0].ID)

	// Underscore is matched literally, not as a wildcard.
	users, _, err = repo.SearchConnectable(ctx, me.ID, "_", 20, 0)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, other.ID, users[0].ID)

	users, total, err = repo.SearchConnectable(ctx, me.ID, "", 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 1)
}

func TestUserRepository_DeleteRemovesOwnedRows(t *testing.T) {
	db := newDB(t)
	repo := NewUserRepository(db)
	conns := NewConnectionRepository(db)
	ctx := context.Background()
	a, b, c := createUser(t, db, "ann"), createUser(t, db, "bob"), createUser(t, db, "cat")

	require.NoError(t, conns.Create(ctx, &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusAccepted}))
	require.NoError(t, conns.Create(ctx, &models.Connection{RequesterID: b.ID, ReceiverID: c.ID, Status: models.ConnectionStatusPending}))
	require.NoError(t, conns.Create(ctx, &models.Connection{RequesterID: a.ID, ReceiverID: c.ID, Status: models.ConnectionStatusAccepted}))

	require.NoError(t, db.Create(&models.Profile{UserID: b.ID, Bio: "runner"}).Error)
	require.NoError(t, db.Create(&models.Goal{UserID: b.ID, Title: "10k", Category: models.GoalCategoryCardio}).Error)
	post := &models.Post{UserID: b.ID, Content: "hello"}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.PostLike{PostID: post.ID, UserID: a.ID}).Error)
	require.NoError(t, db.Create(&models.PostComment{PostID: post.ID, UserID: a.ID, Content: "nice"}).Error)
	require.NoError(t, db.Create(&models.Notification{UserID: b.ID, Type: models.NotificationPostLike, Title: "t", Message: "m", FromUserID: &a.ID}).Error)
	sent := &models.Notification{UserID: a.ID, Type: models.NotificationConnectionAccepted, Title: "t", Message: "m", FromUserID: &b.ID}
	require.NoError(t, db.Create(sent).Error)

	require.NoError(t, repo.Delete(ctx, b.ID))

	rows, err := conns.ListForUser(ctx, a.ID, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, c.ID, rows[0].ReceiverID)

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Unscoped().Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.User{}, "id = ?", b.ID))
	assert.Zero(t, count(&models.Connection{}, "requester_id = ? OR receiver_id = ?", b.ID, b.ID))
	assert.Zero(t, count(&models.Profile{}, "user_id = ?", b.ID))
	assert.Zero(t, count(&models.Goal{}, "user_id = ?", b.ID))
	assert.Zero(t, count(&models.Post{}, "user_id = ?", b.ID))
	assert.Zero(t, count(&models.PostLike{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.PostComment{}, "post_id = ?", post.ID))
	assert.Zero(t, count(&models.Notification{}, "user_id = ?", b.ID))

	var kept models.Notification
	require.NoError(t, db.First(&kept, sent.ID).Error)
	assert.Nil(t, kept.FromUserID)

	err = repo.Delete(ctx, b.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "got %v", err)
}
