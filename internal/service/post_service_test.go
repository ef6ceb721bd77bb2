package service

import (
	"context"
	"strings"
	"testing"

	"fittedin/internal/models"
	"fittedin/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *serviceEnv) postService() *PostService {
	return NewPostService(repository.NewPostRepository(e.db), e.conns, e.users, e.notifications)
}

func TestPostService_CreateAndEdit(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.postService()
	ctx := context.Background()
	author := env.user(t, "Avery", "avery@fitmail.io")
	other := env.user(t, "Blake", "blake@fitmail.io")

	_, err := svc.CreatePost(ctx, author.ID, "   ")
	requireCode(t, err, models.CodeValidation)
	_, err = svc.CreatePost(ctx, author.ID, strings.Repeat("x", 5001))
	requireCode(t, err, models.CodeValidation)

	post, err := svc.CreatePost(ctx, author.ID, "  First 5k done  ")
	require.NoError(t, err)
	assert.Equal(t, "First 5k done", post.Content)
	require.NotNil(t, post.User)
	assert.Equal(t, "Avery", post.User.DisplayName)

	_, err = svc.UpdatePost(ctx, other.ID, post.ID, "hijack")
	requireCode(t, err, models.CodeForbidden)
	requireCode(t, svc.DeletePost(ctx, other.ID, post.ID), models.CodeForbidden)

	edited, err := svc.UpdatePost(ctx, author.ID, post.ID, "First 10k done")
	require.NoError(t, err)
	assert.Equal(t, "First 10k done", edited.Content)

	require.NoError(t, svc.DeletePost(ctx, author.ID, post.ID))
	_, err = svc.GetPost(ctx, author.ID, post.ID)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_FeedCoversConnections(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.postService()
	ctx := context.Background()
	a := env.user(t, "Avery", "avery@fitmail.io")
	b := env.user(t, "Blake", "blake@fitmail.io")
	c := env.user(t, "Casey", "casey@fitmail.io")
	env.rawConnection(t, a.ID, b.ID, models.ConnectionStatusAccepted)
	env.rawConnection(t, a.ID, c.ID, models.ConnectionStatusPending)

	for _, u := range []*models.User{a, b, c} {
		_, err := svc.CreatePost(ctx, u.ID, "hello from "+u.DisplayName)
		require.NoError(t, err)
	}

	feed, err := svc.Feed(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPostLimit, feed.Limit)
	require.Len(t, feed.Posts, 2)
	authors := []uint{feed.Posts[0].UserID, feed.Posts[1].UserID}
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, authors)

	own, err := svc.ListByUser(ctx, a.ID, c.ID, 500, -3)
	require.NoError(t, err)
	assert.Equal(t, maxPostLimit, own.Limit)
	assert.Equal(t, 0, own.Offset)
	assert.Len(t, own.Posts, 1)

	_, err = svc.ListByUser(ctx, a.ID, 9999, 10, 0)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_LikeNotifiesOnce(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.postService()
	ctx := context.Background()
	author := env.user(t, "Avery", "avery@fitmail.io")
	fan := env.user(t, "Blake", "blake@fitmail.io")

	post, err := svc.CreatePost(ctx, author.ID, "PR on deadlift")
	require.NoError(t, err)

	liked, err := svc.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.LikesCount)

	_, err = svc.LikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	_, err = svc.LikePost(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.notificationCount(t, author.ID, models.NotificationPostLike))

	var n models.Notification
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", author.ID, models.NotificationPostLike).First(&n).Error)
	assert.Equal(t, "Blake liked your post", n.Title)

	unliked, err := svc.UnlikePost(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Equal(t, 1, unliked.LikesCount)

	_, err = svc.LikePost(ctx, fan.ID, 9999)
	requireCode(t, err, models.CodeNotFound)
}

func TestPostService_Comments(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.postService()
	ctx := context.Background()
	author := env.user(t, "Avery", "avery@fitmail.io")
	friend := env.user(t, "Blake", "blake@fitmail.io")

	post, err := svc.CreatePost(ctx, author.ID, "Rest day")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, friend.ID, post.ID, strings.Repeat("y", 1001))
	requireCode(t, err, models.CodeValidation)

	comment, err := svc.AddComment(ctx, friend.ID, post.ID, "Enjoy it")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, author.ID, post.ID, "Thanks")
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.notificationCount(t, author.ID, models.NotificationPostComment))

	got, err := svc.GetPost(ctx, author.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentsCount)

	requireCode(t, svc.DeleteComment(ctx, author.ID, comment.ID), models.CodeForbidden)
	require.NoError(t, svc.DeleteComment(ctx, friend.ID, comment.ID))
	requireCode(t, svc.DeleteComment(ctx, friend.ID, comment.ID), models.CodeNotFound)
}
