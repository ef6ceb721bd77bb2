package repository

import (
	"context"
	"testing"

	"fittedin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CountsAndLikes(t *testing.T) {
	db := newDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author, fan := createUser(t, db, "author"), createUser(t, db, "fan")

	post := &models.Post{UserID: author.ID, Content: "Ran 10k today"}
	require.NoError(t, repo.Create(ctx, post))

	created, err := repo.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Like(ctx, fan.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, created, "second like is a no-op")

	require.NoError(t, repo.AddComment(ctx, &models.PostComment{PostID: post.ID, UserID: fan.ID, Content: "Nice!"}))

	got, err := repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.CommentsCount)
	assert.True(t, got.Liked)
	require.Len(t, got.Comments, 1)

	asAuthor, err := repo.GetByID(ctx, post.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, asAuthor.Liked)

	require.NoError(t, repo.Unlike(ctx, fan.ID, post.ID))
	got, err = repo.GetByID(ctx, post.ID, fan.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikesCount)
}

func TestPostRepository_ListByAuthors(t *testing.T) {
	db := newDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	a, b, c := createUser(t, db, "a"), createUser(t, db, "b"), createUser(t, db, "c")

	for _, u := range []*models.User{a, b, c} {
		require.NoError(t, repo.Create(ctx, &models.Post{UserID: u.ID, Content: "hello from " + u.DisplayName}))
	}

	posts, err := repo.ListByAuthors(ctx, []uint{a.ID, b.ID}, 10, 0, a.ID)
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	empty, err := repo.ListByAuthors(ctx, nil, 10, 0, a.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = repo.GetByID(ctx, 9999, 0)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
