package repository

import (
	"context"
	"testing"

	"fittedin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := newDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()
	owner, other := createUser(t, db, "owner"), createUser(t, db, "other")

	var ids []uint
	for i := 0; i < 3; i++ {
		n := &models.Notification{UserID: owner.ID, Type: models.NotificationConnectionRequest, Title: "t", Message: "m", FromUserID: &other.ID}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
	}

	count, err := repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	_, err = repo.MarkRead(ctx, ids[0], other.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound), "other users cannot read someone else's notification")

	n, err := repo.MarkRead(ctx, ids[0], owner.ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.NotNil(t, n.ReadAt)

	unread, total, err := repo.List(ctx, owner.ID, NotificationFilter{Limit: 50, UnreadOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, unread, 2)
	require.NotNil(t, unread[0].FromUser)
	assert.Equal(t, "other", unread[0].FromUser.DisplayName)

	updated, err := repo.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	count, err = repo.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.True(t, models.IsCode(repo.Delete(ctx, ids[1], other.ID), models.CodeNotFound))
	require.NoError(t, repo.Delete(ctx, ids[1], owner.ID))

	all, total, err := repo.List(ctx, owner.ID, NotificationFilter{Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}
