package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"fittedin/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRepository_CreateAndFindBetween(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b := createUser(t, db, "ann"), createUser(t, db, "bob")

	conn := &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusPending}
	require.NoError(t, repo.Create(ctx, conn))
	assert.NotZero(t, conn.ID)

	for _, pair := range [][2]uint{{a.ID, b.ID}, {b.ID, a.ID}} {
		found, err := repo.FindBetween(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, conn.ID, found.ID)
	}

	none, err := repo.FindBetween(ctx, a.ID, 9999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestConnectionRepository_OppositeDirectionInsertConflicts(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b := createUser(t, db, "ann"), createUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusPending}))
	err := repo.Create(ctx, &models.Connection{RequesterID: b.ID, ReceiverID: a.ID, Status: models.ConnectionStatusPending})

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeConflict, appErr.Code)
}

func TestConnectionRepository_TransitionStatusIsConditional(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b := createUser(t, db, "ann"), createUser(t, db, "bob")
	conn := &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusPending}
	require.NoError(t, repo.Create(ctx, conn))

	changed, err := repo.TransitionStatus(ctx, conn.ID, models.ConnectionStatusPending, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.TransitionStatus(ctx, conn.ID, models.ConnectionStatusPending, models.ConnectionStatusRejected)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatusAccepted, got.Status)
	require.NotNil(t, got.Requester)
	assert.Equal(t, "ann", got.Requester.DisplayName)
}

func TestConnectionRepository_ReplaceRejected(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b := createUser(t, db, "ann"), createUser(t, db, "bob")
	old := &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusRejected}
	require.NoError(t, repo.Create(ctx, old))

	fresh := &models.Connection{RequesterID: b.ID, ReceiverID: a.ID, Status: models.ConnectionStatusPending}
	require.NoError(t, repo.ReplaceRejected(ctx, old.ID, fresh))

	found, err := repo.FindBetween(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, found.ID)
	assert.Equal(t, models.ConnectionStatusPending, found.Status)

	err = repo.ReplaceRejected(ctx, old.ID, &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusPending})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestConnectionRepository_BlockAndUnblock(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b := createUser(t, db, "ann"), createUser(t, db, "bob")
	require.NoError(t, repo.Create(ctx, &models.Connection{RequesterID: b.ID, ReceiverID: a.ID, Status: models.ConnectionStatusAccepted}))

	blocked, err := repo.Block(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, blocked.RequesterID)
	assert.Equal(t, models.ConnectionStatusBlocked, blocked.Status)

	removed, err := repo.DeleteBlock(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, removed, "only the blocker can lift a block")

	removed, err = repo.DeleteBlock(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestConnectionRepository_Listings(t *testing.T) {
	db := newDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()
	a, b, c, d := createUser(t, db, "ann"), createUser(t, db, "bob"), createUser(t, db, "cat"), createUser(t, db, "dan")

	require.NoError(t, repo.Create(ctx, &models.Connection{RequesterID: a.ID, ReceiverID: b.ID, Status: models.ConnectionStatusAccepted}))
	require.NoError(t, repo.Create(ctx, &models.Connection{RequesterID: c.ID, ReceiverID: a.ID, Status: models.ConnectionStatusAccepted}))
	require.NoError(t, repo.Create(ctx, &models.Connection{RequesterID: a.ID, ReceiverID: d.ID, Status: models.ConnectionStatusPending}))

	accepted, err := repo.ListForUser(ctx, a.ID, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	ids, err := repo.ConnectedUserIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, ids)

	sent, err := repo.ListSent(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, d.ID, sent[0].ReceiverID)

	received, err := repo.ListReceived(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, received, 1)

	pending, err := repo.ListByStatus(ctx, models.ConnectionStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	among, err := repo.ForUserAmong(ctx, a.ID, []uint{b.ID, d.ID, 999})
	require.NoError(t, err)
	assert.Len(t, among, 2)
	assert.Equal(t, models.ConnectionStatusPending, among[d.ID].Status)

	removed, err := repo.DeleteWithStatus(ctx, accepted[0].ID, d.ID, models.ConnectionStatusAccepted)
	require.NoError(t, err)
	assert.False(t, removed, "outsiders cannot remove a connection")
}

func TestConnectionRepository_PostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewConnectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "connections"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Connection{RequesterID: 1, ReceiverID: 2, Status: models.ConnectionStatusPending})
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionRepository_PostgresOtherErrorIsInternal(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewConnectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "connections" WHERE pair_low = $1 AND pair_high = $2`)).
		WithArgs(1, 2, 1).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindBetween(context.Background(), 2, 1)
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: connections.pair_low")))
	assert.False(t, isUniqueConstraintError(sqlmock.ErrCancelled))
}
