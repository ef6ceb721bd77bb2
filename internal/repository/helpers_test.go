package repository

import (
	"fmt"
	"testing"

	"fittedin/internal/models"
	"fittedin/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Email:       fmt.Sprintf("%s@fitmail.io", name),
		DisplayName: name,
		Password:    "hash",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func newDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}
