package database

import (
	"fmt"

	"fittedin/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters: referenced tables come first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.Connection{},
		&models.Notification{},
		&models.Goal{},
		&models.Post{},
		&models.PostLike{},
		&models.PostComment{},
		&models.Activity{},
	}
}

// AutoMigrate creates or updates every table in PersistentModels.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
