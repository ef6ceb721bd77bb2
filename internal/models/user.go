// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a FittedIn account.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	DisplayName string `gorm:"size:100;not null;index" json:"display_name"`
	Password    string `gorm:"not null" json:"-"`
	AvatarURL   string `gorm:"size:500" json:"avatar_url"`
	// IsSeeded marks demo accounts created by the seeder. It is set once at
	// creation and never inferred from other fields.
	IsSeeded  bool           `gorm:"not null;default:false;index" json:"is_seeded"`
	Profile   *Profile       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PublicUser is the subset of user fields shown to other members.
type PublicUser struct {
	ID          uint      `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Public projects u onto the fields safe to show to other users.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		CreatedAt:   u.CreatedAt,
	}
}
