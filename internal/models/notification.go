package models

import (
	"time"
)

// NotificationType identifies what a notification is about.
type NotificationType string

const (
	NotificationConnectionRequest  NotificationType = "connection_request"
	NotificationConnectionAccepted NotificationType = "connection_accepted"
	NotificationPostLike           NotificationType = "post_like"
	NotificationPostComment        NotificationType = "post_comment"
	NotificationGoalCompleted      NotificationType = "goal_completed"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UserID            uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type              NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title             string           `gorm:"size:255;not null" json:"title"`
	Message           string           `gorm:"type:text;not null" json:"message"`
	RelatedEntityType string           `gorm:"size:50" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uint            `json:"related_entity_id,omitempty"`
	FromUserID        *uint            `gorm:"index" json:"from_user_id,omitempty"`
	FromUser          *User            `gorm:"foreignKey:FromUserID;constraint:OnDelete:SET NULL" json:"from_user,omitempty"`
	IsRead            bool             `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt            *time.Time       `json:"read_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
