package models

import (
	"time"
)

// ActivityType enumerates the events recorded in a user's activity log.
type ActivityType string

const (
	ActivityGoalCreated        ActivityType = "goal_created"
	ActivityGoalUpdated        ActivityType = "goal_updated"
	ActivityGoalProgress       ActivityType = "goal_progress"
	ActivityGoalCompleted      ActivityType = "goal_completed"
	ActivityGoalDeleted        ActivityType = "goal_deleted"
	ActivityProfileUpdated     ActivityType = "profile_updated"
	ActivityConnectionRequest  ActivityType = "connection_request"
	ActivityConnectionAccepted ActivityType = "connection_accepted"
)

// Activity is one entry of the activity log.
type Activity struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            uint           `gorm:"not null;index" json:"user_id"`
	User              *User          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	ActivityType      ActivityType   `gorm:"type:varchar(40);not null;index" json:"activity_type"`
	ActivityData      map[string]any `gorm:"serializer:json;type:text" json:"activity_data"`
	RelatedEntityType string         `gorm:"size:50" json:"related_entity_type,omitempty"`
	RelatedEntityID   *uint          `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`
}
