package models

import (
	"time"
)

// FitnessLevel is the self-reported training experience of a member.
type FitnessLevel string

const (
	FitnessLevelBeginner     FitnessLevel = "beginner"
	FitnessLevelIntermediate FitnessLevel = "intermediate"
	FitnessLevelAdvanced     FitnessLevel = "advanced"
)

// Valid reports whether l is a known fitness level. The empty value is allowed.
func (l FitnessLevel) Valid() bool {
	switch l {
	case "", FitnessLevelBeginner, FitnessLevelIntermediate, FitnessLevelAdvanced:
		return true
	}
	return false
}

// Profile holds the optional descriptive fields of a user. One per user.
type Profile struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"uniqueIndex;not null" json:"user_id"`
	Pronouns     string       `gorm:"size:50" json:"pronouns"`
	Bio          string       `gorm:"type:text" json:"bio"`
	Location     string       `gorm:"size:255" json:"location"`
	FitnessLevel FitnessLevel `gorm:"type:varchar(20)" json:"fitness_level"`
	PrimaryGoals string       `gorm:"type:text" json:"primary_goals"`
	Skills       string       `gorm:"type:text" json:"skills"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ProfileSummary is the slice of a profile attached to connection listings.
type ProfileSummary struct {
	Bio          string       `json:"bio,omitempty"`
	Location     string       `json:"location,omitempty"`
	FitnessLevel FitnessLevel `json:"fitness_level,omitempty"`
	PrimaryGoals string       `json:"primary_goals,omitempty"`
}

// Summary returns the listing view of p, or nil for a nil profile.
func (p *Profile) Summary() *ProfileSummary {
	if p == nil {
		return nil
	}
	return &ProfileSummary{
		Bio:          p.Bio,
		Location:     p.Location,
		FitnessLevel: p.FitnessLevel,
		PrimaryGoals: p.PrimaryGoals,
	}
}
