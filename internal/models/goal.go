package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

// GoalCategory groups goals for filtering.
type GoalCategory string

const (
	GoalCategoryWeightLoss   GoalCategory = "weight_loss"
	GoalCategoryWeightGain   GoalCategory = "weight_gain"
	GoalCategoryMuscleGain   GoalCategory = "muscle_gain"
	GoalCategoryCardio       GoalCategory = "cardio"
	GoalCategoryFlexibility  GoalCategory = "flexibility"
	GoalCategoryNutrition    GoalCategory = "nutrition"
	GoalCategoryMentalHealth GoalCategory = "mental_health"
	GoalCategorySleep        GoalCategory = "sleep"
	GoalCategoryHydration    GoalCategory = "hydration"
	GoalCategoryOther        GoalCategory = "other"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// GoalPriority orders goals within a user's list.
type GoalPriority string

const (
	GoalPriorityLow    GoalPriority = "low"
	GoalPriorityMedium GoalPriority = "medium"
	GoalPriorityHigh   GoalPriority = "high"
)

// Valid reports whether c is a known category.
func (c GoalCategory) Valid() bool {
	switch c {
	case GoalCategoryWeightLoss, GoalCategoryWeightGain, GoalCategoryMuscleGain, GoalCategoryCardio,
		GoalCategoryFlexibility, GoalCategoryNutrition, GoalCategoryMentalHealth, GoalCategorySleep,
		GoalCategoryHydration, GoalCategoryOther:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalStatusActive, GoalStatusCompleted, GoalStatusPaused, GoalStatusCancelled:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p GoalPriority) Valid() bool {
	switch p {
	case GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh:
		return true
	}
	return false
}

// Goal is a measurable target owned by a user.
type Goal struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index" json:"user_id"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Category     GoalCategory `gorm:"type:varchar(30);not null;index" json:"category"`
	TargetValue  *float64     `json:"target_value,omitempty"`
	CurrentValue float64      `gorm:"not null;default:0" json:"current_value"`
	Unit         string       `gorm:"size:50" json:"unit"`
	StartDate    time.Time    `json:"start_date"`
	TargetDate   *time.Time   `json:"target_date,omitempty"`
	Status       GoalStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Priority     GoalPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	IsPublic     bool         `gorm:"not null;default:true" json:"is_public"`
	Notes        string       `gorm:"type:text" json:"notes"`

	// ProgressPercentage and IsOverdue are not persisted; filled by AfterFind.
	ProgressPercentage float64 `gorm:"-" json:"progress_percentage"`
	IsOverdue          bool    `gorm:"-" json:"is_overdue"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress returns the completion percentage rounded to two decimals, capped at 100.
func (g *Goal) Progress() float64 {
	if g.TargetValue == nil || *g.TargetValue == 0 {
		return 0
	}
	p := math.Min(100, g.CurrentValue / *g.TargetValue * 100)
	return math.Round(p*100) / 100
}

// Overdue reports whether an active goal is past its target date at now.
func (g *Goal) Overdue(now time.Time) bool {
	return g.TargetDate != nil && g.Status == GoalStatusActive && now.After(*g.TargetDate)
}

// Derive fills the computed fields.
func (g *Goal) Derive(now time.Time) {
	g.ProgressPercentage = g.Progress()
	g.IsOverdue = g.Overdue(now)
}

// AfterFind derives the computed fields after loading.
func (g *Goal) AfterFind(_ *gorm.DB) error {
	g.Derive(time.Now())
	return nil
}
