package service

import (
	"context"
	"math"
	"strings"
	"time"

	"fittedin/internal/models"
	"fittedin/internal/repository"
	"fittedin/internal/validation"
)

// GoalService manages a member's fitness goals.
type GoalService struct {
	goalRepo   repository.GoalRepository
	notifier   Notifier
	activities ActivityRecorder
	now        func() time.Time
}

// NewGoalService returns a GoalService. notifier and activities may be nil.
func NewGoalService(goalRepo repository.GoalRepository, notifier Notifier, activities ActivityRecorder) *GoalService {
	return &GoalService{goalRepo: goalRepo, notifier: notifier, activities: activities, now: time.Now}
}

type CreateGoalInput struct {
	UserID      uint       `json:"-"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=1000"`
	Category    string     `json:"category" validate:"required"`
	TargetValue *float64   `json:"target_value" validate:"omitempty,gte=0"`
	Unit        string     `json:"unit" validate:"max=50"`
	TargetDate  *time.Time `json:"target_date"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	IsPublic    *bool      `json:"is_public"`
	Notes       string     `json:"notes" validate:"max=1000"`
}

// UpdateGoalInput carries a partial update. Nil fields keep their value.
type UpdateGoalInput struct {
	UserID       uint       `json:"-"`
	GoalID       uint       `json:"-"`
	Title        *string    `json:"title" validate:"omitempty,max=200"`
	Description  *string    `json:"description" validate:"omitempty,max=1000"`
	Category     *string    `json:"category"`
	TargetValue  *float64   `json:"target_value" validate:"omitempty,gte=0"`
	CurrentValue *float64   `json:"current_value" validate:"omitempty,gte=0"`
	Unit         *string    `json:"unit" validate:"omitempty,max=50"`
	TargetDate   *time.Time `json:"target_date"`
	Status       *string    `json:"status" validate:"omitempty,oneof=active completed paused cancelled"`
	Priority     *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	IsPublic     *bool      `json:"is_public"`
	Notes        *string    `json:"notes" validate:"omitempty,max=1000"`
}

// GoalSummary counts a member's goals by status.
type GoalSummary struct {
	Total           int     `json:"total"`
	Active          int     `json:"active"`
	Completed       int     `json:"completed"`
	Paused          int     `json:"paused"`
	Cancelled       int     `json:"cancelled"`
	Overdue         int     `json:"overdue"`
	AverageProgress float64 `json:"average_progress"`
}

// Create stores a new active goal for in.UserID.
func (s *GoalService) Create(ctx context.Context, in CreateGoalInput) (*models.Goal, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Unit = strings.TrimSpace(in.Unit)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	category := models.GoalCategory(in.Category)
	if !category.Valid() {
		return nil, models.NewValidationError("Invalid goal category")
	}
	priority := models.GoalPriorityMedium
	if in.Priority != "" {
		priority = models.GoalPriority(in.Priority)
	}
	public := true
	if in.IsPublic != nil {
		public = *in.IsPublic
	}

	goal := &models.Goal{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		TargetValue: in.TargetValue,
		Unit:        in.Unit,
		StartDate:   s.now(),
		TargetDate:  in.TargetDate,
		Status:      models.GoalStatusActive,
		Priority:    priority,
		IsPublic:    public,
		Notes:       strings.TrimSpace(in.Notes),
	}
	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}
	goal.Derive(s.now())

	data := map[string]any{
		"goal_title":    goal.Title,
		"goal_category": string(goal.Category),
		"unit":          goal.Unit,
	}
	if goal.TargetValue != nil {
		data["target_value"] = *goal.TargetValue
	}
	recordActivity(ctx, s.activities, goalActivity(goal, models.ActivityGoalCreated, data))
	return goal, nil
}

// Get returns one of userID's goals.
func (s *GoalService) Get(ctx context.Context, userID, goalID uint) (*models.Goal, error) {
	return s.goalRepo.GetForUser(ctx, goalID, userID)
}

// List returns userID's goals, newest first. Empty filter values match all.
func (s *GoalService) List(ctx context.Context, userID uint, status, category string) ([]models.Goal, error) {
	f := repository.GoalFilter{}
	if status != "" {
		st := models.GoalStatus(status)
		if !st.Valid() {
			return nil, models.NewValidationError("Invalid goal status")
		}
		f.Status = st
	}
	if category != "" {
		c := models.GoalCategory(category)
		if !c.Valid() {
			return nil, models.NewValidationError("Invalid goal category")
		}
		f.Category = c
	}
	goals, err := s.goalRepo.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	return goals, nil
}

// Summary aggregates userID's goals.
func (s *GoalService) Summary(ctx context.Context, userID uint) (*GoalSummary, error) {
	goals, err := s.goalRepo.List(ctx, userID, repository.GoalFilter{})
	if err != nil {
		return nil, err
	}
	sum := &GoalSummary{Total: len(goals)}
	var progress float64
	for i := range goals {
		g := &goals[i]
		switch g.Status {
		case models.GoalStatusActive:
			sum.Active++
		case models.GoalStatusCompleted:
			sum.Completed++
		case models.GoalStatusPaused:
			sum.Paused++
		case models.GoalStatusCancelled:
			sum.Cancelled++
		}
		if g.Overdue(s.now()) {
			sum.Overdue++
		}
		progress += g.Progress()
	}
	if len(goals) > 0 {
		sum.AverageProgress = math.Round(progress/float64(len(goals))*100) / 100
	}
	return sum, nil
}

// Update applies in to the goal. A changed current value records a progress
// entry; moving to completed records a completion and notifies the owner.
func (s *GoalService) Update(ctx context.Context, in UpdateGoalInput) (*models.Goal, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	goal, err := s.goalRepo.GetForUser(ctx, in.GoalID, in.UserID)
	if err != nil {
		return nil, err
	}
	prevValue := goal.CurrentValue
	prevStatus := goal.Status

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, models.NewValidationError("title is required")
		}
		goal.Title = t
	}
	if in.Description != nil {
		goal.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		c := models.GoalCategory(*in.Category)
		if !c.Valid() {
			return nil, models.NewValidationError("Invalid goal category")
		}
		goal.Category = c
	}
	if in.TargetValue != nil {
		goal.TargetValue = in.TargetValue
	}
	if in.CurrentValue != nil {
		goal.CurrentValue = *in.CurrentValue
	}
	if in.Unit != nil {
		goal.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.TargetDate != nil {
		goal.TargetDate = in.TargetDate
	}
	if in.Status != nil {
		goal.Status = models.GoalStatus(*in.Status)
	}
	if in.Priority != nil {
		goal.Priority = models.GoalPriority(*in.Priority)
	}
	if in.IsPublic != nil {
		goal.IsPublic = *in.IsPublic
	}
	if in.Notes != nil {
		goal.Notes = strings.TrimSpace(*in.Notes)
	}

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}
	goal.Derive(s.now())

	switch {
	case goal.Status == models.GoalStatusCompleted && prevStatus != models.GoalStatusCompleted:
		recordActivity(ctx, s.activities, goalActivity(goal, models.ActivityGoalCompleted, map[string]any{
			"goal_title":    goal.Title,
			"goal_category": string(goal.Category),
			"final_value":   goal.CurrentValue,
			"unit":          goal.Unit,
		}))
		notifyBestEffort(ctx, s.notifier, goalCompletedNotification(goal))
	case goal.CurrentValue != prevValue:
		data := map[string]any{
			"goal_title":       goal.Title,
			"previous_value":   prevValue,
			"current_value":    goal.CurrentValue,
			"progress_percent": goal.Progress(),
			"unit":             goal.Unit,
		}
		if goal.TargetValue != nil {
			data["target_value"] = *goal.TargetValue
		}
		recordActivity(ctx, s.activities, goalActivity(goal, models.ActivityGoalProgress, data))
	default:
		recordActivity(ctx, s.activities, goalActivity(goal, models.ActivityGoalUpdated, map[string]any{
			"goal_title": goal.Title,
		}))
	}
	return goal, nil
}

// Delete removes one of userID's goals.
func (s *GoalService) Delete(ctx context.Context, userID, goalID uint) error {
	goal, err := s.goalRepo.GetForUser(ctx, goalID, userID)
	if err != nil {
		return err
	}
	if err := s.goalRepo.Delete(ctx, goalID, userID); err != nil {
		return err
	}
	recordActivity(ctx, s.activities, goalActivity(goal, models.ActivityGoalDeleted, map[string]any{
		"goal_title":    goal.Title,
		"goal_category": string(goal.Category),
	}))
	return nil
}

func goalActivity(goal *models.Goal, t models.ActivityType, data map[string]any) *models.Activity {
	id := goal.ID
	return &models.Activity{
		UserID:            goal.UserID,
		ActivityType:      t,
		ActivityData:      data,
		RelatedEntityType: "goal",
		RelatedEntityID:   &id,
	}
}
