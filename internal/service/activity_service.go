package service

import (
	"context"
	"log/slog"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/repository"
)

// ActivityRecorder appends entries to a user's activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, a *models.Activity) error
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// ActivityService records and lists activity log entries.
type ActivityService struct {
	repo     repository.ActivityRepository
	connRepo repository.ConnectionRepository
}

// NewActivityService returns an ActivityService.
func NewActivityService(repo repository.ActivityRepository, connRepo repository.ConnectionRepository) *ActivityService {
	return &ActivityService{repo: repo, connRepo: connRepo}
}

// Record stores a.
func (s *ActivityService) Record(ctx context.Context, a *models.Activity) error {
	if a.UserID == 0 || a.ActivityType == "" {
		return models.NewValidationError("Activity user and type are required")
	}
	return s.repo.Create(ctx, a)
}

// recordActivity stores a when rec is set. Failures are logged and dropped.
func recordActivity(ctx context.Context, rec ActivityRecorder, a *models.Activity) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, a); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record activity",
			slog.String("type", string(a.ActivityType)),
			slog.Uint64("user_id", uint64(a.UserID)),
			slog.String("error", err.Error()),
		)
	}
}

// ActivityPage is one page of activity entries.
type ActivityPage struct {
	Activities []models.Activity `json:"activities"`
	Total      int64             `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ListForUser returns the user's own entries, optionally filtered by type.
func (s *ActivityService) ListForUser(ctx context.Context, userID uint, activityType models.ActivityType, limit, offset int) (*ActivityPage, error) {
	return s.list(ctx, []uint{userID}, activityType, limit, offset)
}

// Feed returns entries by the user and their accepted connections.
func (s *ActivityService) Feed(ctx context.Context, userID uint, limit, offset int) (*ActivityPage, error) {
	ids, err := s.connRepo.ConnectedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, append(ids, userID), "", limit, offset)
}

func (s *ActivityService) list(ctx context.Context, userIDs []uint, activityType models.ActivityType, limit, offset int) (*ActivityPage, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.ListForUsers(ctx, userIDs, activityType, limit, offset)
	if err != nil {
		return nil, err
	}
	return &ActivityPage{Activities: items, Total: total, Limit: limit, Offset: offset}, nil
}

func connectionActivity(userID uint, t models.ActivityType, conn *models.Connection, other *models.User) *models.Activity {
	id := conn.ID
	data := map[string]any{
		"connection_id": conn.ID,
		"other_user_id": conn.OtherParty(userID),
	}
	if other != nil {
		data["other_user_name"] = other.DisplayName
	}
	return &models.Activity{
		UserID:            userID,
		ActivityType:      t,
		ActivityData:      data,
		RelatedEntityType: "connection",
		RelatedEntityID:   &id,
	}
}
