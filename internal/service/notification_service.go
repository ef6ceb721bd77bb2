package service

import (
	"context"
	"fmt"
	"log/slog"

	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/observability"
	"fittedin/internal/repository"
)

// Realtime event types pushed to websocket sessions.
const (
	EventNotificationCreated     = "notification_created"
	EventConnectionRequest       = "connection_request_received"
	EventConnectionAccepted      = "connection_accepted"
	EventConnectionRejected      = "connection_rejected"
	EventConnectionRemoved       = "connection_removed"
	EventNotificationsMarkedRead = "notifications_marked_read"
)

// EventPublisher pushes realtime events to a user's open sessions.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]any)
}

// Notifier records user-facing notifications.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
}

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 100
)

// NotificationService stores notifications and pushes them to live sessions.
type NotificationService struct {
	repo   repository.NotificationRepository
	events EventPublisher
}

// NewNotificationService returns a NotificationService. events may be nil.
func NewNotificationService(repo repository.NotificationRepository, events EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, events: events}
}

// Notify persists n and publishes it to the recipient.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.UserID == 0 {
		return models.NewValidationError("Notification recipient is required")
	}
	if n.Title == "" || n.Message == "" {
		return models.NewValidationError("Notification title and message are required")
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	if s.events != nil {
		s.events.PublishUserEvent(ctx, n.UserID, EventNotificationCreated, map[string]any{
			"notification": n,
		})
	}
	return nil
}

// ListNotificationsInput selects a page of a user's notifications.
type ListNotificationsInput struct {
	UserID     uint
	Limit      int
	Offset     int
	UnreadOnly bool
}

// NotificationPage is one page of notifications plus the unfiltered unread count.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

// List returns a page of notifications, newest first.
func (s *NotificationService) List(ctx context.Context, in ListNotificationsInput) (*NotificationPage, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.List(ctx, in.UserID, repository.NotificationFilter{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: in.UnreadOnly,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.UnreadCount(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{
		Notifications: items,
		Total:         total,
		UnreadCount:   unread,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

// UnreadCount returns the number of unread notifications for userID.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*models.Notification, error) {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every unread notification of userID as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.events != nil {
		s.events.PublishUserEvent(ctx, userID, EventNotificationsMarkedRead, map[string]any{"count": n})
	}
	return n, nil
}

// Delete removes one of the user's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	return s.repo.Delete(ctx, id, userID)
}

// notifyBestEffort sends n when notifier is set. Failures are counted and logged.
func notifyBestEffort(ctx context.Context, notifier Notifier, n *models.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		observability.NotificationFailures.WithLabelValues(string(n.Type)).Inc()
		middleware.Logger.WarnContext(ctx, "failed to send notification",
			slog.String("type", string(n.Type)),
			slog.Uint64("user_id", uint64(n.UserID)),
			slog.String("error", err.Error()),
		)
	}
}

func connectionRequestNotification(conn *models.Connection, requester *models.User) *models.Notification {
	from := conn.RequesterID
	id := conn.ID
	return &models.Notification{
		UserID:            conn.ReceiverID,
		Type:              models.NotificationConnectionRequest,
		Title:             fmt.Sprintf("%s wants to connect", displayName(requester)),
		Message:           fmt.Sprintf("%s sent you a connection request", displayName(requester)),
		RelatedEntityType: "connection",
		RelatedEntityID:   &id,
		FromUserID:        &from,
	}
}

func connectionAcceptedNotification(conn *models.Connection, receiver *models.User) *models.Notification {
	from := conn.ReceiverID
	id := conn.ID
	return &models.Notification{
		UserID:            conn.RequesterID,
		Type:              models.NotificationConnectionAccepted,
		Title:             fmt.Sprintf("%s accepted your connection request", displayName(receiver)),
		Message:           fmt.Sprintf("You are now connected with %s", displayName(receiver)),
		RelatedEntityType: "connection",
		RelatedEntityID:   &id,
		FromUserID:        &from,
	}
}

func displayName(u *models.User) string {
	if u == nil || u.DisplayName == "" {
		return "Someone"
	}
	return u.DisplayName
}

func postNotification(t models.NotificationType, ownerID, actorID, postID uint, actor *models.User) *models.Notification {
	from, id := actorID, postID
	title := fmt.Sprintf("%s liked your post", displayName(actor))
	if t == models.NotificationPostComment {
		title = fmt.Sprintf("%s commented on your post", displayName(actor))
	}
	return &models.Notification{
		UserID:            ownerID,
		Type:              t,
		Title:             title,
		Message:           title,
		RelatedEntityType: "post",
		RelatedEntityID:   &id,
		FromUserID:        &from,
	}
}

func goalCompletedNotification(goal *models.Goal) *models.Notification {
	id := goal.ID
	return &models.Notification{
		UserID:            goal.UserID,
		Type:              models.NotificationGoalCompleted,
		Title:             "Goal completed",
		Message:           fmt.Sprintf("You completed %q. Nice work!", goal.Title),
		RelatedEntityType: "goal",
		RelatedEntityID:   &id,
	}
}
