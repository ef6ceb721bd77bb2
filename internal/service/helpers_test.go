package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fittedin/internal/models"
	"fittedin/internal/repository"
	"fittedin/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordedEvent struct {
	UserID  uint
	Type    string
	Payload map[string]any
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) PublishUserEvent(_ context.Context, userID uint, eventType string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{UserID: userID, Type: eventType, Payload: payload})
}

func (r *recordingEvents) ofType(t string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type failingNotifier struct{ calls int }

func (f *failingNotifier) Notify(context.Context, *models.Notification) error {
	f.calls++
	return errors.New("notification store unavailable")
}

type serviceEnv struct {
	db            *gorm.DB
	users         repository.UserRepository
	conns         repository.ConnectionRepository
	notifications *NotificationService
	activities    *ActivityService
	events        *recordingEvents
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	db := testutil.NewDB(t)
	events := &recordingEvents{}
	conns := repository.NewConnectionRepository(db)
	return &serviceEnv{
		db:            db,
		users:         repository.NewUserRepository(db),
		conns:         conns,
		notifications: NewNotificationService(repository.NewNotificationRepository(db), events),
		activities:    NewActivityService(repository.NewActivityRepository(db), conns),
		events:        events,
	}
}

func (e *serviceEnv) connectionService(policy ConnectionPolicy) *ConnectionService {
	return NewConnectionService(e.conns, e.users, e.notifications, e.activities, e.events, policy)
}

func (e *serviceEnv) user(t *testing.T, name, email string, opts ...func(*models.User)) *models.User {
	t.Helper()
	u := &models.User{DisplayName: name, Email: email, Password: "x"}
	for _, o := range opts {
		o(u)
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func seededFlag(u *models.User) { u.IsSeeded = true }

func createdAt(ts time.Time) func(*models.User) {
	return func(u *models.User) { u.CreatedAt = ts }
}

func (e *serviceEnv) notificationCount(t *testing.T, userID uint, typ models.NotificationType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Count(&n).Error)
	return n
}

func (e *serviceEnv) connectionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Connection{}).Count(&n).Error)
	return n
}

func (e *serviceEnv) rawConnection(t *testing.T, requester, receiver uint, status models.ConnectionStatus) *models.Connection {
	t.Helper()
	c := &models.Connection{RequesterID: requester, ReceiverID: receiver, Status: status}
	require.NoError(t, e.conns.Create(context.Background(), c))
	return c
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, models.ErrorCode(err), "unexpected error: %v", err)
}
