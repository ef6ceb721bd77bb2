package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"fittedin/internal/config"
	"fittedin/internal/middleware"
	"fittedin/internal/models"
	"fittedin/internal/observability"
	"fittedin/internal/repository"
	"fittedin/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ConnectionPolicy holds the connection rules fixed at startup.
type ConnectionPolicy struct {
	// SeededDomains are lower-case e-mail domains whose accounts auto-accept.
	SeededDomains     []string
	AutoAcceptEnabled bool
	// RecentSignupHeuristic treats any account younger than
	// RecentSignupWindow with a valid e-mail as seeded.
	RecentSignupHeuristic bool
	RecentSignupWindow    time.Duration
	// AllowRetryAfterReject lets a new request replace a rejected row.
	// When false a rejected pair stays closed.
	AllowRetryAfterReject bool
	// NotificationTimeout bounds each best-effort notification write.
	NotificationTimeout time.Duration
}

// DefaultConnectionPolicy returns the policy used when nothing is configured.
func DefaultConnectionPolicy() ConnectionPolicy {
	return ConnectionPolicy{
		SeededDomains:       append([]string(nil), config.DefaultSeededEmailDomains...),
		AutoAcceptEnabled:   true,
		RecentSignupWindow:  24 * time.Hour,
		NotificationTimeout: 2 * time.Second,
	}
}

// NewConnectionPolicy builds the policy from cfg.
func NewConnectionPolicy(cfg *config.Config) ConnectionPolicy {
	return ConnectionPolicy{
		SeededDomains:         cfg.SeededDomains(),
		AutoAcceptEnabled:     cfg.AutoAcceptEnabled,
		RecentSignupHeuristic: cfg.SeededSignupHeuristic,
		RecentSignupWindow:    time.Duration(cfg.SeededSignupWindowHours) * time.Hour,
		AllowRetryAfterReject: cfg.AllowRetryAfterReject,
		NotificationTimeout:   time.Duration(cfg.NotificationTimeoutMilli) * time.Millisecond,
	}
}

// Decision is the receiver's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// ConnectionService implements the connection request lifecycle.
type ConnectionService struct {
	connRepo   repository.ConnectionRepository
	userRepo   repository.UserRepository
	notifier   Notifier
	activities ActivityRecorder
	events     EventPublisher
	policy     ConnectionPolicy
	now        func() time.Time
}

// NewConnectionService returns a ConnectionService. notifier, activities and
// events are optional. The policy is copied and never changes afterwards.
func NewConnectionService(
	connRepo repository.ConnectionRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	activities ActivityRecorder,
	events EventPublisher,
	policy ConnectionPolicy,
) *ConnectionService {
	domains := make([]string, 0, len(policy.SeededDomains))
	for _, d := range policy.SeededDomains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			domains = append(domains, d)
		}
	}
	policy.SeededDomains = domains

	return &ConnectionService{
		connRepo:   connRepo,
		userRepo:   userRepo,
		notifier:   notifier,
		activities: activities,
		events:     events,
		policy:     policy,
		now:        time.Now,
	}
}

// Policy returns a copy of the active policy.
func (s *ConnectionService) Policy() ConnectionPolicy {
	p := s.policy
	p.SeededDomains = append([]string(nil), s.policy.SeededDomains...)
	return p
}

// SendConnectionRequest creates a request from requesterID to receiverID.
// When the receiver is a seeded account the returned row is already accepted.
func (s *ConnectionService) SendConnectionRequest(ctx context.Context, requesterID, receiverID uint) (conn *models.Connection, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService", "SendConnectionRequest",
		attribute.Int64("requester_id", int64(requesterID)),
		attribute.Int64("receiver_id", int64(receiverID)),
	)
	defer func() {
		observability.EndSpan(span, err)
		observability.ConnectionRequests.WithLabelValues(requestOutcome(conn, err)).Inc()
	}()

	if requesterID == receiverID {
		return nil, models.NewInvalidOperationError("Cannot send connection request to yourself")
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, err
	}

	existing, err := s.connRepo.FindBetween(ctx, requesterID, receiverID)
	if err != nil {
		return nil, err
	}

	conn = &models.Connection{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.ConnectionStatusPending,
	}

	if existing == nil {
		if err = s.connRepo.Create(ctx, conn); err != nil {
			return nil, err
		}
	} else {
		switch existing.Status {
		case models.ConnectionStatusAccepted:
			return nil, models.NewConflictError("Already connected")
		case models.ConnectionStatusPending:
			return nil, models.NewConflictError("Connection request already pending")
		case models.ConnectionStatusBlocked:
			return nil, models.NewForbiddenError("Connection is blocked")
		case models.ConnectionStatusRejected:
			if !s.policy.AllowRetryAfterReject {
				return nil, models.NewConflictError("Connection request was declined")
			}
			if err = s.connRepo.ReplaceRejected(ctx, existing.ID, conn); err != nil {
				return nil, err
			}
		default:
			return nil, models.NewConflictError("A connection between these users already exists")
		}
	}

	middleware.Logger.InfoContext(ctx, "connection request created",
		slog.Uint64("connection_id", uint64(conn.ID)),
		slog.Uint64("requester_id", uint64(requesterID)),
		slog.Uint64("receiver_id", uint64(receiverID)),
	)

	accepted, aerr := s.autoAcceptIfSeeded(ctx, conn.ID, receiverID, "request")
	if aerr != nil {
		middleware.Logger.WarnContext(ctx, "auto-accept check failed",
			slog.Uint64("connection_id", uint64(conn.ID)),
			slog.String("error", aerr.Error()),
		)
	}

	requester, rerr := s.userRepo.GetByID(ctx, requesterID)
	if rerr != nil {
		requester = nil
	}

	if !accepted {
		s.notify(ctx, connectionRequestNotification(conn, requester))
		s.publish(ctx, receiverID, EventConnectionRequest, map[string]any{
			"connection_id": conn.ID,
			"from_user":     publicOrNil(requester),
		})
	}
	s.record(ctx, connectionActivity(requesterID, models.ActivityConnectionRequest, conn, receiver))

	if fresh, ferr := s.connRepo.GetByID(ctx, conn.ID); ferr == nil {
		return fresh, nil
	}
	if accepted {
		conn.Status = models.ConnectionStatusAccepted
	}
	conn.Requester, conn.Receiver = requester, receiver
	return conn, nil
}

// ResolveConnectionRequest applies the receiver's decision to a pending request.
// Anything other than a pending row addressed to actingUserID is reported as
// not found.
func (s *ConnectionService) ResolveConnectionRequest(ctx context.Context, actingUserID, connectionID uint, decision Decision) (conn *models.Connection, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService", "ResolveConnectionRequest",
		attribute.Int64("user_id", int64(actingUserID)),
		attribute.Int64("connection_id", int64(connectionID)),
		attribute.String("decision", string(decision)),
	)
	defer func() { observability.EndSpan(span, err) }()

	var target models.ConnectionStatus
	switch decision {
	case DecisionAccept:
		target = models.ConnectionStatusAccepted
	case DecisionReject:
		target = models.ConnectionStatusRejected
	default:
		return nil, models.NewValidationError("Decision must be accept or reject")
	}

	notFound := models.NewNotFoundMessage("Connection request not found")

	conn, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	if conn.ReceiverID != actingUserID || conn.Status != models.ConnectionStatusPending {
		return nil, notFound
	}

	changed, err := s.connRepo.TransitionStatus(ctx, conn.ID, models.ConnectionStatusPending, target)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, notFound
	}
	conn.Status = target
	observability.ConnectionResolutions.WithLabelValues(string(decision)).Inc()

	middleware.Logger.InfoContext(ctx, "connection request resolved",
		slog.Uint64("connection_id", uint64(conn.ID)),
		slog.String("status", string(target)),
	)

	if target == models.ConnectionStatusAccepted {
		s.afterAccept(ctx, conn)
	}
	return conn, nil
}

// IsSeededAccount reports whether userID auto-accepts incoming requests.
// A missing user is not seeded.
func (s *ConnectionService) IsSeededAccount(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return s.isSeededUser(user), nil
}

func (s *ConnectionService) isSeededUser(u *models.User) bool {
	if u.IsSeeded {
		return true
	}
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, d := range s.policy.SeededDomains {
		if strings.HasSuffix(email, "@"+d) {
			return true
		}
	}
	if s.policy.RecentSignupHeuristic && s.policy.RecentSignupWindow > 0 {
		age := s.now().Sub(u.CreatedAt)
		if age >= 0 && age <= s.policy.RecentSignupWindow && validation.IsEmail(u.Email) {
			return true
		}
	}
	return false
}

// AutoAcceptIfSeeded accepts connectionID on behalf of receiverID when the
// receiver is seeded and the row is still pending. It reports whether this
// call performed the transition, so repeated calls return false.
func (s *ConnectionService) AutoAcceptIfSeeded(ctx context.Context, connectionID, receiverID uint) (bool, error) {
	return s.autoAcceptIfSeeded(ctx, connectionID, receiverID, "manual")
}

func (s *ConnectionService) autoAcceptIfSeeded(ctx context.Context, connectionID, receiverID uint, trigger string) (bool, error) {
	if !s.policy.AutoAcceptEnabled {
		return false, nil
	}
	seeded, err := s.IsSeededAccount(ctx, receiverID)
	if err != nil || !seeded {
		return false, err
	}

	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	if conn.ReceiverID != receiverID || conn.Status != models.ConnectionStatusPending {
		return false, nil
	}

	changed, err := s.connRepo.TransitionStatus(ctx, connectionID, models.ConnectionStatusPending, models.ConnectionStatusAccepted)
	if err != nil || !changed {
		return false, err
	}
	conn.Status = models.ConnectionStatusAccepted
	observability.AutoAccepts.WithLabelValues(trigger).Inc()

	middleware.Logger.InfoContext(ctx, "auto-accepted connection request for seeded account",
		slog.Uint64("connection_id", uint64(connectionID)),
		slog.Uint64("receiver_id", uint64(receiverID)),
		slog.Uint64("requester_id", uint64(conn.RequesterID)),
	)

	s.afterAccept(ctx, conn)
	return true, nil
}

// SweepResult reports a ProcessPendingForSeededAccounts run.
type SweepResult struct {
	TotalPending int `json:"totalPending"`
	AutoAccepted int `json:"autoAccepted"`
}

// ProcessPendingForSeededAccounts applies the auto-accept check to every
// pending row. Rows already resolved are skipped, so it is safe to re-run.
func (s *ConnectionService) ProcessPendingForSeededAccounts(ctx context.Context) (res *SweepResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService", "ProcessPendingForSeededAccounts")
	defer func() { observability.EndSpan(span, err) }()

	pending, err := s.connRepo.ListByStatus(ctx, models.ConnectionStatusPending)
	if err != nil {
		return nil, err
	}

	res = &SweepResult{TotalPending: len(pending)}
	seeded := make(map[uint]bool)
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		isSeeded, known := seeded[c.ReceiverID]
		if !known {
			isSeeded, err = s.IsSeededAccount(ctx, c.ReceiverID)
			if err != nil {
				middleware.Logger.WarnContext(ctx, "seeded check failed during sweep",
					slog.Uint64("user_id", uint64(c.ReceiverID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			seeded[c.ReceiverID] = isSeeded
		}
		if !isSeeded {
			continue
		}
		accepted, aerr := s.autoAcceptIfSeeded(ctx, c.ID, c.ReceiverID, "sweep")
		if aerr != nil {
			middleware.Logger.WarnContext(ctx, "auto-accept failed during sweep",
				slog.Uint64("connection_id", uint64(c.ID)),
				slog.String("error", aerr.Error()),
			)
			continue
		}
		if accepted {
			res.AutoAccepted++
		}
	}

	middleware.Logger.InfoContext(ctx, "auto-accept sweep completed",
		slog.Int("total_pending", res.TotalPending),
		slog.Int("auto_accepted", res.AutoAccepted),
	)
	return res, nil
}

// ConnectionUser is the counterpart shown in connection listings.
type ConnectionUser struct {
	models.PublicUser
	Profile *models.ProfileSummary `json:"profile"`
}

// ConnectionView is a connection as seen by one of its parties.
type ConnectionView struct {
	ID          uint                    `json:"id"`
	Status      models.ConnectionStatus `json:"status"`
	IsRequester bool                    `json:"is_requester"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
	User        *ConnectionUser         `json:"user"`
}

func newConnectionView(conn *models.Connection, viewerID uint) ConnectionView {
	v := ConnectionView{
		ID:          conn.ID,
		Status:      conn.Status,
		IsRequester: conn.RequesterID == viewerID,
		CreatedAt:   conn.CreatedAt,
		UpdatedAt:   conn.UpdatedAt,
	}
	other := conn.Receiver
	if !v.IsRequester {
		other = conn.Requester
	}
	if other != nil {
		v.User = &ConnectionUser{PublicUser: other.Public(), Profile: other.Profile.Summary()}
	}
	return v
}

func viewsFor(conns []models.Connection, viewerID uint) []ConnectionView {
	out := make([]ConnectionView, 0, len(conns))
	for i := range conns {
		out = append(out, newConnectionView(&conns[i], viewerID))
	}
	return out
}

// ListConnections returns the user's connections with the given status,
// accepted when status is empty.
func (s *ConnectionService) ListConnections(ctx context.Context, userID uint, status string) ([]ConnectionView, error) {
	st := models.ConnectionStatus(strings.ToLower(strings.TrimSpace(status)))
	if st == "" {
		st = models.ConnectionStatusAccepted
	}
	if !st.Valid() {
		return nil, models.NewValidationError("Invalid connection status")
	}
	conns, err := s.connRepo.ListForUser(ctx, userID, st)
	if err != nil {
		return nil, err
	}
	return viewsFor(conns, userID), nil
}

// PendingRequests splits a user's pending rows by direction.
type PendingRequests struct {
	Sent     []ConnectionView `json:"sent"`
	Received []ConnectionView `json:"received"`
}

// ListPendingRequests returns pending requests sent and received by userID.
func (s *ConnectionService) ListPendingRequests(ctx context.Context, userID uint) (*PendingRequests, error) {
	sent, err := s.connRepo.ListSent(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.connRepo.ListReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PendingRequests{
		Sent:     viewsFor(sent, userID),
		Received: viewsFor(received, userID),
	}, nil
}

// StatusNone is reported when two users share no connection row.
const StatusNone = "none"

// ConnectionStatusResult describes the relationship between two users from
// the caller's side.
type ConnectionStatusResult struct {
	Status       string `json:"status"`
	IsRequester  *bool  `json:"isRequester,omitempty"`
	ConnectionID *uint  `json:"connectionId,omitempty"`
}

func statusResult(conn *models.Connection, userID uint) ConnectionStatusResult {
	if conn == nil {
		return ConnectionStatusResult{Status: StatusNone}
	}
	isRequester := conn.RequesterID == userID
	id := conn.ID
	return ConnectionStatusResult{
		Status:       string(conn.Status),
		IsRequester:  &isRequester,
		ConnectionID: &id,
	}
}

// GetConnectionStatus returns the status of the row between userID and otherUserID.
func (s *ConnectionService) GetConnectionStatus(ctx context.Context, userID, otherUserID uint) (*ConnectionStatusResult, error) {
	conn, err := s.connRepo.FindBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	res := statusResult(conn, userID)
	return &res, nil
}

// Pagination describes one page of a larger result.
type Pagination struct {
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalPages int   `json:"totalPages"`
}

// DiscoverableUser is a search hit with its relationship to the caller.
type DiscoverableUser struct {
	ConnectionUser
	ConnectionStatus ConnectionStatusResult `json:"connectionStatus"`
}

// UserSearchResult is one page of discoverable users.
type UserSearchResult struct {
	Users      []DiscoverableUser `json:"users"`
	Pagination Pagination         `json:"pagination"`
}

// SearchConnectableUsers lists users the caller has no connection row with,
// matching term against display name or e-mail.
func (s *ConnectionService) SearchConnectableUsers(ctx context.Context, userID uint, term string, limit, offset int) (*UserSearchResult, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	users, total, err := s.userRepo.SearchConnectable(ctx, userID, strings.TrimSpace(term), limit, offset)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	rows, err := s.connRepo.ForUserAmong(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]DiscoverableUser, 0, len(users))
	for i := range users {
		u := &users[i]
		var conn *models.Connection
		if c, ok := rows[u.ID]; ok {
			conn = &c
		}
		out = append(out, DiscoverableUser{
			ConnectionUser:   ConnectionUser{PublicUser: u.Public(), Profile: u.Profile.Summary()},
			ConnectionStatus: statusResult(conn, userID),
		})
	}

	return &UserSearchResult{
		Users: out,
		Pagination: Pagination{
			Total:      total,
			Limit:      limit,
			Offset:     offset,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// RemoveConnection deletes an accepted connection. Either party may remove it.
func (s *ConnectionService) RemoveConnection(ctx context.Context, userID, connectionID uint) error {
	notFound := models.NewNotFoundMessage("Connection not found")

	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return notFound
		}
		return err
	}
	if !conn.Involves(userID) || conn.Status != models.ConnectionStatusAccepted {
		return notFound
	}

	removed, err := s.connRepo.DeleteWithStatus(ctx, connectionID, userID, models.ConnectionStatusAccepted)
	if err != nil {
		return err
	}
	if !removed {
		return notFound
	}

	middleware.Logger.InfoContext(ctx, "connection removed", slog.Uint64("connection_id", uint64(connectionID)))
	s.publish(ctx, conn.OtherParty(userID), EventConnectionRemoved, map[string]any{
		"connection_id": connectionID,
		"user_id":       userID,
	})
	return nil
}

// BlockUser stops otherUserID from sending requests to userID. Any existing
// row between them becomes a blocked row owned by userID.
func (s *ConnectionService) BlockUser(ctx context.Context, userID, otherUserID uint) (*models.Connection, error) {
	if userID == otherUserID {
		return nil, models.NewInvalidOperationError("Cannot block yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, otherUserID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundMessage("User not found")
		}
		return nil, err
	}
	conn, err := s.connRepo.Block(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user blocked",
		slog.Uint64("blocker_id", uint64(userID)),
		slog.Uint64("blocked_id", uint64(otherUserID)),
	)
	return conn, nil
}

// UnblockUser removes a block userID placed on otherUserID.
func (s *ConnectionService) UnblockUser(ctx context.Context, userID, otherUserID uint) error {
	removed, err := s.connRepo.DeleteBlock(ctx, userID, otherUserID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundMessage("Block not found")
	}
	return nil
}

// afterAccept runs the best-effort side effects of an accepted request.
// conn must have Requester and Receiver loaded when available.
func (s *ConnectionService) afterAccept(ctx context.Context, conn *models.Connection) {
	s.notify(ctx, connectionAcceptedNotification(conn, conn.Receiver))
	s.record(ctx, connectionActivity(conn.RequesterID, models.ActivityConnectionAccepted, conn, conn.Receiver))
	s.record(ctx, connectionActivity(conn.ReceiverID, models.ActivityConnectionAccepted, conn, conn.Requester))
	s.publish(ctx, conn.RequesterID, EventConnectionAccepted, map[string]any{
		"connection_id": conn.ID,
		"user":          publicOrNil(conn.Receiver),
	})
	s.publish(ctx, conn.ReceiverID, EventConnectionAccepted, map[string]any{
		"connection_id": conn.ID,
		"user":          publicOrNil(conn.Requester),
	})
}

func (s *ConnectionService) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.policy.NotificationTimeout > 0 {
		return context.WithTimeout(detached, s.policy.NotificationTimeout)
	}
	return detached, func() {}
}

func (s *ConnectionService) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	notifyBestEffort(nctx, s.notifier, n)
}

func (s *ConnectionService) record(ctx context.Context, a *models.Activity) {
	if s.activities == nil {
		return
	}
	actx, cancel := s.sideEffectContext(ctx)
	defer cancel()
	recordActivity(actx, s.activities, a)
}

func (s *ConnectionService) publish(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	s.events.PublishUserEvent(context.WithoutCancel(ctx), userID, eventType, payload)
}

func publicOrNil(u *models.User) *models.PublicUser {
	if u == nil {
		return nil
	}
	p := u.Public()
	return &p
}

func requestOutcome(conn *models.Connection, err error) string {
	if err == nil {
		if conn != nil && conn.Status == models.ConnectionStatusAccepted {
			return "auto_accepted"
		}
		return "pending"
	}
	switch models.ErrorCode(err) {
	case models.CodeConflict:
		return "conflict"
	case models.CodeForbidden:
		return "forbidden"
	case models.CodeInvalidOperation:
		return "invalid"
	case models.CodeNotFound:
		return "not_found"
	default:
		return "error"
	}
}
