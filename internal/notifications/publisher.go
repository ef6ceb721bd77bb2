package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"fittedin/internal/middleware"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Publisher delivers user events. With Redis every instance receives the event
// through its subscriber; without it the event goes straight to the local hub.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

// NewPublisher returns a Publisher. Either argument may be nil.
func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// PublishUserEvent sends {type, payload} to every session of userID.
func (p *Publisher) PublishUserEvent(ctx context.Context, userID uint, eventType string, payload map[string]any) {
	eventJSON, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to marshal event",
			slog.String("type", eventType), slog.String("error", err.Error()))
		return
	}
	message := string(eventJSON)

	if p.notifier.Enabled() {
		err := p.notifier.PublishUser(ctx, userID, message)
		if err == nil {
			return
		}
		middleware.Logger.WarnContext(ctx, "failed to publish event, delivering locally",
			slog.String("type", eventType),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
	if p.hub != nil {
		p.hub.Broadcast(userID, message)
	}
}
