package server

import (
	"encoding/json"
	"log/slog"
	"time"

	"fittedin/internal/middleware"
	"fittedin/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// EventConnected is the first event written to a new notification stream.
const EventConnected = "connected"

// WebSocketUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// NotificationStream serves GET /api/ws. Connection and notification events
// for the authenticated user are pushed as JSON {type, payload} frames.
func (s *Server) NotificationStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration refused",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		middleware.Logger.Debug("websocket connected", slog.Uint64("user_id", uint64(userID)))

		welcome, _ := json.Marshal(notifications.Event{
			Type: EventConnected,
			Payload: map[string]any{
				"user_id":   userID,
				"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			},
		})
		client.TrySend(welcome)

		go client.WritePump()
		client.ReadPump()
	})
}
