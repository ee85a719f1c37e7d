package server

import (
	"context"
	"log/slog"

	"moments/internal/middleware"
	"moments/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketFeedHandler streams live feed items to the session user: their own
// activity and the activity of the users they follow.
func (s *Server) WebSocketFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		if _, ok := s.userService.GetUser(context.Background(), userID); !ok {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unknown user"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.GlobalLogger.Warn("feed websocket rejected",
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
