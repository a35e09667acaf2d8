package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/hub"
)

// WSHandler upgrades observers to a websocket and streams board events.
type WSHandler struct {
	hub    *hub.Hub
	logger *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(eventHub *hub.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: eventHub, logger: logger}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve GET /ws. Each connection gets its own subscription; events are
// delivered as JSON frames until the client disconnects or the
// subscription is closed.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sub := h.hub.Subscribe()
		defer sub.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			// drain client frames so close frames are processed
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, nil)
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					h.logger.Debug("observer write failed", zap.Error(err))
					return
				}
			case <-done:
				return
			}
		}
	})
}
