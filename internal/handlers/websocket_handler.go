package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/noteduco342/om-realtime/internal/handlers/ws"
	"github.com/noteduco342/om-realtime/internal/httpx"
)

// PresenceLookup reports users online on any node.
type PresenceLookup interface {
	IsUserOnline(ctx context.Context, userID uint) bool
}

type WebSocketHandler struct {
	gateway *ws.Gateway
	// base is cancelled when the server shuts down
	base context.Context
	// presence may be nil on a single node
	presence PresenceLookup
}

func NewWebSocketHandler(base context.Context, gateway *ws.Gateway, presence PresenceLookup) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway, base: base, presence: presence}
}

// Upgrade rejects plain HTTP requests to the websocket route.
func (h *WebSocketHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle serves /ws/chat. Authentication happens in the init frame.
func (h *WebSocketHandler) Handle() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		h.gateway.Serve(h.base, ws.NewFiberTransport(c))
	})
}

// Sessions reports live sessions for operators. With ?user_id it reports
// whether that user is connected here or anywhere in the cluster.
// GET /api/admin/sessions
func (h *WebSocketHandler) Sessions(c *fiber.Ctx) error {
	hub := h.gateway.Hub()
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return httpx.BadRequest(c, "invalid_user_id", "user_id must be a positive integer")
		}
		userID := uint(id)
		local := hub.IsOnline(userID)
		online := local
		if !online && h.presence != nil {
			online = h.presence.IsUserOnline(c.UserContext(), userID)
		}
		return c.JSON(fiber.Map{
			"user_id": userID,
			"local":   local,
			"online":  online,
		})
	}
	return c.JSON(fiber.Map{
		"count":        hub.Count(),
		"online_users": hub.OnlineUsers(),
	})
}
