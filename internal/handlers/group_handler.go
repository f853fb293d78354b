package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/rs/zerolog"
)

type ChatLister interface {
	MyChats(ctx context.Context, userID uint) (*models.MyChatsPublic, error)
}

type GroupHandler struct {
	chats ChatLister
	log   zerolog.Logger
}

func NewGroupHandler(chats ChatLister, log zerolog.Logger) *GroupHandler {
	return &GroupHandler{chats: chats, log: log}
}

// GetMyChats lists the caller's group and direct chats
// GET /api/groups/my
func (h *GroupHandler) GetMyChats(c *fiber.Ctx) error {
	user, err := httpx.CurrentUser(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Not authenticated")
	}

	chats, err := h.chats.MyChats(c.UserContext(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("list chats")
		return httpx.Internal(c, "fetch_chats_failed")
	}

	return c.JSON(chats)
}
