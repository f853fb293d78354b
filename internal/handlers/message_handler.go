package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/service"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// ReadReceipts marks messages read and notifies their senders.
type ReadReceipts interface {
	MarkRead(ctx context.Context, messageID uint, reader *models.User) error
	History(ctx context.Context, chatID uint, reader *models.User, limit, offset int) ([]models.MessagePublic, error)
}

type MessageHandler struct {
	reads ReadReceipts
	log   zerolog.Logger
}

func NewMessageHandler(reads ReadReceipts, log zerolog.Logger) *MessageHandler {
	return &MessageHandler{reads: reads, log: log}
}

// MarkRead records a read marker for one message
// GET /api/msg/mark_msg_read/:msg_id
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	user, err := httpx.CurrentUser(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Not authenticated")
	}
	msgID, err := httpx.ParamUint(c, "msg_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_msg_id", "Invalid message id")
	}

	err = h.reads.MarkRead(c.UserContext(), msgID, user)
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		return httpx.NotFound(c, "message_not_found", "Message not found")
	case errors.Is(err, service.ErrNotParticipant):
		return httpx.Forbidden(c, "not_participant", "Object Permission Denied")
	case errors.Is(err, service.ErrOwnMessage):
		return httpx.BadRequest(c, "own_message", "You cannot mark your own message as read")
	case errors.Is(err, service.ErrAlreadyRead):
		return httpx.BadRequest(c, "already_read", "You already read this message")
	case err != nil:
		h.log.Error().Err(err).Uint("msg_id", msgID).Uint("user_id", user.ID).Msg("mark message read")
		return httpx.Internal(c, "mark_read_failed")
	}

	return c.JSON(nil)
}

// History returns a page of a chat and marks the caller's unread messages read
// GET /api/msg/history/:chat_id?limit=100&offset=0
func (h *MessageHandler) History(c *fiber.Ctx) error {
	user, err := httpx.CurrentUser(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Not authenticated")
	}
	chatID, err := httpx.ParamUint(c, "chat_id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_chat_id", "Invalid chat id")
	}

	limit := defaultHistoryLimit
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 || l > maxHistoryLimit {
			return httpx.BadRequest(c, "invalid_limit", "Invalid limit")
		}
		limit = l
	}
	offset := 0
	if s := c.Query("offset"); s != "" {
		o, err := strconv.Atoi(s)
		if err != nil || o < 0 {
			return httpx.BadRequest(c, "invalid_offset", "Invalid offset")
		}
		offset = o
	}

	messages, err := h.reads.History(c.UserContext(), chatID, user, limit, offset)
	switch {
	case errors.Is(err, service.ErrNotParticipant):
		return httpx.Forbidden(c, "not_participant", "You are not a member of this chat")
	case err != nil:
		h.log.Error().Err(err).Uint("chat_id", chatID).Uint("user_id", user.ID).Msg("chat history")
		return httpx.Internal(c, "history_failed")
	}

	return c.JSON(messages)
}
