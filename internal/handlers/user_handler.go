package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me returns the authenticated user's public profile
// GET /api/users/me
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := httpx.CurrentUser(c)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Not authenticated")
	}
	return c.JSON(user.ToShort())
}
