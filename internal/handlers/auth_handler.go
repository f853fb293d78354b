package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
	"github.com/noteduco342/om-realtime/internal/service"
	"github.com/rs/zerolog"
)

type LoginService interface {
	Login(ctx context.Context, input service.LoginInput) (*service.TokenResponse, error)
}

type AuthHandler struct {
	authService LoginService
	log         zerolog.Logger
}

func NewAuthHandler(authService LoginService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Login exchanges email and password for an access token. Accepts the
// OAuth2 password form (username, password) or the same fields as JSON.
// POST /api/login/access-token
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	if input.Email == "" || input.Password == "" {
		return httpx.BadRequest(c, "missing_credentials", "Email and password are required")
	}

	result, err := h.authService.Login(c.UserContext(), input)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return httpx.BadRequest(c, "invalid_credentials", "Incorrect email or password")
	case errors.Is(err, service.ErrInactiveUser):
		return httpx.BadRequest(c, "inactive_user", "Inactive user")
	case err != nil:
		h.log.Error().Err(err).Msg("login")
		return httpx.Internal(c, "login_failed")
	}

	return c.JSON(result)
}
