package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/service"
)

// Authenticator is the same capability the websocket init frame uses.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func AuthRequired(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return httpx.Unauthorized(c, "missing_access_token", "Not authenticated")
		}

		// Extract token from "Bearer <token>"
		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			return httpx.Unauthorized(c, "invalid_authorization", "Invalid authorization format")
		}

		user, err := auth.Authenticate(c.UserContext(), strings.TrimSpace(tokenString))
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			return httpx.Forbidden(c, "invalid_access_token", "Could not validate credentials")
		case errors.Is(err, service.ErrUserNotFound):
			return httpx.NotFound(c, "user_not_found", "User not found")
		case errors.Is(err, service.ErrInactiveUser):
			return httpx.BadRequest(c, "inactive_user", "Inactive user")
		case err != nil:
			return httpx.Internal(c, "authentication_failed")
		}

		c.Locals(httpx.LocalUser, user)
		c.Locals(httpx.LocalUserID, user.ID)
		return c.Next()
	}
}
