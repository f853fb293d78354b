package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/httpx"
)

// RequireSuperuser must run after AuthRequired.
func RequireSuperuser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := httpx.CurrentUser(c)
		if err != nil || !user.IsSuperuser {
			return httpx.Forbidden(c, "forbidden", "The user doesn't have enough privileges")
		}
		return c.Next()
	}
}
