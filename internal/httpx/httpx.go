package httpx

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/models"
)

// Locals keys set by the auth middleware.
const (
	LocalUser   = "user"
	LocalUserID = "userID"
)

type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if s, ok := c.Locals("requestid").(string); ok {
		return s
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Detail:    message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	u, ok := c.Locals(LocalUser).(*models.User)
	if !ok || u == nil {
		return nil, fmt.Errorf("missing local %s", LocalUser)
	}
	return u, nil
}

func ParamUint(c *fiber.Ctx, key string) (uint, error) {
	v, err := c.ParamsInt(key)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid param %s", key)
	}
	return uint(v), nil
}
