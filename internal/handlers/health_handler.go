package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/om-realtime/internal/handlers/ws"
)

const healthTimeout = 2 * time.Second

// HealthCheck returns nil when a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	hub    *ws.Hub
	checks map[string]HealthCheck
}

func NewHealthHandler(hub *ws.Hub, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{hub: hub, checks: checks}
}

// Health reports dependency status and the live session count
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := fiber.StatusOK
	deps := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":      state,
		"connections": h.hub.Count(),
		"deps":        deps,
	})
}
