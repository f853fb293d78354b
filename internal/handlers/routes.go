package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/noteduco342/om-realtime/internal/httpx"
	"github.com/noteduco342/om-realtime/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Router holds everything NewApp mounts.
type Router struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Messages *MessageHandler
	Groups   *GroupHandler
	WS       *WebSocketHandler
	Health   *HealthHandler

	Authenticator  middleware.Authenticator
	AllowedOrigins []string
	// LoginRateLimit is the number of login attempts per minute and client; 0 disables it.
	LoginRateLimit int
	Logger         zerolog.Logger
}

func NewApp(r Router) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "OM Realtime",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			return httpx.Error(c, code, "", err.Error())
		},
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(r.Logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(r.AllowedOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	app.Get("/health", r.Health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", middleware.OriginAllowed(r.AllowedOrigins))
	login := []fiber.Handler{}
	if r.LoginRateLimit > 0 {
		login = append(login, limiter.New(limiter.Config{
			Max:        r.LoginRateLimit,
			Expiration: time.Minute,
		}))
	}
	api.Post("/login/access-token", append(login, r.Auth.Login)...)

	// Protected routes
	protected := api.Group("/", middleware.AuthRequired(r.Authenticator))
	protected.Get("/users/me", r.Users.Me)
	protected.Get("/msg/mark_msg_read/:msg_id", r.Messages.MarkRead)
	protected.Get("/msg/history/:chat_id", r.Messages.History)
	protected.Get("/groups/my", r.Groups.GetMyChats)
	protected.Get("/admin/sessions", middleware.RequireSuperuser(), r.WS.Sessions)

	// WebSocket route, authenticated by the init frame
	app.Use("/ws", middleware.OriginAllowed(r.AllowedOrigins), r.WS.Upgrade)
	app.Get("/ws/chat", r.WS.Handle())

	return app
}

func corsOrigins(allowed []string) string {
	if len(allowed) == 0 {
		return "*"
	}
	return strings.Join(allowed, ", ")
}
