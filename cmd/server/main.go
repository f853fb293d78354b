package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noteduco342/om-realtime/internal/broker"
	"github.com/noteduco342/om-realtime/internal/cache"
	"github.com/noteduco342/om-realtime/internal/config"
	"github.com/noteduco342/om-realtime/internal/handlers"
	"github.com/noteduco342/om-realtime/internal/handlers/ws"
	"github.com/noteduco342/om-realtime/internal/repository"
	"github.com/noteduco342/om-realtime/internal/service"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const loginRateLimit = 20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg)

	// Cancelled on SIGINT/SIGTERM; live websocket sessions close with NormalClosure.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	db, err := repository.InitDB(cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	logger.Info().Msg("connected to PostgreSQL")

	// Initialize Redis, required for the redis broker and presence
	redisCache := cache.NewRedisCache(cfg.Redis)
	defer redisCache.Close()
	redisUp := pingRedis(ctx, redisCache) == nil

	var presence *cache.Presence
	var fanout broker.Broker
	switch {
	case cfg.Broker == "redis" && !redisUp:
		logger.Fatal().Str("addr", cfg.Redis.Addr).Msg("redis broker selected but redis is unreachable")
	case cfg.Broker == "redis":
		fanout = broker.NewRedisBroker(redisCache.Client())
		presence = cache.NewPresence(redisCache)
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis broker")
	default:
		fanout = broker.NewMemoryBroker(cfg.WS.QueueSize)
		if redisUp {
			presence = cache.NewPresence(redisCache)
		}
		logger.Warn().Bool("presence", redisUp).Msg("using in-process broker, fan-out is limited to this node")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	readRepo := repository.NewMessageReadRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL)
	chatService := service.NewChatService(chatRepo)
	messageService := service.NewMessageService(messageRepo, chatRepo, cfg.MaxMessageLength)
	readService := service.NewReadService(messageRepo, chatRepo, readRepo, fanout, logger)

	gateway := ws.NewGateway(ws.GatewayOptions{
		Auth:        authService,
		Memberships: chatService,
		Messages:    messageService,
		Broker:      fanout,
		Hub:         ws.NewHub(presence, logger),
		Config:      cfg.WS,
		Logger:      logger,
	})

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error { return pingDB(ctx, db) },
	}
	if cfg.Broker == "redis" || redisUp {
		checks["redis"] = redisCache.Ping
	}

	app := handlers.NewApp(handlers.Router{
		Auth:           handlers.NewAuthHandler(authService, logger),
		Users:          handlers.NewUserHandler(),
		Messages:       handlers.NewMessageHandler(readService, logger),
		Groups:         handlers.NewGroupHandler(chatService, logger),
		WS:             handlers.NewWebSocketHandler(ctx, gateway, presence),
		Health:         handlers.NewHealthHandler(gateway.Hub(), checks),
		Authenticator:  authService,
		AllowedOrigins: cfg.AllowedOrigins,
		LoginRateLimit: loginRateLimit,
		Logger:         logger,
	})

	// Start server
	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		serveErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	// Sessions get their grace period to drain before the listener is forced closed.
	if err := app.ShutdownWithTimeout(cfg.WS.ShutdownGrace + time.Second); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	// Hijacked websocket connections are not tracked by fiber.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.WS.ShutdownGrace+time.Second)
	if err := gateway.Hub().Drain(drainCtx); err != nil {
		logger.Warn().Int("sessions", gateway.Hub().Count()).Msg("sessions still open at exit")
	}
	cancelDrain()
	logger.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func pingRedis(ctx context.Context, c *cache.RedisCache) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Ping(ctx)
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if sqlDB == nil {
		return errors.New("database handle unavailable")
	}
	return sqlDB.PingContext(ctx)
}
