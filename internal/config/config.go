package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	JWTSecret      string
	AccessTokenTTL time.Duration
	AllowedOrigins []string

	DB    DBConfig
	Redis RedisConfig

	// Broker selects the fan-out backend: "redis" or "memory".
	Broker string

	WS WSConfig

	MaxMessageLength int
}

type DBConfig struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WSConfig tunes the per-connection gateway.
type WSConfig struct {
	PollInterval  time.Duration
	QueueSize     int
	ShutdownGrace time.Duration
	WriteTimeout  time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: getDuration("ACCESS_TOKEN_TTL", 8*24*time.Hour),
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "app"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Broker: strings.ToLower(getEnv("BROKER", "redis")),
		WS: WSConfig{
			PollInterval:  getDuration("WS_POLL_INTERVAL", time.Second),
			QueueSize:     getInt("WS_QUEUE_SIZE", 256),
			ShutdownGrace: getDuration("WS_SHUTDOWN_GRACE", 5*time.Second),
			WriteTimeout:  getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
		},
		MaxMessageLength: getInt("MAX_MESSAGE_LENGTH", 2048),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.Broker != "redis" && cfg.Broker != "memory" {
		return nil, errors.New("BROKER must be redis or memory")
	}
	if cfg.WS.QueueSize < 1 {
		cfg.WS.QueueSize = 1
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
