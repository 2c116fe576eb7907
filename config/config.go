package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	RedisURL    string `env:"REDIS_URL"             validate:"required_if=ChallengeStore redis"`

	// ChallengeStore selects where login challenges live.
	ChallengeStore string `env:"CHALLENGE_STORE" envDefault:"postgres" validate:"oneof=postgres redis"`
	EventsEnabled  bool   `env:"EVENTS_ENABLED"  envDefault:"false"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	TokenSecret  string `env:"TOKEN_SECRET,required" validate:"required,min=32"`
	ResendAPIKey string `env:"RESEND_API_KEY"        validate:"required_if=Env production,required_if=Env staging"`
	EmailFrom    string `env:"EMAIL_FROM"            validate:"required_if=Env production,required_if=Env staging"`
	AppBaseURL   string `env:"APP_BASE_URL"          envDefault:"http://localhost:8080" validate:"required,url"`
	CookieSecure bool   `env:"COOKIE_SECURE"         envDefault:"true"`

	// ChallengeRetention must outlive the one-hour link validity so a stale
	// link is still found, reported as expired, and retires its siblings.
	ChallengeRetention time.Duration `env:"CHALLENGE_RETENTION" envDefault:"168h" validate:"min=2h"`
	SweepSchedule      string        `env:"SWEEP_SCHEDULE"      envDefault:"@hourly" validate:"required"`
}

var ErrEventsNeedRedis = errors.New("EVENTS_ENABLED requires REDIS_URL")

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.EventsEnabled && cfg.RedisURL == "" {
		return nil, fmt.Errorf("invalid config: %w", ErrEventsNeedRedis)
	}

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL onto slog. Unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}
