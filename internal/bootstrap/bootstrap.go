// Package bootstrap holds the process setup shared by the binaries in cmd/.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/p3tuh/notello/config"
	"github.com/p3tuh/notello/internal/health"
	"github.com/p3tuh/notello/internal/infrastructure/postgres"
	"github.com/p3tuh/notello/internal/infrastructure/redis"
	ctxlog "github.com/p3tuh/notello/internal/log"
	"github.com/p3tuh/notello/internal/repository"
	goredis "github.com/redis/go-redis/v9"
)

// NewLogger returns a tint logger for local runs and JSON otherwise, both
// wrapped so request_id and context attrs reach every record.
func NewLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}

// Deps are the connections a process needs. Redis is nil unless the
// challenge store or the event stream uses it.
type Deps struct {
	Pool       *pgxpool.Pool
	Redis      *goredis.Client
	Challenges repository.ChallengeRepository
}

func Open(ctx context.Context, cfg *config.Config, appName string, logger *slog.Logger) (*Deps, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, appName)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	logger.Info("db connected")

	d := &Deps{Pool: pool}

	if cfg.ChallengeStore == "redis" || cfg.EventsEnabled {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		d.Redis = client
		logger.Info("redis connected")
	}

	switch cfg.ChallengeStore {
	case "redis":
		d.Challenges = redis.NewChallengeRepository(d.Redis, cfg.ChallengeRetention)
	default:
		d.Challenges = postgres.NewChallengeRepository(pool)
	}
	logger.Info("challenge store selected", "store", cfg.ChallengeStore)

	return d, nil
}

// Pingers lists every open connection for the readiness probe.
func (d *Deps) Pingers() map[string]health.Pinger {
	deps := map[string]health.Pinger{"postgres": d.Pool}
	if d.Redis != nil {
		deps["redis"] = redis.Pinger{Client: d.Redis}
	}
	return deps
}

func (d *Deps) Close() {
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	d.Pool.Close()
}
