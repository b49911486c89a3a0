package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"github.com/alnah/go-md2png/internal/config"
	"github.com/alnah/go-md2png/internal/logging"
)

// NewStore returns the rate limiter storage described by cfg: redis when
// configured and reachable, in-memory otherwise.
func NewStore(cfg config.RateLimitConfig) fiber.Storage {
	if cfg.Storage == "redis" && cfg.RedisAddr != "" {
		if s := newRedisStore(cfg); s != nil {
			return s
		}
	}
	return memoryStorage.New()
}

// newRedisStore returns nil when the redis driver cannot connect; it
// panics on a failed ping at construction.
func newRedisStore(cfg config.RateLimitConfig) (s fiber.Storage) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory",
				"addr", cfg.RedisAddr, "panic", fmt.Sprint(r))
			s = nil
		}
	}()

	s = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.RedisAddr},
		Database: cfg.RedisDB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return s
}
