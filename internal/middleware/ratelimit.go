package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vibeweb/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when Redis is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// ErrNoLimiterStore is returned by CheckRateLimit without a Redis client.
var ErrNoLimiterStore = errors.New("rate limit store unavailable")

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Client *redis.Client
	Limit  int
	Window time.Duration
	// Name is the resource key; the request path when empty.
	Name   string
	Policy FailPolicy
	// Disabled turns the limiter into a pass-through, e.g. in development.
	Disabled bool
}

// CheckRateLimit counts one hit of resource by id and reports whether it is
// within limit for the current window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, ErrNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit limits requests per browser session, or per IP before a session
// exists.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Disabled {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if s := CurrentSession(c); s.ID != "" {
			id = "sid:" + s.ID
		}
		resource := cfg.Name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := CheckRateLimit(c.UserContext(), cfg.Client, resource, id, cfg.Limit, cfg.Window)
		if err != nil {
			if cfg.Policy == FailClosed {
				observability.Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
					"resource", resource, "error", err)
				return fiber.NewError(fiber.StatusServiceUnavailable, "Please try again in a moment.")
			}
			return c.Next()
		}
		if !allowed {
			return fiber.NewError(fiber.StatusTooManyRequests, "You are doing that too often. Slow down a little.")
		}
		return c.Next()
	}
}
