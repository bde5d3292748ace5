package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Counter increments a fixed-window counter and returns its new value.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter implements Counter with INCR + EXPIRE in one pipeline.
type RedisCounter struct {
	Client *redis.Client
}

func (r RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := r.Client.Pipeline()
	cnt := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return cnt.Val(), nil
}

// RateLimitConfig config for the per-IP fixed-window limiter.
type RateLimitConfig struct {
	Counter        Counter
	Max            int           // requests per window; <= 0 disables
	KeyPrefix      string        // e.g. "rl:contact:"
	Window         time.Duration // e.g. 15m
	Message        string        // body message when limited
	RetryAfterHint bool          // set Retry-After header when limited
	Now            func() time.Time
}

// RateLimitMiddleware applies a fixed-window limit per client IP. Counter
// failures and a missing counter let the request through.
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rl:ip:"
	}
	if cfg.Message == "" {
		cfg.Message = "Too many requests from this IP, please try again later."
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if cfg.Max <= 0 || cfg.Counter == nil {
			// no limit configured or redis missing (dev): allow
			return next
		}
		return func(c echo.Context) error {
			now := cfg.Now()
			key := WindowKey(cfg.KeyPrefix, c.RealIP(), now, cfg.Window)

			cnt, err := cfg.Counter.Incr(c.Request().Context(), key, cfg.Window*2)
			if err != nil {
				c.Logger().Warnf("rate limit counter: %v", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(cfg.Max)-cnt, 0), 10))

			if cnt > int64(cfg.Max) {
				if cfg.RetryAfterHint {
					remain := cfg.Window - time.Duration(now.UnixNano()%int64(cfg.Window))
					h.Set("Retry-After", strconv.Itoa(int(remain.Round(time.Second)/time.Second)))
				}
				return c.JSON(http.StatusTooManyRequests, map[string]any{"success": false, "message": cfg.Message})
			}
			return next(c)
		}
	}
}

// WindowKey names the counter for ip in the window containing now:
// {prefix}{ip}:{window start unix}.
func WindowKey(prefix, ip string, now time.Time, window time.Duration) string {
	start := now.Truncate(window).Unix()
	return prefix + ip + ":" + strconv.FormatInt(start, 10)
}
