package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Fixed-window counter: first INCR in a window sets the expiry, every call
// returns the count and remaining window so the reply can carry Retry-After.
var windowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local n = redis.call('INCR', key)
	if n == 1 then
		redis.call('EXPIRE', key, window)
	end
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end
	local allowed = 0
	if n <= limit then
		allowed = 1
	end
	return { allowed, limit - n, ttl }
`)

// RateLimit throttles a route group to limit requests per client IP per
// window. With no Redis configured, or on Redis failure, requests pass
// through; throttling is a shield, not a dependency.
func RateLimit(rdb *redis.Client, prefix string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil {
				return next(c)
			}
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "throttle:" + prefix + ":" + ip

			vals, err := windowScript.Run(c.Request().Context(), rdb,
				[]string{key}, limit, int64(window/time.Second)).Int64Slice()
			if err != nil || len(vals) != 3 {
				return next(c)
			}

			remaining := vals[1]
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if vals[0] != 1 {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(vals[2], 10))
				return errJSON(c, http.StatusTooManyRequests, "throttled", "request was throttled, try again later")
			}
			return next(c)
		}
	}
}
