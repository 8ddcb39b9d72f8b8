package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/farellandr/lanzalife/config"
	"github.com/farellandr/lanzalife/internal/helpers"
	"github.com/farellandr/lanzalife/internal/logging"
)

// tokenBucket refills one token per interval up to capacity and spends one
// per request. Returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = interval_ms - (now_ms - last_refill)
		if retry_after_ms < 0 then retry_after_ms = 0 end
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// RateLimitKey scopes a bucket to the client IP and the route pattern.
func RateLimitKey(prefix string, c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return fmt.Sprintf("%s:%s:%s %s", prefix, ip, c.Request.Method, route)
}

// RateLimit applies the token bucket. Redis failures let the request through.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := RateLimitKey(cfg.Prefix, c)
		vals, err := tokenBucket.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL/time.Second),
		).Int64Slice()
		if err != nil || len(vals) != 3 {
			logging.FromContext(c).Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		allowed, remaining, retryMs := vals[0] == 1, vals[1], vals[2]
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(float64(retryMs) / 1000.0))
			c.Header("Retry-After", strconv.Itoa(secs))
			helpers.RespondWithError(c, http.StatusTooManyRequests, "Rate limit exceeded, retry in "+strconv.Itoa(secs)+"s.")
			return
		}
		c.Next()
	}
}
