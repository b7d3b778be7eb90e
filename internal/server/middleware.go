package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"auction-backend/internal/biddingerrors"
	"auction-backend/internal/metrics"
	"auction-backend/services/bidding/helpers"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RequestLoggerMiddleware logs incoming requests with timing and counts them by route
func RequestLoggerMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next() // process request

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if m != nil {
			m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		}

		utils.Info("HTTP Request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"user_id": helpers.CallerID(c),
		})
	}
}

// CallerResolver turns a session credential into a user id
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (string, error)
}

// AuthMiddleware rejects requests without a live session and records the caller otherwise
func AuthMiddleware(resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := resolver.ResolveCaller(c.Request.Context(), helpers.Credential(c))
		if err != nil {
			status, code, message := helpers.MapErrorToHTTP(err)
			utils.AbortJSONError(c, status, code, err, message)
			utils.Warn("AuthMiddleware: request rejected", map[string]any{
				"path":  c.Request.URL.Path,
				"code":  code,
				"error": err.Error(),
			})
			return
		}

		helpers.SetCaller(c, userID)
		c.Next()
	}
}

// sliding window over a sorted set: KEYS[1]=key, ARGV = now ms, window start ms,
// ttl seconds, unique member, limit. Returns the count including this request, or -1.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local member = ARGV[4]
local limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, ttl)
  return count + 1
end
return -1
`

// RedisRateLimit caps each authenticated caller at limit requests per window. It must run
// after AuthMiddleware. Redis failures let the request through.
func RedisRateLimit(rdb redis.UniversalClient, limit int, window time.Duration) gin.HandlerFunc {
	ttl := int64(window.Seconds())
	if ttl < 1 {
		ttl = 1
	}

	return func(c *gin.Context) {
		key := "auction:ratelimit:bids:"
		if userID := helpers.CallerID(c); userID != "" {
			key += "user:" + userID
		} else {
			key += "ip:" + c.ClientIP()
		}

		now := time.Now().UnixMilli()
		windowStart := now - window.Milliseconds()

		res, err := rdb.Eval(c.Request.Context(), luaRateLimit, []string{key},
			now, windowStart, ttl, uuid.NewString(), limit).Int()
		if err != nil {
			utils.Warn("RedisRateLimit: limiter unavailable, allowing request", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		if res < 0 {
			err := fmt.Errorf("ratelimit: %w - %d requests per %s", biddingerrors.ErrRateLimited, limit, window)
			status, code, message := helpers.MapErrorToHTTP(err)
			c.Header("Retry-After", strconv.FormatInt(ttl, 10))
			utils.AbortJSONError(c, status, code, err, message)
			utils.Warn("RedisRateLimit: request rejected", map[string]any{"key": key})
			return
		}
		c.Next()
	}
}
