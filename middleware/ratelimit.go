package middleware

import (
	"context"
	"strconv"
	"time"

	"lillith/internal/config"
	"lillith/internal/logger"
	"lillith/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter is the subset of the Redis client the rate limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimitMiddleware limits requests per client IP and route using fixed
// windows in Redis. It fails open when Redis is unavailable.
func RateLimitMiddleware(rdb Counter, cfg *config.Config) gin.HandlerFunc {
	window := time.Duration(cfg.RateLimitWindow) * time.Second

	return func(c *gin.Context) {
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()
		ctx := c.Request.Context()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("Rate limiter unavailable", "error", err, "request_id", GetRequestID(c))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))

		if count > int64(cfg.RateLimitReqs) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))
			utils.RespondWithTooManyRequests(c, "Too many requests. Please try again later.", gin.H{
				"retry_after": cfg.RateLimitWindow,
				"limit":       cfg.RateLimitReqs,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.RateLimitReqs-int(count)))
		c.Next()
	}
}
