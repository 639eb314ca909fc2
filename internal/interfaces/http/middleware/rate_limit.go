package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/marketplace-api/internal/config"
	"github.com/your-org/marketplace-api/internal/pkg/apperror"
)

const rateLimitWindow = time.Minute

// RateLimit counts requests per client IP in fixed one minute windows kept in
// Redis. When Redis is absent or failing, requests are let through.
func RateLimit(cfg *config.Config, client redis.Cmdable, log *logrus.Logger) gin.HandlerFunc {
	limit := cfg.Security.RateLimitPerMinute
	if client == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		now := time.Now()
		window := now.Truncate(rateLimitWindow)
		key := fmt.Sprintf("rate_limit:%s:%d", c.ClientIP(), window.Unix())

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		var incr *redis.IntCmd
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, rateLimitWindow)
			return nil
		})
		if err != nil {
			if log != nil {
				log.WithError(err).WithField("client_ip", c.ClientIP()).Warn("rate limiter unavailable, allowing request")
			}
			c.Next()
			return
		}

		current := int(incr.Val())
		reset := window.Add(rateLimitWindow)
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if current > limit {
			retryAfter := int(reset.Sub(now).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			WriteError(c, apperror.New(apperror.CodeRateLimit, "rate limit exceeded"))
			return
		}

		c.Next()
	}
}
