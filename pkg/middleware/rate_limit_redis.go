package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimitMiddleware provides a coarse fixed-window Redis-backed limiter shared
// by every dev backend replica. allowed = floor(rps*windowSeconds)+burst per window.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	windowSeconds := int(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowedPerWindow := int64(rps*float64(windowSeconds)) + int64(burst)
	return func(c *gin.Context) {
		bucket := time.Now().Unix() / int64(windowSeconds)
		redisKey := fmt.Sprintf("bdgd:rl:%s:%d", rateKey(c), bucket)

		ctx := c.Request.Context()
		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			logger.Errorf("rate limit: redis incr failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Rate limit check failed"})
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if cnt > allowedPerWindow {
			tooManyRequests(c, strconv.Itoa(windowSeconds), "redis")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
