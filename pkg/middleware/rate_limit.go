package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// rateKey prefers the authenticated user (NAT-friendly) and falls back to the client IP.
func rateKey(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok2 := v.(int64); ok2 && id != 0 {
			return "user:" + strconv.FormatInt(id, 10)
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func tooManyRequests(c *gin.Context, retryAfter string, limiter string) {
	c.Header("Retry-After", retryAfter)
	metrics.RateLimitRejected.WithLabelValues(limiter).Inc()
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Rate limit exceeded"})
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // key -> *rate.Limiter
	return func(c *gin.Context) {
		v, _ := limiters.LoadOrStore(rateKey(c), rate.NewLimiter(rate.Limit(rps), burst))
		if !v.(*rate.Limiter).Allow() {
			tooManyRequests(c, "1", "memory")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
