package handlers

import (
	"net/http"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/users"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// APIPrefix is where the identity and admin routes are mounted.
const APIPrefix = "/api/v1"

// RouterOptions carries the optional pieces of the dev backend.
type RouterOptions struct {
	// Redis enables the shared fixed-window limiter when the rate limit asks for it.
	Redis *redis.Client
	// Metrics exposes /metrics from the default Prometheus registry.
	Metrics bool
}

var startTime = time.Now()

// NewRouter assembles the dev backend: health, swagger, /api/v1/auth and /api/v1/admin.
func NewRouter(cfg *config.Config, svc *users.Service, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "uptime": time.Since(startTime).String()})
	})
	RegisterSwagger(r)
	if opts.Metrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := r.Group(APIPrefix)
	if rl := cfg.Server.RateLimit; rl.Enabled {
		if rl.UseRedis && opts.Redis != nil {
			api.Use(middleware.RedisRateLimitMiddleware(opts.Redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second))
		} else {
			api.Use(middleware.RateLimitMiddleware(rl.RPS, rl.Burst))
		}
	}

	ver := middleware.JWTVerifier{Config: cfg}
	NewAuthHandler(cfg, svc, ver).Register(api)
	NewAdminHandler(svc).Register(api, ver)
	return r
}

// corsMiddleware is a lightweight CORS policy for local development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
