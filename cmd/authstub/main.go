package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/handlers"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/database"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/users"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// authstub is a development backend implementing the identity contract the client relies on.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = randomSecret()
		logger.Warnf("JWT_SECRET not set, using an ephemeral secret (tokens will not survive a restart)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", cfg.Redis.Addr(), err)
			_ = rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			logger.Infof("connected to Redis %s", cfg.Redis.Addr())
		}
	}

	var repo users.UserRepository = users.NewMemoryUserRepository()
	if cfg.MongoDB.URI != "" {
		if client := connectMongo(ctx, cfg); client != nil {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mrepo := users.NewMongoUserRepository(client.Database(cfg.MongoDB.Database).Collection("users"))
			if err := mrepo.EnsureIndexes(ctx); err != nil {
				logger.Warnf("users: creating indexes failed: %v", err)
			}
			repo = mrepo
		}
	}
	var refresh users.RefreshStore = users.NewMemoryRefreshStore()
	if rdb != nil {
		refresh = users.NewRedisRefreshStore(rdb, "")
	}

	svc := users.NewService(cfg, repo, refresh)
	if cfg.Admin.Password != "" {
		if err := svc.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			logger.Fatalf("seeding admin %s: %v", cfg.Admin.Email, err)
		}
	} else {
		logger.Warnf("ADMIN_PASSWORD not set, no admin account seeded")
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := handlers.NewRouter(cfg, svc, handlers.RouterOptions{Redis: rdb, Metrics: true})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("config summary: mongo=%v redis=%v rate_limit=%v access_ttl=%s",
		cfg.MongoDB.URI != "", rdb != nil, cfg.Server.RateLimit.Enabled, cfg.JWT.AccessTokenTTL)

	go func() {
		logger.Infof("starting auth stub on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// connectMongo retries with backoff to tolerate startup races; nil means fall back to memory.
func connectMongo(ctx context.Context, cfg *config.Config) *mongo.Client {
	const maxAttempts = 5
	backoff := time.Second
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err == nil {
			logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)
			return client
		}
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff *= 2
		}
	}
	logger.Warnf("could not connect to MongoDB, users are kept in memory")
	return nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		logger.Fatalf("generating secret: %v", err)
	}
	return hex.EncodeToString(b)
}
