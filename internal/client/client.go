package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/credentials"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/database"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/gateway"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/sessions"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Options assembles a Client from already-built parts.
type Options struct {
	BaseURL        string
	HTTPTimeout    time.Duration
	RefreshTimeout time.Duration
	LogoutTimeout  time.Duration

	// Repository persists the session; nil keeps it in memory.
	Repository sessions.Repository
	Limiter    *rate.Limiter

	Navigator        gateway.Navigator
	OnSessionExpired func(gateway.SessionExpired)
}

// Client bundles the credential store and the authenticated gateway that share one session.
type Client struct {
	Store   *credentials.Store
	Gateway *gateway.Gateway

	closers []func(context.Context) error
}

func New(ctx context.Context, opts Options) (*Client, error) {
	store := credentials.NewStore(ctx, opts.Repository, credentials.Options{LogoutTimeout: opts.LogoutTimeout})
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	gw, err := gateway.New(gateway.Options{
		BaseURL:          opts.BaseURL,
		HTTPClient:       &http.Client{Timeout: timeout},
		RefreshTimeout:   opts.RefreshTimeout,
		Limiter:          opts.Limiter,
		Navigator:        opts.Navigator,
		OnSessionExpired: opts.OnSessionExpired,
	}, store)
	if err != nil {
		return nil, err
	}
	store.UseSender(gw)
	return &Client{Store: store, Gateway: gw}, nil
}

// FromConfig opens the configured session repository and builds the Client on top of it.
func FromConfig(ctx context.Context, cfg *config.Config, nav gateway.Navigator) (*Client, error) {
	repo, closer, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var lim *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}
	c, err := New(ctx, Options{
		BaseURL:        cfg.API.BaseURL,
		HTTPTimeout:    cfg.API.Timeout,
		RefreshTimeout: cfg.API.RefreshTimeout,
		LogoutTimeout:  cfg.API.LogoutTimeout,
		Repository:     repo,
		Limiter:        lim,
		Navigator:      nav,
	})
	if err != nil {
		if closer != nil {
			_ = closer(ctx)
		}
		return nil, err
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	return c, nil
}

// OpenRepository builds the sessions.Repository selected by SESSION_STORE. The returned
// closer (possibly nil) releases the underlying connection.
func OpenRepository(ctx context.Context, cfg *config.Config) (sessions.Repository, func(context.Context) error, error) {
	switch cfg.Session.Store {
	case config.StoreMemory:
		return sessions.NewMemoryRepository(), nil, nil
	case config.StoreFile, "":
		path := cfg.Session.File
		if path == "" {
			p, err := sessions.DefaultFilePath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		logger.Debugf("client: session file %s", path)
		return sessions.NewFileRepository(path), nil, nil
	case config.StoreRedis:
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rc.Ping(ctx).Err(); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr(), err)
		}
		logger.Infof("client: session stored in redis %s key=%s", cfg.Redis.Addr(), cfg.Session.Key)
		return sessions.NewRedisRepository(rc, cfg.Session.Key, cfg.Session.TTL),
			func(context.Context) error { return rc.Close() }, nil
	case config.StoreMongo:
		mc, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			return nil, nil, err
		}
		col := mc.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		logger.Infof("client: session stored in mongo %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		return sessions.NewMongoRepository(col, cfg.Session.Key), mc.Disconnect, nil
	case config.StoreMinIO:
		repo, err := sessions.NewObjectRepository(ctx, sessions.ObjectConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		}, cfg.Session.Key)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("client: session stored in minio bucket %s", cfg.MinIO.Bucket)
		return repo, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
}

// Send is a shortcut for Gateway.Send.
func (c *Client) Send(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	return c.Gateway.Send(ctx, req)
}

// Close releases the session repository connection, if any.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	for _, f := range c.closers {
		errs = append(errs, f(ctx))
	}
	c.closers = nil
	return errors.Join(errs...)
}
