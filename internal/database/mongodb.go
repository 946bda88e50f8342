package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultTimeout bounds connect+ping when the configured timeout is not positive.
const DefaultTimeout = 10 * time.Second

var errNoURI = errors.New("mongo: empty connection uri")

// ConnectMongo dials uri and pings the primary. The returned client is ready for
// session or user collections; the caller owns Disconnect.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errNoURI
	}
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return nil, fmt.Errorf("mongo: unsupported uri scheme in %q", redact(uri))
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect %s: %w", redact(uri), err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Warnf("database: ping %s failed after %s: %v", redact(uri), timeout, err)
		// the ctx above is spent; give the driver its own window to close pools
		dctx, dcancel := context.WithTimeout(context.Background(), time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
		return nil, fmt.Errorf("mongo ping %s: %w", redact(uri), err)
	}
	logger.Debugf("database: connected to %s", redact(uri))
	return client, nil
}

// redact drops user info so credentials never reach logs or error text.
func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if slash := strings.Index(rest, "/"); slash < 0 || at < slash {
			rest = "***@" + rest[at+1:]
		}
	}
	return scheme + "://" + rest
}
