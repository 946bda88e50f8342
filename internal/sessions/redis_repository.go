package sessions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKey is the namespaced storage key used by every backend.
const DefaultKey = "bdgd:auth-storage"

// RedisRepository implements Repository using Redis as the backing store.
// The session is stored as JSON under a single key; ttl (optional) bounds how long
// an abandoned session survives, typically the refresh credential lifetime.
type RedisRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisRepository creates a Redis-based session repository. Key may be empty.
func NewRedisRepository(client *redis.Client, key string, ttl time.Duration) *RedisRepository {
	if key == "" {
		key = DefaultKey
	}
	return &RedisRepository{client: client, key: key, ttl: ttl}
}

func (r *RedisRepository) Load(ctx context.Context) (*Session, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	s.normalize()
	return &s, nil
}

func (r *RedisRepository) Save(ctx context.Context, s *Session) error {
	if isEmpty(s) {
		return r.client.Del(ctx, r.key).Err()
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	// ttl 0 means no expiry
	return r.client.Set(ctx, r.key, b, r.ttl).Err()
}
