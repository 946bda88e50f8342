package users

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RefreshStore keeps the opaque refresh credentials issued by the dev backend.
// Consume is single-use: a credential is revoked the moment it is redeemed.
type RefreshStore interface {
	Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string) (int64, error)
	// Owner looks a live credential up without redeeming it.
	Owner(ctx context.Context, token string) (int64, error)
	RevokeAll(ctx context.Context, userID int64) error
}

type refreshEntry struct {
	userID  int64
	expires time.Time
}

// MemoryRefreshStore is the default RefreshStore.
type MemoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]refreshEntry
	now    func() time.Time
}

func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{tokens: map[string]refreshEntry{}, now: time.Now}
}

func (s *MemoryRefreshStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	tok := uuid.NewString()
	s.mu.Lock()
	s.tokens[tok] = refreshEntry{userID: userID, expires: s.now().Add(ttl)}
	s.mu.Unlock()
	return tok, nil
}

func (s *MemoryRefreshStore) Consume(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	if !ok {
		return 0, ErrInvalidRefresh
	}
	delete(s.tokens, token)
	if s.now().After(e.expires) {
		return 0, ErrInvalidRefresh
	}
	return e.userID, nil
}

func (s *MemoryRefreshStore) Owner(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.tokens[token]
	if !ok || s.now().After(e.expires) {
		return 0, ErrInvalidRefresh
	}
	return e.userID, nil
}

func (s *MemoryRefreshStore) RevokeAll(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, e := range s.tokens {
		if e.userID == userID {
			delete(s.tokens, tok)
		}
	}
	return nil
}

// RedisRefreshStore keeps refresh credentials as expiring keys plus a per-user set
// used to revoke them all at logout.
type RedisRefreshStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRefreshStore(client *redis.Client, prefix string) *RedisRefreshStore {
	if prefix == "" {
		prefix = "bdgd:refresh:"
	}
	return &RedisRefreshStore{client: client, prefix: prefix}
}

func (s *RedisRefreshStore) tokenKey(tok string) string { return s.prefix + "token:" + tok }
func (s *RedisRefreshStore) userKey(id int64) string {
	return s.prefix + "user:" + strconv.FormatInt(id, 10)
}

func (s *RedisRefreshStore) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	tok := uuid.NewString()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(tok), userID, ttl)
	pipe.SAdd(ctx, s.userKey(userID), tok)
	pipe.Expire(ctx, s.userKey(userID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return tok, nil
}

func (s *RedisRefreshStore) Consume(ctx context.Context, token string) (int64, error) {
	id, err := s.client.GetDel(ctx, s.tokenKey(token)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidRefresh
	}
	if err != nil {
		return 0, err
	}
	s.client.SRem(ctx, s.userKey(id), token)
	return id, nil
}

func (s *RedisRefreshStore) Owner(ctx context.Context, token string) (int64, error) {
	id, err := s.client.Get(ctx, s.tokenKey(token)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrInvalidRefresh
	}
	return id, err
}

func (s *RedisRefreshStore) RevokeAll(ctx context.Context, userID int64) error {
	toks, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return err
	}
	keys := []string{s.userKey(userID)}
	for _, t := range toks {
		keys = append(keys, s.tokenKey(t))
	}
	return s.client.Del(ctx, keys...).Err()
}
