package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisRepository_SaveLoadClear(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "test:auth-storage", 0)

	ctx := context.Background()
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	s := &Session{
		AccessCredential:  "a1",
		RefreshCredential: "r1",
		Authenticated:     true,
		Identity:          &models.Identity{ID: 1, Email: "a@b.c", Role: models.RoleAdmin, Status: models.StatusApproved},
	}
	require.NoError(t, repo.Save(ctx, s))
	require.True(t, m.Exists("test:auth-storage"))

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a1", got.AccessCredential)
	require.Equal(t, "r1", got.RefreshCredential)
	require.True(t, got.Authenticated)
	require.Equal(t, models.RoleAdmin, got.Identity.Role)

	// saving the empty session removes the key
	require.NoError(t, repo.Save(ctx, &Session{}))
	require.False(t, m.Exists("test:auth-storage"))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_TTLExpiry(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	repo := NewRedisRepository(client, "", time.Second)

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &Session{AccessCredential: "a", RefreshCredential: "r", Authenticated: true}))
	require.True(t, m.Exists(DefaultKey))

	// advance miniredis clock past TTL
	m.FastForward(2 * time.Second)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepository_LoadNormalizesAuthenticatedFlag(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	// a record claiming authenticated without an access credential
	require.NoError(t, m.Set(DefaultKey, `{"refreshCredential":"r","authenticated":true}`))

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	got, err := NewRedisRepository(client, "", 0).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.False(t, got.Authenticated)
	require.Equal(t, "r", got.RefreshCredential)
}
