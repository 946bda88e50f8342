package sessions

import (
	"context"
	"testing"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSessionIsEmpty(t *testing.T) {
	require.True(t, Session{}.IsEmpty())
	require.False(t, Session{RefreshCredential: "r"}.IsEmpty())
	require.False(t, Session{Identity: &models.Identity{}}.IsEmpty())

	require.True(t, isEmpty(nil))
	require.True(t, isEmpty(&Session{}))
	require.False(t, isEmpty(&Session{Authenticated: true}))
}

func TestSessionCloneDoesNotShareIdentity(t *testing.T) {
	s := Session{AccessCredential: "a", Identity: &models.Identity{DisplayName: "Ana"}}
	c := s.Clone()
	c.Identity.DisplayName = "Bia"
	require.Equal(t, "Ana", s.Identity.DisplayName)
}

func TestMemoryRepository(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	s := &Session{AccessCredential: "a", RefreshCredential: "r", Authenticated: true, Identity: &models.Identity{Email: "e"}}
	require.NoError(t, repo.Save(ctx, s))
	s.Identity.Email = "mutated"

	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "e", got.Identity.Email)

	require.NoError(t, repo.Save(ctx, &Session{}))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
	require.NoError(t, repo.Save(ctx, nil))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, 3, repo.Saves())
}
