package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/tokens"
	"github.com/stretchr/testify/require"
)

func testService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "users-test-secret-32-bytes-xxxxxxxx"
	cfg.JWT.AccessTokenTTL = time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour
	return NewService(cfg, NewMemoryUserRepository(), NewMemoryRefreshStore())
}

var profile = models.RegistrationProfile{
	Email: "Maria@Example.com", Password: "password1", FullName: "Maria Lima", Company: "Distribuidora X",
	Message: "please approve",
}

func TestRegister_CreatesPendingAccount(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, profile)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, id.Status)
	require.Equal(t, models.RoleStandard, id.Role)
	require.Equal(t, "maria@example.com", id.Email)
	require.NotZero(t, id.ID)

	_, err = svc.Register(ctx, profile)
	require.ErrorIs(t, err, ErrEmailTaken)

	reqs, err := svc.PendingRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	require.Equal(t, "please approve", reqs[0].Message)
}

func TestRegister_Validation(t *testing.T) {
	svc := testService(t)
	bad := profile
	bad.Password = "short"
	_, err := svc.Register(context.Background(), bad)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "password", verr.Field)

	bad = profile
	bad.Email = "nope"
	_, err = svc.Register(context.Background(), bad)
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "email", verr.Field)
}

func TestAuthenticate_ApprovalWorkflow(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	id, err := svc.Register(ctx, profile)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "maria@example.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@example.com", "password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "maria@example.com", "password1")
	var na *NotApprovedError
	require.ErrorAs(t, err, &na)
	require.Equal(t, models.StatusPending, na.Status)
	require.Contains(t, na.Detail(), "aguardando")

	_, err = svc.Approve(ctx, id.ID)
	require.NoError(t, err)
	acct, err := svc.Authenticate(ctx, " MARIA@example.com", "password1")
	require.NoError(t, err)
	require.NotNil(t, acct.LastLogin)

	_, err = svc.Suspend(ctx, id.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "maria@example.com", "password1")
	require.ErrorAs(t, err, &na)
	require.Equal(t, "Sua conta está suspensa", na.Detail())

	_, err = svc.Approve(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRefresh_RotatesAndRevokes(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	require.NoError(t, svc.SeedAdmin(ctx, "admin@bdgdpro.com", "admin-pass", "Admin"))
	require.NoError(t, svc.SeedAdmin(ctx, "admin@bdgdpro.com", "other", "Admin"))

	acct, err := svc.Authenticate(ctx, "admin@bdgdpro.com", "admin-pass")
	require.NoError(t, err)
	pair, err := svc.IssuePair(ctx, &acct.Identity)
	require.NoError(t, err)
	require.Equal(t, "bearer", pair.TokenType)

	claims, err := tokens.ParseAccessToken(svc.cfg, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, acct.ID, claims.UserID)
	require.Equal(t, "admin", claims.Role)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// single use
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	second, err := svc.IssuePair(ctx, &acct.Identity)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, acct.ID))
	_, err = svc.Refresh(ctx, next.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = svc.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = svc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefresh_SuspendedAccountCannotRefresh(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()
	id, err := svc.Register(ctx, profile)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, id.ID)
	require.NoError(t, err)

	pair, err := svc.IssuePair(ctx, id)
	require.NoError(t, err)
	_, err = svc.Suspend(ctx, id.ID)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestMemoryRefreshStore_Expiry(t *testing.T) {
	rs := NewMemoryRefreshStore()
	now := time.Now()
	rs.now = func() time.Time { return now }
	tok, err := rs.Issue(context.Background(), 1, time.Minute)
	require.NoError(t, err)

	rs.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = rs.Consume(context.Background(), tok)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}
