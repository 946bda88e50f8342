package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/users"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func testBackend(t *testing.T) (*gin.Engine, *users.Service) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "handlers-test-secret-32-bytes-xxxx"
	cfg.JWT.AccessTokenTTL = time.Minute
	cfg.JWT.RefreshTokenTTL = time.Hour
	svc := users.NewService(cfg, users.NewMemoryUserRepository(), users.NewMemoryRefreshStore())
	require.NoError(t, svc.SeedAdmin(context.Background(), "admin@bdgdpro.com", "admin-pass", "Admin"))
	return NewRouter(cfg, svc, RouterOptions{}), svc
}

func call(t *testing.T, r http.Handler, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, APIPrefix+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func login(t *testing.T, r http.Handler, email, password string) users.TokenPair {
	t.Helper()
	w := call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[users.TokenPair](t, w)
}

func TestLogin(t *testing.T) {
	r, _ := testBackend(t)

	pair := login(t, r, "admin@bdgdpro.com", "admin-pass")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "bearer", pair.TokenType)

	w := call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "admin@bdgdpro.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Email ou senha incorretos", decode[map[string]string](t, w)["detail"])

	w = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "admin@bdgdpro.com"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRegisterThenLoginPending(t *testing.T) {
	r, _ := testBackend(t)
	profile := models.RegistrationProfile{Email: "joao@example.com", Password: "password1", FullName: "Joao Silva"}

	w := call(t, r, http.MethodPost, "/auth/register", "", profile)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[models.Identity](t, w)
	require.Equal(t, models.StatusPending, id.Status)
	require.Equal(t, "Joao Silva", id.DisplayName)

	w = call(t, r, http.MethodPost, "/auth/register", "", profile)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Email já cadastrado", decode[map[string]string](t, w)["detail"])

	profile.Email = "other@example.com"
	profile.Password = "short"
	w = call(t, r, http.MethodPost, "/auth/register", "", profile)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = call(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "joao@example.com", "password": "password1"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, decode[map[string]string](t, w)["detail"], "aguardando")
}

func TestMeAndStatus(t *testing.T) {
	r, _ := testBackend(t)
	pair := login(t, r, "admin@bdgdpro.com", "admin-pass")

	w := call(t, r, http.MethodGet, "/auth/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.Identity](t, w)
	require.Equal(t, "admin@bdgdpro.com", me.Email)
	require.Equal(t, models.RoleAdmin, me.Role)

	w = call(t, r, http.MethodGet, "/auth/status", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[map[string]interface{}](t, w)
	require.Equal(t, true, st["authenticated"])
	require.Equal(t, "approved", st["status"])

	require.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/auth/me", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/auth/me", "garbage", nil).Code)
}

func TestRefreshRotation(t *testing.T) {
	r, _ := testBackend(t)
	pair := login(t, r, "admin@bdgdpro.com", "admin-pass")

	w := call(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	next := decode[users.TokenPair](t, w)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	w = call(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Refresh token inválido ou expirado", decode[map[string]string](t, w)["detail"])

	require.Equal(t, http.StatusUnprocessableEntity, call(t, r, http.MethodPost, "/auth/refresh", "", gin.H{}).Code)
}

func TestLogoutRevokesAllRefreshTokens(t *testing.T) {
	r, _ := testBackend(t)
	first := login(t, r, "admin@bdgdpro.com", "admin-pass")
	second := login(t, r, "admin@bdgdpro.com", "admin-pass")

	w := call(t, r, http.MethodPost, "/auth/logout", first.AccessToken, gin.H{"refresh_token": first.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	for _, rt := range []string{first.RefreshToken, second.RefreshToken} {
		w = call(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": rt})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestLogoutWithRefreshTokenOnly(t *testing.T) {
	r, _ := testBackend(t)
	pair := login(t, r, "admin@bdgdpro.com", "admin-pass")

	w := call(t, r, http.MethodPost, "/auth/logout", "expired-access", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	w = call(t, r, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": pair.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/auth/logout", "", gin.H{})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
