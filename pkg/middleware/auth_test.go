package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeVerifier implements Verifier
type fakeVerifier struct{}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*tokens.Claims, error) {
	switch raw {
	case "goodtoken":
		return &tokens.Claims{UserID: 1, Email: "test@example.com", Role: "user"}, nil
	case "admintoken":
		return &tokens.Claims{UserID: 2, Email: "admin@example.com", Role: "admin"}, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func serve(g *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)
	return rw
}

func TestAuthMiddleware_NoHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	rw := serve(g, "")
	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Equal(t, "Bearer", rw.Header().Get("WWW-Authenticate"))
}

func TestAuthMiddleware_InvalidHeader(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusUnauthorized, serve(g, "BadHeader").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer ").Code)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer forged").Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), func(c *gin.Context) {
		claims, ok := c.Get(ClaimsKey)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"claims": claims, "user_id": c.GetInt64(UserIDKey)})
	})

	rw := serve(g, "Bearer goodtoken")
	require.Equal(t, http.StatusOK, rw.Code)
	var got struct {
		Claims tokens.Claims `json:"claims"`
		UserID int64         `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, "test@example.com", got.Claims.Email)
	require.Equal(t, int64(1), got.UserID)
}

func TestRequireRole(t *testing.T) {
	g := gin.New()
	g.GET("/", AuthMiddleware(&fakeVerifier{}), RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusForbidden, serve(g, "Bearer goodtoken").Code)
	require.Equal(t, http.StatusOK, serve(g, "Bearer admintoken").Code)

	bare := gin.New()
	bare.GET("/", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusUnauthorized, serve(bare, "").Code)
}

func TestJWTVerifier(t *testing.T) {
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-secret-32-bytes-xxxxxxxx"
	tok, err := tokens.GenerateAccessToken(cfg, &models.Identity{ID: 3, Email: "a@b.c", Role: models.RoleViewer}, time.Minute)
	require.NoError(t, err)

	g := gin.New()
	g.GET("/", AuthMiddleware(JWTVerifier{Config: cfg}), func(c *gin.Context) {
		c.String(http.StatusOK, "%d", c.GetInt64(UserIDKey))
	})
	rw := serve(g, "Bearer "+tok)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "3", rw.Body.String())

	expired, err := tokens.GenerateAccessToken(cfg, &models.Identity{ID: 3}, -time.Minute)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, serve(g, "Bearer "+expired).Code)
}
