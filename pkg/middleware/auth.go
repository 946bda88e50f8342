package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/tokens"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware.
const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
)

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (*tokens.Claims, error)
}

// JWTVerifier validates HS256 access tokens with the configured secret.
type JWTVerifier struct {
	Config *config.Config
}

func (v JWTVerifier) Verify(ctx context.Context, raw string) (*tokens.Claims, error) {
	return tokens.ParseAccessToken(v.Config, raw)
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			unauthorized(c, "Not authenticated")
			return
		}
		token, ok := strings.CutPrefix(auth, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		claims, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			unauthorized(c, "Could not validate credentials")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the verified token carries role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ClaimsKey)
		claims, _ := v.(*tokens.Claims)
		if !ok || claims == nil {
			unauthorized(c, "Not authenticated")
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Acesso restrito a administradores"})
			return
		}
		c.Next()
	}
}
