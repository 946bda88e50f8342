package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/users"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest is the body of POST /auth/refresh and, optionally, POST /auth/logout
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
	verifier middleware.Verifier
}

func NewAuthHandler(cfg *config.Config, u *users.Service, v middleware.Verifier) *AuthHandler {
	if v == nil {
		v = middleware.JWTVerifier{Config: cfg}
	}
	return &AuthHandler{cfg: cfg, usersSvc: u, verifier: v}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/register", h.RegisterAccount)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)

	authed := a.Group("", middleware.AuthMiddleware(h.verifier))
	authed.GET("/me", h.Me)
	authed.GET("/status", h.Status)
}

func detail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"detail": msg})
}

func validationFailed(c *gin.Context, field, msg string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
		"loc": []string{"body", field}, "msg": msg, "type": "value_error",
	}}})
}

// RegisterAccount creates a pending account (201). It never returns credentials.
func (h *AuthHandler) RegisterAccount(c *gin.Context) {
	var p models.RegistrationProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		validationFailed(c, "body", err.Error())
		return
	}
	id, err := h.usersSvc.Register(c.Request.Context(), p)
	var verr *users.ValidationError
	switch {
	case errors.As(err, &verr):
		validationFailed(c, verr.Field, verr.Msg)
		return
	case errors.Is(err, users.ErrEmailTaken):
		detail(c, http.StatusBadRequest, "Email já cadastrado")
		return
	case err != nil:
		logger.Errorf("register: %v", err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	c.JSON(http.StatusCreated, id)
}

// Login exchanges email/password for an access and refresh credential pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, "body", err.Error())
		return
	}
	ctx := c.Request.Context()
	acct, err := h.usersSvc.Authenticate(ctx, req.Email, req.Password)
	var na *users.NotApprovedError
	switch {
	case errors.Is(err, users.ErrInvalidCredentials):
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, "Email ou senha incorretos")
		return
	case errors.As(err, &na):
		detail(c, http.StatusForbidden, na.Detail())
		return
	case err != nil:
		logger.Errorf("login: %v", err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	pair, err := h.usersSvc.IssuePair(ctx, &acct.Identity)
	if err != nil {
		logger.Errorf("login: issuing tokens for %d: %v", acct.ID, err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	logger.L().Info().Int64("user_id", acct.ID).Msg("login succeeded")
	c.JSON(http.StatusOK, pair)
}

// Refresh redeems a refresh credential. The presented credential is revoked (rotation).
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		validationFailed(c, "refresh_token", "field required")
		return
	}
	pair, err := h.usersSvc.Refresh(c.Request.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, users.ErrInvalidRefresh):
		detail(c, http.StatusUnauthorized, "Refresh token inválido ou expirado")
		return
	case err != nil:
		logger.Errorf("refresh: %v", err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Logout revokes every refresh credential of the caller. The caller is identified by
// its bearer token or, when that already expired, by the refresh credential in the body.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	var uid int64
	if raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		if claims, err := h.verifier.Verify(ctx, strings.TrimSpace(raw)); err == nil {
			uid = claims.UserID
		}
	}
	if uid == 0 {
		var req RefreshRequest
		_ = c.ShouldBindJSON(&req)
		if req.RefreshToken != "" {
			if id, err := h.usersSvc.RefreshOwner(ctx, req.RefreshToken); err == nil {
				uid = id
			}
		}
	}
	if uid == 0 {
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if err := h.usersSvc.Logout(ctx, uid); err != nil {
		logger.Errorf("logout %d: %v", uid, err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout realizado com sucesso"})
}

func (h *AuthHandler) current(c *gin.Context) (*models.Identity, bool) {
	id, err := h.usersSvc.Get(c.Request.Context(), c.GetInt64(middleware.UserIDKey))
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			logger.Errorf("me: %v", err)
		}
		c.Header("WWW-Authenticate", "Bearer")
		detail(c, http.StatusUnauthorized, "Could not validate credentials")
		return nil, false
	}
	return id, true
}

// Me returns the caller's identity.
func (h *AuthHandler) Me(c *gin.Context) {
	if id, ok := h.current(c); ok {
		c.JSON(http.StatusOK, id)
	}
}

// Status reports the caller's approval state and role.
func (h *AuthHandler) Status(c *gin.Context) {
	if id, ok := h.current(c); ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": true, "status": id.Status, "role": id.Role})
	}
}
