package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/users"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/middleware"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes the account approval workflow to admins.
type AdminHandler struct {
	usersSvc *users.Service
}

func NewAdminHandler(u *users.Service) *AdminHandler {
	return &AdminHandler{usersSvc: u}
}

// Register routes under /admin, guarded by bearer auth and the admin role.
func (h *AdminHandler) Register(rg *gin.RouterGroup, ver middleware.Verifier) {
	a := rg.Group("/admin", middleware.AuthMiddleware(ver), middleware.RequireRole(string(models.RoleAdmin)))
	a.GET("/access-requests", h.AccessRequests)
	a.POST("/users/:id/approve", h.Approve)
	a.POST("/users/:id/suspend", h.Suspend)
}

func (h *AdminHandler) AccessRequests(c *gin.Context) {
	reqs, err := h.usersSvc.PendingRequests(c.Request.Context())
	if err != nil {
		logger.Errorf("admin: listing access requests: %v", err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": reqs, "total": len(reqs)})
}

func (h *AdminHandler) Approve(c *gin.Context) {
	h.transition(c, h.usersSvc.Approve)
}

func (h *AdminHandler) Suspend(c *gin.Context) {
	h.transition(c, h.usersSvc.Suspend)
}

func (h *AdminHandler) transition(c *gin.Context, op func(ctx context.Context, id int64) (*models.Identity, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		validationFailed(c, "id", "value is not a valid integer")
		return
	}
	if id == c.GetInt64(middleware.UserIDKey) {
		detail(c, http.StatusBadRequest, "Não é possível alterar a própria conta")
		return
	}
	ident, err := op(c.Request.Context(), id)
	switch {
	case errors.Is(err, users.ErrNotFound):
		detail(c, http.StatusNotFound, "Usuário não encontrado")
		return
	case err != nil:
		logger.Errorf("admin: updating user %d: %v", id, err)
		detail(c, http.StatusInternalServerError, "Erro interno")
		return
	}
	c.JSON(http.StatusOK, ident)
}
