package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

// AuthHandler exposes the login endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication endpoints on a tenant-scoped group.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

// Login verifies the password for an account identified by email or
// username. Unknown accounts and wrong passwords produce the same response.
func (h *AuthHandler) Login(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	account, err := h.auth.Login(c.Request.Context(), tenantID, strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		var locked *domain.LockedError
		switch {
		case errors.As(err, &locked):
			traceID, _ := c.Get("trace_id")
			traceIDStr, _ := traceID.(string)
			c.JSON(http.StatusForbidden, LockedResponse{
				Error:       "account is locked",
				LockedUntil: locked.Until,
				TraceID:     traceIDStr,
			})
		case errors.Is(err, usecase.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
		case errors.Is(err, usecase.ErrAccountPending):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account activation required"))
		case errors.Is(err, usecase.ErrAccountNotActive):
			c.JSON(http.StatusForbidden, NewErrorResponse(c, "account is not active"))
		case errors.Is(err, usecase.ErrConcurrentUpdate):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "login could not be processed, retry"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process login"))
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Account: newAccountSummary(account)})
}
