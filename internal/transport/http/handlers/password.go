package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

// PasswordHandler exposes credential replacement endpoints.
type PasswordHandler struct {
	passwords *usecase.PasswordService
}

func NewPasswordHandler(passwords *usecase.PasswordService) *PasswordHandler {
	return &PasswordHandler{passwords: passwords}
}

// RegisterRoutes binds password endpoints on a tenant-scoped group.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts/:account_id")
	accounts.POST("/password/change", h.Change)
	accounts.POST("/password/reset", h.Reset)
}

// Change replaces the credential after verifying the current password.
func (h *PasswordHandler) Change(c *gin.Context) {
	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	err := h.passwords.ChangePassword(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.CurrentPassword, req.NewPassword)
	h.respond(c, err, "password changed")
}

// Reset replaces the credential without the current-password gate, for
// administrative and forgot-password flows.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password payload"))
		return
	}

	err := h.passwords.ResetPassword(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.NewPassword, domain.PasswordChangeType(req.ChangeType))
	h.respond(c, err, "password reset")
}

func (h *PasswordHandler) respond(c *gin.Context, err error, message string) {
	if err == nil {
		c.JSON(http.StatusOK, MessageResponse{Message: message})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
	case errors.Is(err, domain.ErrIncorrectPassword):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "current password is incorrect"))
	case errors.Is(err, domain.ErrAccountDeleted):
		c.JSON(http.StatusGone, NewErrorResponse(c, "account is deleted"))
	case errors.Is(err, usecase.ErrPasswordPolicyViolation),
		errors.Is(err, domain.ErrWeakPassword),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
	case errors.Is(err, usecase.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "concurrent update, retry"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process password operation"))
	}
}
