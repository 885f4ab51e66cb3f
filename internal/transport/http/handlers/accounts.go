package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

// AccountHandler exposes account lifecycle and profile endpoints.
type AccountHandler struct {
	accounts *usecase.AccountService
}

func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds account endpoints on a tenant-scoped group.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := r.Group("/accounts/:account_id")
	accounts.GET("", h.Get)
	accounts.POST("/activate", h.Activate)
	accounts.POST("/deactivate", h.Deactivate)
	accounts.POST("/suspend", h.Suspend)
	accounts.POST("/restore", h.Restore)
	accounts.POST("/lock", h.Lock)
	accounts.POST("/unlock", h.Unlock)
	accounts.DELETE("", h.Delete)
	accounts.PATCH("/profile", h.UpdateProfile)
	accounts.POST("/email/verify", h.VerifyEmail)
	accounts.POST("/phone/verify", h.VerifyPhone)
	accounts.PUT("/phone", h.ChangePhone)
	accounts.POST("/two-factor/enable", h.EnableTwoFactor)
	accounts.POST("/two-factor/disable", h.DisableTwoFactor)
}

var accountErrorCases = []ErrorCase{
	{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "account not found"},
	{Err: domain.ErrAlreadyActive, Status: http.StatusConflict, Message: "account is already active"},
	{Err: domain.ErrAlreadyDeleted, Status: http.StatusConflict, Message: "account is already deleted"},
	{Err: domain.ErrAccountDeleted, Status: http.StatusGone, Message: "account is deleted"},
	{Err: domain.ErrIllegalTransition, Status: http.StatusConflict, Message: "illegal status transition"},
	{Err: domain.ErrRequiredFieldMissing, Status: http.StatusBadRequest, Message: "required field is missing"},
	{Err: usecase.ErrConcurrentUpdate, Status: http.StatusConflict, Message: "concurrent update, retry"},
}

func (h *AccountHandler) respond(c *gin.Context, account *domain.Account, err error) {
	if err != nil {
		RespondWithMappedError(c, err, accountErrorCases, http.StatusInternalServerError, "failed to process account operation")
		return
	}
	c.JSON(http.StatusOK, newAccountSummary(account))
}

func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.Get(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}

func (h *AccountHandler) Activate(c *gin.Context) {
	account, err := h.accounts.Activate(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}
	account, err := h.accounts.Deactivate(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Reason)
	h.respond(c, account, err)
}

func (h *AccountHandler) Suspend(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}
	account, err := h.accounts.Suspend(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Reason)
	h.respond(c, account, err)
}

func (h *AccountHandler) Restore(c *gin.Context) {
	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}
	account, err := h.accounts.Restore(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Reason)
	h.respond(c, account, err)
}

func (h *AccountHandler) Lock(c *gin.Context) {
	var req LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid payload"))
		return
	}
	account, err := h.accounts.Lock(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Reason, req.LockedUntil)
	h.respond(c, account, err)
}

func (h *AccountHandler) Unlock(c *gin.Context) {
	account, err := h.accounts.Unlock(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	var req StatusChangeRequest
	// A body is optional on delete.
	_ = c.ShouldBindJSON(&req)

	if _, err := h.accounts.Delete(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Reason); err != nil {
		RespondWithMappedError(c, err, accountErrorCases, http.StatusInternalServerError, "failed to delete account")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}
	account, err := h.accounts.UpdateProfile(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), domain.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
	})
	h.respond(c, account, err)
}

func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	account, err := h.accounts.VerifyEmail(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}

func (h *AccountHandler) VerifyPhone(c *gin.Context) {
	account, err := h.accounts.VerifyPhone(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}

func (h *AccountHandler) ChangePhone(c *gin.Context) {
	var req PhoneChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid phone payload"))
		return
	}
	account, err := h.accounts.ChangePhone(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Phone)
	h.respond(c, account, err)
}

func (h *AccountHandler) EnableTwoFactor(c *gin.Context) {
	var req TwoFactorEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid two-factor payload"))
		return
	}
	account, err := h.accounts.EnableTwoFactor(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"), req.Secret)
	h.respond(c, account, err)
}

func (h *AccountHandler) DisableTwoFactor(c *gin.Context) {
	account, err := h.accounts.DisableTwoFactor(c.Request.Context(), c.Param("tenant_id"), c.Param("account_id"))
	h.respond(c, account, err)
}
