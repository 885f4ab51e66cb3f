package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/usecase"
)

// RegistrationHandler exposes the account creation endpoint.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration endpoints on a tenant-scoped group.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/accounts", h.Register)
}

// Register creates a pending account within the tenant from the path.
func (h *RegistrationHandler) Register(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	input := usecase.RegisterInput{
		TenantID:  tenantID,
		Email:     strings.TrimSpace(req.Email),
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		input.Phone = &phone
	}

	account, err := h.registration.Register(c.Request.Context(), input)
	if err != nil {
		var fieldErr *domain.FieldError
		switch {
		case errors.Is(err, usecase.ErrEmailTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "email already registered"))
		case errors.Is(err, usecase.ErrUsernameTaken):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "username already registered"))
		case errors.Is(err, usecase.ErrPasswordPolicyViolation),
			errors.Is(err, domain.ErrWeakPassword),
			errors.Is(err, domain.ErrPasswordTooShort),
			errors.Is(err, domain.ErrPasswordTooLong):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
		case errors.As(err, &fieldErr):
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, fieldErr.Error()))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to register account"))
		}
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		Account: newAccountSummary(account),
		Message: "activation required",
	})
}
