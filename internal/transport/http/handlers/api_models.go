package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// AccountSummary describes the API view of an account. The credential and
// two-factor secret never leave the service.
type AccountSummary struct {
	ID            string  `json:"id"`
	TenantID      string  `json:"tenant_id"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"email_verified"`
	Username      string  `json:"username"`
	Phone         *string `json:"phone,omitempty"`
	PhoneVerified bool    `json:"phone_verified"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`

	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	StatusSince  time.Time `json:"status_since"`

	LoginAttempts int        `json:"login_attempts"`
	LockedUntil   *time.Time `json:"locked_until,omitempty"`

	TwoFactorEnabled bool `json:"two_factor_enabled"`

	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	PasswordChangedAt *time.Time `json:"password_changed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func newAccountSummary(account *domain.Account) AccountSummary {
	return AccountSummary{
		ID:                account.ID,
		TenantID:          account.TenantID,
		Email:             account.Email,
		EmailVerified:     account.EmailVerified,
		Username:          account.Username,
		Phone:             account.Phone,
		PhoneVerified:     account.PhoneVerified,
		FirstName:         account.FirstName,
		LastName:          account.LastName,
		AvatarURL:         account.AvatarURL,
		Status:            string(account.Status.State()),
		StatusReason:      account.Status.Reason(),
		StatusSince:       account.Status.ChangedAt(),
		LoginAttempts:     account.LoginAttempts,
		LockedUntil:       account.LockedUntil,
		TwoFactorEnabled:  account.TwoFactorEnabled,
		LastLoginAt:       account.LastLoginAt,
		PasswordChangedAt: account.PasswordChangedAt,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
}

// RegistrationRequest defines the payload for creating an account.
type RegistrationRequest struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegistrationResponse describes a newly created account.
type RegistrationResponse struct {
	Account AccountSummary `json:"account"`
	Message string         `json:"message,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Account AccountSummary `json:"account"`
}

// LockedResponse is returned when an operation is rejected because the
// account is locked.
type LockedResponse struct {
	Error       string     `json:"error"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	TraceID     string     `json:"trace_id,omitempty"`
}

// StatusChangeRequest carries the operator-supplied reason for a manual
// status transition.
type StatusChangeRequest struct {
	Reason string `json:"reason"`
}

// LockRequest carries the reason and optional deadline for a manual lock.
type LockRequest struct {
	Reason      string     `json:"reason"`
	LockedUntil *time.Time `json:"locked_until"`
}

// ProfileUpdateRequest defines a partial profile update; absent fields are
// left untouched.
type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
}

// PhoneChangeRequest replaces the account's phone number.
type PhoneChangeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// TwoFactorEnableRequest carries the shared secret for enabling two-factor.
type TwoFactorEnableRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// PasswordChangeRequest defines the payload for a user-initiated password change.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// PasswordResetRequest defines the payload for an administrative password reset.
type PasswordResetRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
	ChangeType  string `json:"change_type"`
}
