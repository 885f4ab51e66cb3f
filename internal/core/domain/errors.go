package domain

import (
	"fmt"
	"time"
)

// Error is a domain error with a stable machine-readable code. The code is
// what the presentation layer maps to an HTTP status; the message is safe to
// return to callers verbatim.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Is matches errors by code so parameterized errors compare equal to their
// sentinel counterparts under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrRequiredFieldMissing indicates a mandatory attribute was absent at creation or update time.
	ErrRequiredFieldMissing = &Error{Code: "required_field_missing", Message: "required field is missing"}
	// ErrIllegalTransition indicates the requested status change is not in the transition table.
	ErrIllegalTransition = &Error{Code: "illegal_transition", Message: "illegal status transition"}
	// ErrAlreadyActive indicates activation was requested for an account that is already active.
	ErrAlreadyActive = &Error{Code: "already_active", Message: "account is already active"}
	// ErrAlreadyDeleted indicates deletion was requested for an account that is already deleted.
	ErrAlreadyDeleted = &Error{Code: "already_deleted", Message: "account is already deleted"}
	// ErrAccountDeleted indicates a mutating operation was attempted on a deleted account.
	ErrAccountDeleted = &Error{Code: "account_deleted", Message: "account is deleted"}
	// ErrAccountLocked indicates authentication was attempted while the account is locked.
	ErrAccountLocked = &Error{Code: "account_locked", Message: "account is locked"}
	// ErrIncorrectPassword indicates the supplied current password did not verify.
	ErrIncorrectPassword = &Error{Code: "incorrect_password", Message: "current password is incorrect"}
	// ErrWeakPassword indicates the password failed composition or deny-list checks.
	ErrWeakPassword = &Error{Code: "weak_password", Message: "password does not meet strength requirements"}
	// ErrPasswordTooShort indicates the password is below the minimum length.
	ErrPasswordTooShort = &Error{Code: "password_too_short", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	// ErrPasswordTooLong indicates the password exceeds the maximum length.
	ErrPasswordTooLong = &Error{Code: "password_too_long", Message: fmt.Sprintf("password must be at most %d characters", MaxPasswordLength)}
)

// FieldError reports which required field was missing. It matches
// ErrRequiredFieldMissing under errors.Is.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// Is matches the required-field sentinel.
func (e *FieldError) Is(target error) bool {
	return target == ErrRequiredFieldMissing || ErrRequiredFieldMissing.Is(target)
}

// TransitionError reports the rejected edge of the status state machine. It
// matches ErrIllegalTransition under errors.Is.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition from %s to %s", e.From, e.To)
}

// Is matches the illegal-transition sentinel.
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition || ErrIllegalTransition.Is(target)
}

// LockedError reports a rejected authentication attempt against a locked
// account. Until is nil for an indefinite lock. It matches ErrAccountLocked
// under errors.Is; the lock deadline is safe to disclose so callers can back
// off intelligently.
type LockedError struct {
	Until *time.Time
}

func (e *LockedError) Error() string {
	if e.Until == nil {
		return "account is locked"
	}
	return fmt.Sprintf("account is locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// Is matches the account-locked sentinel.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked || ErrAccountLocked.Is(target)
}
