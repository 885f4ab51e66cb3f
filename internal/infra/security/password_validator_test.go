package security

import (
	"errors"
	"strings"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
)

func assertViolation(t *testing.T, err error, expectedCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s violation", expectedCode)
	}
	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != expectedCode {
		t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
	}
}

func TestDefaultPasswordValidatorSuccess(t *testing.T) {
	validator := DefaultPasswordValidator("alice", "alice@example.com")

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < defaultMinZxcvbnScore {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := validator.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestDefaultPasswordValidatorViolations(t *testing.T) {
	validator := DefaultPasswordValidator("alice", "alice@example.com")

	assertViolation(t, validator.Validate("Sh1!"), "min_length")
	assertViolation(t, validator.Validate("Aa1!"+strings.Repeat("x", domain.MaxPasswordLength)), "max_length")
	assertViolation(t, validator.Validate("Alice@Example.com"), "user_input")
	assertViolation(t, validator.Validate("Password123"), "weak_password")
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(4),
		RequireCharacterClassesRule(2),
		RequireDifferentFrom("existing1"),
	)

	assertViolation(t, validator.Validate("existing1"), "different")
	assertViolation(t, validator.Validate("allsame"), "character_classes")
	if err := validator.Validate("diff!"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}

func TestPasswordPolicyUsesAccountContext(t *testing.T) {
	policy := NewPasswordPolicy()
	ctx := domain.PasswordContext{Username: "mhollenbeck", Email: "m.hollenbeck@example.com"}

	if err := policy.Validate("mhollenbeck", ctx); err == nil {
		t.Fatal("expected rejection of the username as password")
	}
	if err := policy.Validate("C0mplex!Passphrase#2025", ctx); err != nil {
		t.Fatalf("expected contextual pass, got %v", err)
	}
}

func TestPasswordPolicyMinScoreDisabled(t *testing.T) {
	policy := NewPasswordPolicy().WithMinScore(0)

	// The structural rules live in the domain; with the strength check off,
	// the contextual policy only guards against identifier reuse.
	if err := policy.Validate("Password123", domain.PasswordContext{Username: "alice"}); err != nil {
		t.Fatalf("expected pass with strength check disabled, got %v", err)
	}
}
