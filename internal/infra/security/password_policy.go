package security

import (
	"fmt"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
)

const defaultMinZxcvbnScore = 3

// DefaultPasswordValidator returns the built-in validator layered on top of
// the structural rules the domain already enforces: a zxcvbn strength check
// plus a guard against reusing account identifiers as the password.
func DefaultPasswordValidator(userInputs ...string) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(domain.MinPasswordLength),
		MaxLengthRule(domain.MaxPasswordLength),
		RequireNotUserInputRule(userInputs...),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore, userInputs...),
	)
}

// PasswordPolicy adapts the rule-based validator to the contextual policy
// port. Account identifiers from the context feed the strength estimator, so
// "alice@example.com" scores as guessable for alice even though it would
// score well for anyone else.
type PasswordPolicy struct {
	minScore int
}

// NewPasswordPolicy builds the production password policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{minScore: defaultMinZxcvbnScore}
}

// WithMinScore overrides the required zxcvbn score (0 disables the check).
func (p *PasswordPolicy) WithMinScore(score int) *PasswordPolicy {
	p.minScore = score
	return p
}

// Validate applies the contextual rules to the candidate password.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, 3)
	if ctx.Username != "" {
		inputs = append(inputs, ctx.Username)
	}
	if ctx.Email != "" {
		inputs = append(inputs, ctx.Email)
	}
	if ctx.Phone != nil && *ctx.Phone != "" {
		inputs = append(inputs, *ctx.Phone)
	}

	validator := NewPasswordValidator(
		RequireNotUserInputRule(inputs...),
		RequirePasswordStrengthRule(p.minScore, inputs...),
	)
	return validator.Validate(password)
}

var _ port.PasswordPolicyValidator = (*PasswordPolicy)(nil)
