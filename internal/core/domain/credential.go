package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Password length bounds enforced by NewCredential.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordHasher is the slow, salted hashing primitive the credential relies
// on. The domain treats it as a black box; the concrete implementation lives
// in the security infrastructure.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// PasswordContext carries account attributes that a contextual strength
// policy may weigh against the candidate password.
type PasswordContext struct {
	Username string
	Email    string
	Phone    *string
}

// deniedPasswords rejects a short list of values that satisfy the
// composition rules but are still trivially guessable.
var deniedPasswords = map[string]struct{}{
	"password1!": {},
	"passw0rd!":  {},
	"qwerty123!": {},
	"welcome1!":  {},
	"letmein1!":  {},
	"admin123!":  {},
	"changeme1!": {},
}

// Credential wraps the one-way hash of an account secret. The plaintext is
// never retained; the credential is replaced wholesale on password change or
// reset.
type Credential struct {
	hash string
}

// NewCredential validates the plaintext against the password policy and
// derives the hash. The plaintext is not stored.
func NewCredential(password string, hasher PasswordHasher) (Credential, error) {
	if hasher == nil {
		return Credential{}, fmt.Errorf("password hasher is required")
	}
	if err := validatePassword(password); err != nil {
		return Credential{}, err
	}

	encoded, err := hasher.Hash(password)
	if err != nil {
		return Credential{}, fmt.Errorf("hash password: %w", err)
	}
	return Credential{hash: encoded}, nil
}

// CredentialFromHash wraps an already-computed hash when reconstituting an
// account from storage. No strength validation is performed.
func CredentialFromHash(hash string) Credential {
	return Credential{hash: hash}
}

// Hash returns the opaque encoded hash.
func (c Credential) Hash() string {
	return c.hash
}

// Empty reports whether the credential carries no hash.
func (c Credential) Empty() bool {
	return c.hash == ""
}

// Verify checks the plaintext against the stored hash. A mismatch is not an
// error; an error is returned only when the stored hash is malformed, which
// signals data corruption upstream of this component.
func (c Credential) Verify(password string, hasher PasswordHasher) (bool, error) {
	if hasher == nil {
		return false, fmt.Errorf("password hasher is required")
	}
	ok, err := hasher.Verify(password, c.hash)
	if err != nil {
		return false, fmt.Errorf("verify credential: %w", err)
	}
	return ok, nil
}

func validatePassword(password string) error {
	length := len([]rune(password))
	if length < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if length > MaxPasswordLength {
		return ErrPasswordTooLong
	}

	if _, denied := deniedPasswords[strings.ToLower(password)]; denied {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			hasSymbol = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}
