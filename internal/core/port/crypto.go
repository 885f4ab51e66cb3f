package port

import "github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"

// PasswordPolicyValidator enforces contextual password strength requirements
// on top of the domain's structural rules.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// PasswordHasher hashes and verifies secrets using the configured algorithm.
// It satisfies domain.PasswordHasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}
