package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
)

const (
	argon2Variant = "argon2id"
	argon2Version = "v=19"
)

var (
	errInvalidHashFormat = errors.New("argon2: invalid encoded hash format")
	errInvalidParams     = errors.New("argon2: invalid parameters")
)

// DefaultArgon2Params returns the production Argon2id parameters.
func DefaultArgon2Params() port.Argon2Params {
	return port.Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2Hasher hashes passwords with Argon2id and verifies them against the
// self-describing encoded form, so stored hashes remain verifiable after a
// parameter change.
type Argon2Hasher struct {
	params port.Argon2Params
}

// NewArgon2Hasher validates the parameters and builds a hasher. Zero-value
// parameters fall back to the defaults.
func NewArgon2Hasher(params port.Argon2Params) (*Argon2Hasher, error) {
	if params == (port.Argon2Params{}) {
		params = DefaultArgon2Params()
	}
	if err := validateArgon2Params(params); err != nil {
		return nil, err
	}
	return &Argon2Hasher{params: params}, nil
}

// Params returns the parameters used for new hashes.
func (h *Argon2Hasher) Params() port.Argon2Params {
	return h.params
}

func validateArgon2Params(params port.Argon2Params) error {
	if params.Memory < 8*1024 {
		return fmt.Errorf("%w: memory must be at least 8192", errInvalidParams)
	}
	if params.Iterations == 0 {
		return fmt.Errorf("%w: iterations must be greater than zero", errInvalidParams)
	}
	if params.Parallelism == 0 {
		return fmt.Errorf("%w: parallelism must be greater than zero", errInvalidParams)
	}
	if params.SaltLength < 8 {
		return fmt.Errorf("%w: salt length must be at least 8 bytes", errInvalidParams)
	}
	if params.KeyLength < 16 {
		return fmt.Errorf("%w: key length must be at least 16 bytes", errInvalidParams)
	}
	return nil
}

// Hash generates an Argon2id hash for the provided password. The returned
// value embeds the parameters, salt, and hash in a portable format:
// argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<hash>
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	encoded := strings.Join([]string{
		argon2Variant,
		argon2Version,
		fmt.Sprintf("m=%d,t=%d,p=%d", h.params.Memory, h.params.Iterations, h.params.Parallelism),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	}, "$")

	return encoded, nil
}

// Verify compares the password against the stored hash in constant time.
// Verification uses the parameters embedded in the encoded value, not the
// hasher's own, and only errors on a malformed hash.
func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	if encoded == "" {
		return false, errInvalidHashFormat
	}

	params, salt, expected, err := decodeArgon2Hash(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func decodeArgon2Hash(encoded string) (port.Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		return port.Argon2Params{}, nil, nil, errInvalidHashFormat
	}

	if parts[0] != argon2Variant {
		return port.Argon2Params{}, nil, nil, fmt.Errorf("argon2: unexpected variant %q", parts[0])
	}
	if parts[1] != argon2Version {
		return port.Argon2Params{}, nil, nil, fmt.Errorf("argon2: unsupported version %q", parts[1])
	}

	memory, iterations, parallelism, err := parseArgon2Params(parts[2])
	if err != nil {
		return port.Argon2Params{}, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return port.Argon2Params{}, nil, nil, fmt.Errorf("argon2: decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return port.Argon2Params{}, nil, nil, fmt.Errorf("argon2: decode hash: %w", err)
	}

	params := port.Argon2Params{
		Memory:      memory,
		Iterations:  iterations,
		Parallelism: parallelism,
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(hash)),
	}
	if err := validateArgon2Params(params); err != nil {
		return port.Argon2Params{}, nil, nil, err
	}

	return params, salt, hash, nil
}

func parseArgon2Params(segment string) (uint32, uint32, uint8, error) {
	entries := strings.Split(segment, ",")
	if len(entries) != 3 {
		return 0, 0, 0, errInvalidHashFormat
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
		err         error
	)

	for _, entry := range entries {
		kv := strings.Split(entry, "=")
		if len(kv) != 2 {
			return 0, 0, 0, errInvalidHashFormat
		}

		key := kv[0]
		value := kv[1]

		switch key {
		case "m":
			var v uint64
			v, err = strconv.ParseUint(value, 10, 32)
			memory = uint32(v)
		case "t":
			var v uint64
			v, err = strconv.ParseUint(value, 10, 32)
			iterations = uint32(v)
		case "p":
			var v uint64
			v, err = strconv.ParseUint(value, 10, 8)
			parallelism = uint8(v)
		default:
			return 0, 0, 0, errInvalidHashFormat
		}

		if err != nil {
			return 0, 0, 0, fmt.Errorf("argon2: parse %s: %w", key, err)
		}
	}

	return memory, iterations, parallelism, nil
}

var _ port.PasswordHasher = (*Argon2Hasher)(nil)
