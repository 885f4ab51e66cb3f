package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/logger"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

var (
	// ErrEmailTaken indicates the email is already registered within the tenant.
	ErrEmailTaken = errors.New("email already taken")
	// ErrUsernameTaken indicates the username is already registered within the tenant.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	audit    port.AuditPublisher
	lockout  domain.LockoutPolicy
	logger   *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	audit port.AuditPublisher,
	lockout domain.LockoutPolicy,
) *RegistrationService {
	return &RegistrationService{
		accounts: accounts,
		hasher:   hasher,
		policy:   policy,
		audit:    audit,
		lockout:  lockout,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a logger for audit-forwarding diagnostics.
func (s *RegistrationService) WithLogger(log *zap.Logger) *RegistrationService {
	if log != nil {
		s.logger = log
	}
	return s
}

// RegisterInput collects the attributes of a registration request.
type RegisterInput struct {
	TenantID  string
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
}

// Register creates a pending account within a tenant. Uniqueness of email
// and username is pre-checked for fast feedback, but the storage constraint
// has the final word: a unique violation on insert maps to the same taken
// error, so the check-then-create race cannot yield duplicates.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.Username = strings.TrimSpace(input.Username)

	if s.policy != nil {
		if err := s.policy.Validate(input.Password, domain.PasswordContext{
			Username: input.Username,
			Email:    input.Email,
			Phone:    input.Phone,
		}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}

	credential, err := domain.NewCredential(input.Password, s.hasher)
	if err != nil {
		return nil, err
	}

	if taken, err := s.accounts.ExistsByEmail(ctx, input.TenantID, input.Email, ""); err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.accounts.ExistsByUsername(ctx, input.TenantID, input.Username, ""); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}

	account, err := domain.NewAccount(domain.NewAccountParams{
		ID:         uuid.NewString(),
		TenantID:   input.TenantID,
		Email:      input.Email,
		Username:   input.Username,
		Credential: credential,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Phone:      input.Phone,
		Policy:     s.lockout,
	}, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.forwardEvents(ctx, account)
	return account, nil
}

func (s *RegistrationService) forwardEvents(ctx context.Context, account *domain.Account) {
	if s.audit == nil {
		account.ClearEvents()
		return
	}
	if err := port.PublishAll(ctx, s.audit, account.Events()); err != nil {
		s.logger.Warn("forward audit events",
			zap.String("tenant_id", account.TenantID),
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
	}
	account.ClearEvents()
}
