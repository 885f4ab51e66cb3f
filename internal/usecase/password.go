package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

// PasswordService handles credential replacement: user-initiated change with
// a current-password gate, and reset flows that bypass it.
type PasswordService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	policy   port.PasswordPolicyValidator
	audit    port.AuditPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPasswordService constructs a password service.
func NewPasswordService(
	accounts port.AccountRepository,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	audit port.AuditPublisher,
) *PasswordService {
	return &PasswordService{
		accounts: accounts,
		hasher:   hasher,
		policy:   policy,
		audit:    audit,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// WithLogger attaches a logger for audit-forwarding diagnostics.
func (s *PasswordService) WithLogger(log *zap.Logger) *PasswordService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// ChangePassword replaces the credential after verifying the current
// password against the stored hash.
func (s *PasswordService) ChangePassword(ctx context.Context, tenantID, id, currentPassword, newPassword string) error {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		credential, err := s.buildCredential(a, newPassword)
		if err != nil {
			return err
		}
		return a.ChangePassword(currentPassword, credential, s.hasher, s.now().UTC())
	})
}

// ResetPassword replaces the credential without the current-password gate,
// for administrative and forgot-password flows. Attempt accounting resets.
func (s *PasswordService) ResetPassword(ctx context.Context, tenantID, id, newPassword string, changeType domain.PasswordChangeType) error {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		credential, err := s.buildCredential(a, newPassword)
		if err != nil {
			return err
		}
		return a.ResetPassword(credential, changeType, s.now().UTC())
	})
}

func (s *PasswordService) buildCredential(account *domain.Account, password string) (domain.Credential, error) {
	if s.policy != nil {
		if err := s.policy.Validate(password, domain.PasswordContext{
			Username: account.Username,
			Email:    account.Email,
			Phone:    account.Phone,
		}); err != nil {
			return domain.Credential{}, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
		}
	}
	return domain.NewCredential(password, s.hasher)
}

func (s *PasswordService) mutate(ctx context.Context, tenantID, id string, op func(*domain.Account) error) error {
	for attempt := 0; attempt <= versionConflictRetries; attempt++ {
		account, err := s.accounts.GetByID(ctx, tenantID, id)
		if err != nil {
			return err
		}

		if err := op(account); err != nil {
			return err
		}

		if err := s.accounts.Update(ctx, account); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return fmt.Errorf("save account: %w", err)
		}

		s.forward(ctx, account)
		return nil
	}

	return ErrConcurrentUpdate
}

func (s *PasswordService) forward(ctx context.Context, account *domain.Account) {
	if s.audit == nil {
		account.ClearEvents()
		return
	}
	if err := port.PublishAll(ctx, s.audit, account.Events()); err != nil {
		s.logger.Warn("forward audit events",
			zap.String("tenant_id", account.TenantID),
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
	account.ClearEvents()
}
