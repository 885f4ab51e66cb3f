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

// AccountService exposes the administrative lifecycle operations of the
// account aggregate: status transitions, profile maintenance, verification
// flags, and two-factor settings.
type AccountService struct {
	accounts port.AccountRepository
	audit    port.AuditPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewAccountService constructs an account service.
func NewAccountService(accounts port.AccountRepository, audit port.AuditPublisher) *AccountService {
	return &AccountService{
		accounts: accounts,
		audit:    audit,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// WithLogger attaches a logger for audit-forwarding diagnostics.
func (s *AccountService) WithLogger(log *zap.Logger) *AccountService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	if now != nil {
		s.now = now
	}
	return s
}

// Get loads an account by tenant-scoped id.
func (s *AccountService) Get(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Activate transitions the account to active and marks the email verified.
func (s *AccountService) Activate(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Activate(s.now().UTC())
	})
}

// Deactivate transitions the account to inactive.
func (s *AccountService) Deactivate(ctx context.Context, tenantID, id, reason string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Deactivate(reason, s.now().UTC())
	})
}

// Suspend transitions the account to suspended.
func (s *AccountService) Suspend(ctx context.Context, tenantID, id, reason string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Suspend(reason, s.now().UTC())
	})
}

// Restore transitions an inactive or suspended account back to active.
func (s *AccountService) Restore(ctx context.Context, tenantID, id, reason string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Restore(reason, s.now().UTC())
	})
}

// Lock locks the account until the optional deadline; nil means indefinite.
func (s *AccountService) Lock(ctx context.Context, tenantID, id, reason string, until *time.Time) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Lock(reason, until, s.now().UTC())
	})
}

// Unlock restores a locked account and resets its attempt accounting.
func (s *AccountService) Unlock(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Unlock(s.now().UTC())
	})
}

// Delete soft-deletes the account; the row is retained for audit purposes.
func (s *AccountService) Delete(ctx context.Context, tenantID, id, reason string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.Delete(reason, s.now().UTC())
	})
}

// UpdateProfile applies a partial update to the non-security profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, tenantID, id string, update domain.ProfileUpdate) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.UpdateProfile(update, s.now().UTC())
	})
}

// VerifyEmail marks the email address verified.
func (s *AccountService) VerifyEmail(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.VerifyEmail(s.now().UTC())
	})
}

// VerifyPhone marks the phone number verified.
func (s *AccountService) VerifyPhone(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.VerifyPhone(s.now().UTC())
	})
}

// ChangePhone replaces the phone number; the verified flag resets.
func (s *AccountService) ChangePhone(ctx context.Context, tenantID, id, phone string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.ChangePhone(phone, s.now().UTC())
	})
}

// EnableTwoFactor stores the shared secret and switches two-factor on.
func (s *AccountService) EnableTwoFactor(ctx context.Context, tenantID, id, secret string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.EnableTwoFactor(secret, s.now().UTC())
	})
}

// DisableTwoFactor discards the shared secret and switches two-factor off.
func (s *AccountService) DisableTwoFactor(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	return s.mutate(ctx, tenantID, id, func(a *domain.Account) error {
		return a.DisableTwoFactor(s.now().UTC())
	})
}

// mutate loads the aggregate, applies the operation, and persists under the
// optimistic lock, reloading on version conflicts. A rejected operation
// leaves the stored aggregate untouched.
func (s *AccountService) mutate(ctx context.Context, tenantID, id string, op func(*domain.Account) error) (*domain.Account, error) {
	for attempt := 0; attempt <= versionConflictRetries; attempt++ {
		account, err := s.accounts.GetByID(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, repository.ErrNotFound
			}
			return nil, fmt.Errorf("load account: %w", err)
		}

		if err := op(account); err != nil {
			return nil, err
		}

		if err := s.accounts.Update(ctx, account); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("save account: %w", err)
		}

		s.forward(ctx, account)
		return account, nil
	}

	return nil, ErrConcurrentUpdate
}

func (s *AccountService) forward(ctx context.Context, account *domain.Account) {
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
