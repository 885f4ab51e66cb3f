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

// versionConflictRetries bounds the reload-and-retry loop around the
// optimistic lock. Concurrent logins against the same account are rare but
// must not silently drop attempt accounting.
const versionConflictRetries = 3

var (
	// ErrInvalidCredentials indicates the identifier or password is incorrect.
	// Unknown accounts, deleted accounts, and wrong passwords deliberately
	// collapse into this one error so callers cannot probe which it was.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountPending indicates the account requires activation before login.
	ErrAccountPending = errors.New("account pending activation")
	// ErrAccountNotActive indicates the account is deactivated or suspended.
	ErrAccountNotActive = errors.New("account is not active")
	// ErrConcurrentUpdate indicates the optimistic retry budget was exhausted.
	ErrConcurrentUpdate = errors.New("account modified concurrently, retry")
)

// AuthMetrics records login outcomes; satisfied by telemetry.Provider.
type AuthMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordLockout()
}

// AuthService coordinates the credential-verification flow.
type AuthService struct {
	accounts port.AccountRepository
	hasher   port.PasswordHasher
	audit    port.AuditPublisher
	metrics  AuthMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(accounts port.AccountRepository, hasher port.PasswordHasher, audit port.AuditPublisher) *AuthService {
	return &AuthService{
		accounts: accounts,
		hasher:   hasher,
		audit:    audit,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// WithLogger attaches a logger for audit-forwarding diagnostics.
func (s *AuthService) WithLogger(log *zap.Logger) *AuthService {
	if log != nil {
		s.logger = log
	}
	return s
}

// WithMetrics attaches login outcome counters.
func (s *AuthService) WithMetrics(metrics AuthMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// WithClock allows injection of a custom clock (primarily for testing).
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login verifies the password for the account matching the identifier within
// the tenant. Attempt accounting and automatic lockout happen inside the
// aggregate; this layer persists the outcome under the optimistic lock and
// retries on version conflicts so concurrent requests cannot under- or
// over-count attempts.
func (s *AuthService) Login(ctx context.Context, tenantID, identifier, password string) (*domain.Account, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	for attempt := 0; attempt <= versionConflictRetries; attempt++ {
		account, err := s.accounts.GetByIdentifier(ctx, tenantID, identifier)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("lookup account: %w", err)
		}

		ok, err := account.VerifyPassword(password, s.hasher, s.now().UTC())
		if err != nil {
			var locked *domain.LockedError
			if errors.As(err, &locked) {
				return nil, err
			}
			if errors.Is(err, domain.ErrAccountDeleted) {
				return nil, ErrInvalidCredentials
			}
			// Malformed stored hash: data corruption, not a caller error.
			return nil, fmt.Errorf("verify password: %w", err)
		}

		if err := s.accounts.Update(ctx, account); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("save account: %w", err)
		}

		s.recordOutcome(account, ok)
		s.forward(ctx, account)

		if !ok {
			return nil, ErrInvalidCredentials
		}
		switch account.Status.State() {
		case domain.StateActive:
			return account, nil
		case domain.StatePending:
			return nil, ErrAccountPending
		default:
			return nil, ErrAccountNotActive
		}
	}

	return nil, ErrConcurrentUpdate
}

func (s *AuthService) recordOutcome(account *domain.Account, ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.RecordLoginSuccess()
		return
	}
	s.metrics.RecordLoginFailure()
	if account.Status.Is(domain.StateLocked) {
		s.metrics.RecordLockout()
	}
}

func (s *AuthService) forward(ctx context.Context, account *domain.Account) {
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
