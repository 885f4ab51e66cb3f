package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/repository"
)

const (
	uniqueViolation        = "23505"
	emailConstraintName    = "accounts_tenant_email_key"
	usernameConstraintName = "accounts_tenant_username_key"
)

var accountColumns = []string{
	"id",
	"tenant_id",
	"email",
	"email_verified",
	"username",
	"phone",
	"phone_verified",
	"first_name",
	"last_name",
	"avatar_url",
	"password_hash",
	"status",
	"status_reason",
	"status_changed_at",
	"login_attempts",
	"locked_until",
	"two_factor_enabled",
	"two_factor_secret",
	"last_login_at",
	"password_changed_at",
	"created_at",
	"updated_at",
	"deleted_at",
	"version",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
// Tenant-scoped uniqueness of email and username is enforced by partial
// unique indexes on the accounts table; a constraint violation surfaces as
// the same taken-error the pre-insert existence check would have produced,
// which closes the check-then-create race.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	policy  domain.LockoutPolicy
}

// NewAccountRepository wires a PostgreSQL-backed account repository. The
// lockout policy is attached to every reconstituted aggregate.
func NewAccountRepository(exec pgExecutor, policy domain.LockoutPolicy) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		policy:  policy,
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{exec: tx, builder: r.builder, policy: r.policy}
}

// Create inserts a new account row at version zero.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	status := account.Status
	query := r.builder.Insert("accounts").
		Columns(accountColumns...).
		Values(
			account.ID,
			account.TenantID,
			account.Email,
			account.EmailVerified,
			account.Username,
			account.Phone,
			account.PhoneVerified,
			account.FirstName,
			account.LastName,
			account.AvatarURL,
			account.Credential.Hash(),
			status.State().String(),
			nullableString(status.Reason()),
			status.ChangedAt(),
			account.LoginAttempts,
			account.LockedUntil,
			account.TwoFactorEnabled,
			account.TwoFactorSecret,
			account.LastLoginAt,
			account.PasswordChangedAt,
			account.CreatedAt,
			account.UpdatedAt,
			account.DeletedAt,
			account.Version,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if taken := takenError(err); taken != nil {
			return taken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID retrieves an account within a tenant. Soft-deleted rows are still
// returned; the aggregate itself rejects further mutation.
func (r *AccountRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"tenant_id": tenantID, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}
	return r.scanOne(ctx, stmt, args)
}

// GetByIdentifier resolves an account by email or username within a tenant.
func (r *AccountRepository) GetByIdentifier(ctx context.Context, tenantID, identifier string) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("accounts").
		Where(squirrel.Eq{"tenant_id": tenantID}).
		Where(squirrel.Or{
			squirrel.Expr("lower(email) = lower(?)", identifier),
			squirrel.Expr("lower(username) = lower(?)", identifier),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}
	return r.scanOne(ctx, stmt, args)
}

// Update persists the aggregate iff the stored version matches, then bumps
// the version both in storage and on the aggregate. Zero affected rows mean
// either a concurrent writer won (ErrVersionConflict) or the row is gone
// (ErrNotFound).
func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	status := account.Status
	query := r.builder.Update("accounts").
		Set("email", account.Email).
		Set("email_verified", account.EmailVerified).
		Set("username", account.Username).
		Set("phone", account.Phone).
		Set("phone_verified", account.PhoneVerified).
		Set("first_name", account.FirstName).
		Set("last_name", account.LastName).
		Set("avatar_url", account.AvatarURL).
		Set("password_hash", account.Credential.Hash()).
		Set("status", status.State().String()).
		Set("status_reason", nullableString(status.Reason())).
		Set("status_changed_at", status.ChangedAt()).
		Set("login_attempts", account.LoginAttempts).
		Set("locked_until", account.LockedUntil).
		Set("two_factor_enabled", account.TwoFactorEnabled).
		Set("two_factor_secret", account.TwoFactorSecret).
		Set("last_login_at", account.LastLoginAt).
		Set("password_changed_at", account.PasswordChangedAt).
		Set("updated_at", account.UpdatedAt).
		Set("deleted_at", account.DeletedAt).
		Set("version", account.Version+1).
		Where(squirrel.Eq{
			"tenant_id": account.TenantID,
			"id":        account.ID,
			"version":   account.Version,
		})

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build update account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		if taken := takenError(err); taken != nil {
			return taken
		}
		return fmt.Errorf("update account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		exists, err := r.exists(ctx, squirrel.Eq{"tenant_id": account.TenantID, "id": account.ID})
		if err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	account.Version++
	return nil
}

// ExistsByEmail reports whether the email is taken within the tenant,
// optionally excluding one account id.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, tenantID, email string, excludeID string) (bool, error) {
	pred := squirrel.And{
		squirrel.Eq{"tenant_id": tenantID},
		squirrel.Expr("lower(email) = lower(?)", email),
	}
	if excludeID != "" {
		pred = append(pred, squirrel.NotEq{"id": excludeID})
	}
	return r.exists(ctx, pred)
}

// ExistsByUsername reports whether the username is taken within the tenant,
// optionally excluding one account id.
func (r *AccountRepository) ExistsByUsername(ctx context.Context, tenantID, username string, excludeID string) (bool, error) {
	pred := squirrel.And{
		squirrel.Eq{"tenant_id": tenantID},
		squirrel.Expr("lower(username) = lower(?)", username),
	}
	if excludeID != "" {
		pred = append(pred, squirrel.NotEq{"id": excludeID})
	}
	return r.exists(ctx, pred)
}

func (r *AccountRepository) exists(ctx context.Context, pred any) (bool, error) {
	inner := r.builder.Select("1").From("accounts").Where(pred)
	stmt, args, err := r.builder.Select().Column(squirrel.Alias(squirrel.Expr("EXISTS(?)", inner), "found")).ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists sql: %w", err)
	}

	var found bool
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return found, nil
}

func (r *AccountRepository) scanOne(ctx context.Context, stmt string, args []any) (*domain.Account, error) {
	var (
		account         domain.Account
		passwordHash    string
		statusTag       string
		statusReason    *string
		statusChangedAt time.Time
	)

	err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&account.ID,
		&account.TenantID,
		&account.Email,
		&account.EmailVerified,
		&account.Username,
		&account.Phone,
		&account.PhoneVerified,
		&account.FirstName,
		&account.LastName,
		&account.AvatarURL,
		&passwordHash,
		&statusTag,
		&statusReason,
		&statusChangedAt,
		&account.LoginAttempts,
		&account.LockedUntil,
		&account.TwoFactorEnabled,
		&account.TwoFactorSecret,
		&account.LastLoginAt,
		&account.PasswordChangedAt,
		&account.CreatedAt,
		&account.UpdatedAt,
		&account.DeletedAt,
		&account.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	reason := ""
	if statusReason != nil {
		reason = *statusReason
	}
	account.Credential = domain.CredentialFromHash(passwordHash)
	account.Status = domain.NewStatus(domain.State(statusTag), reason, statusChangedAt)
	account.Policy = r.policy
	return &account, nil
}

func takenError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailConstraintName:
		return repository.ErrEmailTaken
	case usernameConstraintName:
		return repository.ErrUsernameTaken
	default:
		return nil
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ port.AccountRepository = (*AccountRepository)(nil)
