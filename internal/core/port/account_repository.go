package port

import (
	"context"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
)

// AccountRepository exposes persistence behavior for account aggregates.
// Every lookup is tenant-scoped; implementations must enforce uniqueness of
// (tenant_id, email) and (tenant_id, username) as a storage-level constraint,
// not merely an application check, and must honor the aggregate version on
// Update so concurrent writers cannot silently lose attempt accounting.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Account, error)
	// GetByIdentifier resolves an account by email or username within a tenant.
	GetByIdentifier(ctx context.Context, tenantID, identifier string) (*domain.Account, error)
	// Update persists the aggregate if and only if the stored version matches
	// account.Version, then bumps it. A mismatch yields repository.ErrVersionConflict.
	Update(ctx context.Context, account *domain.Account) error
	ExistsByEmail(ctx context.Context, tenantID, email string, excludeID string) (bool, error)
	ExistsByUsername(ctx context.Context, tenantID, username string, excludeID string) (bool, error)
}
