package port

import (
	"context"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
)

// AuditPublisher forwards account events to the audit sink. Callers drain
// the aggregate's pending events in emission order after a successful
// persistence cycle; the sink records them but the core only guarantees
// emission order and content, not storage.
type AuditPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// PublishAll forwards events in order, stopping at the first failure.
func PublishAll(ctx context.Context, publisher AuditPublisher, events []domain.Event) error {
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
