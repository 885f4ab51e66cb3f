package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly audit publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

// Publish logs the event with the same payload shape the Kafka publisher
// would produce.
func (p *StubPublisher) Publish(_ context.Context, event domain.Event) error {
	payload, err := auditPayload(event)
	if err != nil {
		return err
	}

	meta := event.Meta()
	ts := meta.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	p.logger.Info("stub audit event",
		zap.String("event_type", event.EventName()),
		zap.String("tenant_id", meta.TenantID),
		zap.String("account_id", meta.AccountID),
		zap.Time("timestamp", ts.UTC()),
		zap.Any("payload", payload),
	)
	return nil
}

var _ port.AuditPublisher = (*StubPublisher)(nil)
