package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/domain"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/core/port"
	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/config"
)

const schemaVersion = "1.0"

// AuditPublisher implements port.AuditPublisher over Kafka. Each account
// event goes to its own topic, named after the event with the configured
// prefix applied.
type AuditPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewAuditPublisher constructs a Kafka-backed audit publisher.
func NewAuditPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	TenantID  string           `json:"tenant_id"`
	AccountID string           `json:"account_id"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload,omitempty"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// Publish serializes the event into the audit envelope and hands it to the
// async producer. The switch is exhaustive over the domain's closed event
// set; an unknown type is a programming error, not a runtime condition.
func (p *AuditPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := auditPayload(event)
	if err != nil {
		return err
	}
	return p.publish(ctx, event.EventName(), event.Meta(), payload)
}

func auditPayload(event domain.Event) (any, error) {
	switch ev := event.(type) {
	case domain.AccountCreatedEvent:
		return struct {
			Email    string `json:"email"`
			Username string `json:"username"`
			Status   string `json:"status"`
		}{
			Email:    ev.Email,
			Username: ev.Username,
			Status:   string(ev.Status),
		}, nil
	case domain.AccountActivatedEvent:
		return nil, nil
	case domain.AccountLockedEvent:
		return struct {
			Reason        string     `json:"reason,omitempty"`
			LoginAttempts int        `json:"login_attempts"`
			LockedUntil   *time.Time `json:"locked_until,omitempty"`
		}{
			Reason:        ev.Reason,
			LoginAttempts: ev.LoginAttempts,
			LockedUntil:   ev.LockedUntil,
		}, nil
	case domain.PasswordChangedEvent:
		return struct {
			ChangeType string `json:"change_type"`
		}{
			ChangeType: string(ev.ChangeType),
		}, nil
	case domain.LoginSucceededEvent:
		return nil, nil
	case domain.LoginFailedEvent:
		return struct {
			LoginAttempts int  `json:"login_attempts"`
			Locked        bool `json:"locked"`
		}{
			LoginAttempts: ev.LoginAttempts,
			Locked:        ev.Locked,
		}, nil
	default:
		return nil, fmt.Errorf("unhandled account event type %T", event)
	}
}

func (p *AuditPublisher) publish(ctx context.Context, eventType string, meta domain.EventMeta, payload any) error {
	ts := meta.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}
	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		TenantID:  meta.TenantID,
		AccountID: meta.AccountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		// Keying by account keeps one account's audit trail ordered
		// within a partition.
		Key:   sarama.StringEncoder(meta.AccountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.AuditPublisher = (*AuditPublisher)(nil)
