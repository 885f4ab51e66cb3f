package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HL8-ORG/aiofix-ddd-saas-platform-sub002/internal/infra/config"
)

// Provider holds the service's Prometheus metrics. It satisfies the metrics
// interface the auth use case expects.
type Provider struct {
	loginSuccesses prometheus.Counter
	loginFailures  prometheus.Counter
	lockouts       prometheus.Counter
}

// Attach registers the service metrics and returns a provider handle.
// HTTP request metrics are owned by the transport middleware.
func Attach(_ context.Context, cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &Provider{
		loginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "login_success_total",
			Help:      "Total number of successful logins",
		}),
		loginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "login_failure_total",
			Help:      "Total number of failed login attempts",
		}),
		lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "accounts",
			Name:      "lockout_total",
			Help:      "Total number of automatic account lockouts",
		}),
	}, nil
}

// RecordLoginSuccess counts a successful login.
func (p *Provider) RecordLoginSuccess() {
	if p != nil {
		p.loginSuccesses.Inc()
	}
}

// RecordLoginFailure counts a failed login attempt.
func (p *Provider) RecordLoginFailure() {
	if p != nil {
		p.loginFailures.Inc()
	}
}

// RecordLockout counts an automatic lockout.
func (p *Provider) RecordLockout() {
	if p != nil {
		p.lockouts.Inc()
	}
}
