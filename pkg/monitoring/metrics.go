// Package monitoring wraps the process-wide OpenTelemetry meter the way
// pkg/logger wraps the process-wide zap logger: one small typed surface,
// constructed once at startup and passed to whichever adapter needs it.
package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the application's counters. AccountCreated is the only rate
// actually incremented today (accounts.created, on every new account row);
// Rate is kept general so future call sites aren't blocked on adding a new
// typed method here.
type Metrics struct {
	rate metric.Int64Counter
}

// NewMetrics builds the meter-backed counters. Call once per process.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("accountsvc")

	rate, err := meter.Int64Counter(
		"accountsvc_rate_total",
		metric.WithDescription("Generic category/action rate counter"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{rate: rate}, nil
}

// Rate increments a generic (category, action) counter.
func (m *Metrics) Rate(category, action string) {
	if m == nil {
		return
	}
	m.rate.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("category", category),
			attribute.String("action", action),
		),
	)
}

// AccountCreated records one "accounts.created" event, fired every time a
// new account row is inserted regardless of the calling path (a fresh
// authorization, a merge's new-account branch, or a bare credential lookup).
func (m *Metrics) AccountCreated() {
	m.Rate("accounts", "created")
}
