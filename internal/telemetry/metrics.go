package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName scopes the instruments below.
const meterName = "poolfi/backend"

// Metrics holds the domain counters. A nil *Metrics records nothing.
type Metrics struct {
	registrations metric.Int64Counter
	joins         metric.Int64Counter
	transitions   metric.Int64Counter
}

// NewMetrics creates the counters on meter. A nil meter uses the global MeterProvider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	registrations, err := meter.Int64Counter("poolfi.pool.registrations",
		metric.WithDescription("Pools registered, by kind."))
	if err != nil {
		return nil, err
	}
	joins, err := meter.Int64Counter("poolfi.pool.joins",
		metric.WithDescription("Impact pool joins that added a member."))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("poolfi.withdrawal.transitions",
		metric.WithDescription("Withdrawal state changes, by resulting status."))
	if err != nil {
		return nil, err
	}
	return &Metrics{registrations: registrations, joins: joins, transitions: transitions}, nil
}

// PoolRegistered counts a pool registration of kind.
func (m *Metrics) PoolRegistered(ctx context.Context, kind string, created bool) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("created", created),
	))
}

// PoolJoined counts a new impact pool member.
func (m *Metrics) PoolJoined(ctx context.Context) {
	if m == nil {
		return
	}
	m.joins.Add(ctx, 1)
}

// WithdrawalTransition counts a withdrawal reaching status.
func (m *Metrics) WithdrawalTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
