package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for metering metrics
const MeterName = "fieldline/metering"

// MeteringMetrics holds the instruments emitted around governed calls.
// Instruments go through the global meter provider, so they are no-ops
// until an SDK provider is installed. All methods are nil-safe.
type MeteringMetrics struct {
	decisions     metric.Int64Counter
	unitsRecorded metric.Int64Counter
	costRecorded  metric.Int64Counter
}

// NewMeteringMetrics creates the metering instruments
func NewMeteringMetrics() (*MeteringMetrics, error) {
	meter := otel.GetMeterProvider().Meter(MeterName)

	decisions, err := meter.Int64Counter("metering.quota.decisions",
		metric.WithDescription("Quota decisions made for governed calls"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	units, err := meter.Int64Counter("metering.usage.units",
		metric.WithDescription("Billable units recorded to the usage ledger"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create units counter: %w", err)
	}

	cost, err := meter.Int64Counter("metering.usage.cost",
		metric.WithDescription("Estimated cost recorded to the usage ledger"),
		metric.WithUnit("cent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost counter: %w", err)
	}

	return &MeteringMetrics{
		decisions:     decisions,
		unitsRecorded: units,
		costRecorded:  cost,
	}, nil
}

// RecordDecision counts one quota decision for a service
func (m *MeteringMetrics) RecordDecision(ctx context.Context, service string, allowed bool) {
	if m == nil {
		return
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("allowed", allowed),
	))
}

// RecordUsage counts units and cost recorded for a service
func (m *MeteringMetrics) RecordUsage(ctx context.Context, service string, units, costCents int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("service", service))
	m.unitsRecorded.Add(ctx, units, attrs)
	m.costRecorded.Add(ctx, costCents, attrs)
}
