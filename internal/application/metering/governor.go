package metering

import (
	"context"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/fieldline/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Consumption reports what a paid call actually used, extracted from the
// provider response by the integration adapter.
type Consumption struct {
	TokensUsed int64
	UnitsUsed  int64
	Metadata   map[string]any
}

// InvokeFunc performs the paid external API call. It runs only after the
// quota check passes (or when the call is unmetered) and returns the
// actual consumption; the business response stays with the adapter.
type InvokeFunc func(ctx context.Context) (Consumption, error)

// MeterRequest identifies who is calling which metered service
type MeterRequest struct {
	// TenantID is optional: internal jobs and unauthenticated flows pass
	// nil and the call proceeds without quota checks or recording.
	TenantID       *uuid.UUID
	UserID         *uuid.UUID
	Service        metering.MeteredService
	Operation      string
	RequestedUnits int64
}

// MeterResult reports the metering outcome of one governed call
type MeterResult struct {
	Metered   bool
	Decision  *metering.QuotaDecision
	CostCents int64
}

// Governor runs the metering sequence around every paid external call:
// resolve tier, evaluate quota, invoke, record. Integration adapters
// depend on it instead of talking to the resolver, evaluator and
// recorder directly.
type Governor struct {
	tiers    *TierResolver
	quotas   *QuotaService
	recorder *UsageRecorder
	logger   *zap.Logger
	tracer   trace.Tracer
	metrics  *telemetry.MeteringMetrics
}

// GovernorOption is a functional option for configuring the Governor
type GovernorOption func(*Governor)

// WithMetrics attaches metering metrics instruments to the governor
func WithMetrics(metrics *telemetry.MeteringMetrics) GovernorOption {
	return func(g *Governor) {
		g.metrics = metrics
	}
}

// NewGovernor creates a new Governor
func NewGovernor(tiers *TierResolver, quotas *QuotaService, recorder *UsageRecorder, logger *zap.Logger, opts ...GovernorOption) *Governor {
	g := &Governor{
		tiers:    tiers,
		quotas:   quotas,
		recorder: recorder,
		logger:   logger,
		tracer:   otel.Tracer("fieldline/metering"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Meter governs one paid call. Denials return *QuotaExceededError and
// never invoke. A successful invoke is always followed by a recording
// attempt, and a recording failure never fails the call: the provider
// was already paid, so the caller gets the result regardless. Errors
// from invoke are passed through untouched and nothing is recorded for
// the failed attempt.
func (g *Governor) Meter(ctx context.Context, req MeterRequest, invoke InvokeFunc) (*MeterResult, error) {
	if !req.Service.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Unknown metered service")
	}
	if req.Operation == "" {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Operation cannot be empty")
	}

	ctx, span := g.tracer.Start(ctx, "metering.govern",
		trace.WithAttributes(
			attribute.String(telemetry.SpanAttrService, string(req.Service)),
			attribute.String(telemetry.SpanAttrOperation, req.Operation),
		))
	defer span.End()

	if req.TenantID == nil || *req.TenantID == uuid.Nil {
		span.AddEvent("metering.skipped")
		_, err := invoke(ctx)
		return &MeterResult{Metered: false}, err
	}
	tenantID := *req.TenantID

	tier := g.tiers.Resolve(ctx, tenantID)
	span.AddEvent("tier.resolved", trace.WithAttributes(attribute.String("billing.tier", string(tier))))

	decision := g.quotas.Evaluate(ctx, tenantID, tier, req.Service, req.RequestedUnits)
	g.metrics.RecordDecision(ctx, string(req.Service), decision.Allowed)
	span.AddEvent("quota.evaluated", trace.WithAttributes(
		attribute.Bool("quota.allowed", decision.Allowed),
		attribute.Int64("quota.current_usage", decision.CurrentUsage),
	))
	if !decision.Allowed {
		return &MeterResult{Metered: true, Decision: &decision},
			NewQuotaExceededError(req.Service, decision)
	}

	consumed, err := invoke(ctx)
	if err != nil {
		// The provider call failed, so nothing billable happened.
		return &MeterResult{Metered: true, Decision: &decision}, err
	}

	units := consumed.UnitsUsed
	if units <= 0 {
		units = req.RequestedUnits
	}
	cost := g.estimateCost(req.Service, consumed, units)

	g.recorder.Record(ctx, RecordInput{
		TenantID:           tenantID,
		UserID:             req.UserID,
		Service:            req.Service,
		Operation:          req.Operation,
		TokensUsed:         consumed.TokensUsed,
		UnitsUsed:          units,
		EstimatedCostCents: cost,
		Metadata:           consumed.Metadata,
	})
	g.metrics.RecordUsage(ctx, string(req.Service), units, cost)
	span.AddEvent("usage.recorded", trace.WithAttributes(
		attribute.Int64(telemetry.SpanAttrUnits, units),
		attribute.Int64(telemetry.SpanAttrCostCents, cost),
	))

	return &MeterResult{Metered: true, Decision: &decision, CostCents: cost}, nil
}

// estimateCost prices actual consumption. LLM completions are priced by
// tokens; everything else by units.
func (g *Governor) estimateCost(service metering.MeteredService, consumed Consumption, units int64) int64 {
	if service == metering.ServiceLLMCompletion {
		return metering.CostForTokens(consumed.TokensUsed)
	}
	return metering.EstimatedCost(service, units)
}
