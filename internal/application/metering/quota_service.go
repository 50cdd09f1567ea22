package metering

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotaExceededError is returned when a metered call would push a tenant
// past its monthly limit. It carries the full decision so handlers can
// surface usage telemetry alongside the 429.
type QuotaExceededError struct {
	Service  metering.MeteredService
	Decision metering.QuotaDecision
	Message  string
}

// Error implements the error interface
func (e *QuotaExceededError) Error() string {
	return e.Message
}

// HTTPStatusCode returns 429 Too Many Requests
func (e *QuotaExceededError) HTTPStatusCode() int {
	return http.StatusTooManyRequests
}

// NewQuotaExceededError creates a new QuotaExceededError
func NewQuotaExceededError(service metering.MeteredService, decision metering.QuotaDecision) *QuotaExceededError {
	return &QuotaExceededError{
		Service:  service,
		Decision: decision,
		Message: fmt.Sprintf(
			"Monthly %s quota exceeded: %d of %d %s used",
			service.DisplayName(), decision.CurrentUsage, decision.Limit, service.QuotaUnit(),
		),
	}
}

// QuotaServiceConfig contains configuration for QuotaService
type QuotaServiceConfig struct {
	// FailOpen controls what happens when the evaluator cannot reach the
	// ledger or the limit catalog: true allows the call (treating the
	// quota as unlimited), false denies it. Defaults to true so that a
	// database outage degrades billing accuracy, not the product.
	FailOpen bool
}

// DefaultQuotaServiceConfig returns default configuration
func DefaultQuotaServiceConfig() QuotaServiceConfig {
	return QuotaServiceConfig{FailOpen: true}
}

// QuotaService evaluates whether a tenant may consume more of a metered
// service this calendar month. It is read-only: evaluation never writes
// to the ledger, and the check is a soft limit. Two concurrent calls can
// both pass with one unit remaining; the overshoot is bounded by request
// concurrency and accepted.
type QuotaService struct {
	limits   metering.QuotaLimitRepository
	usage    metering.UsageEventRepository
	logger   *zap.Logger
	failOpen bool
}

// NewQuotaService creates a new QuotaService
func NewQuotaService(
	limits metering.QuotaLimitRepository,
	usage metering.UsageEventRepository,
	logger *zap.Logger,
	config QuotaServiceConfig,
) *QuotaService {
	return &QuotaService{
		limits:   limits,
		usage:    usage,
		logger:   logger,
		failOpen: config.FailOpen,
	}
}

// Evaluate decides whether tenantID may consume requestedUnits more of
// service under the given tier. The decision costs at most one limit
// lookup and one aggregation query. Missing limit rows mean the tier is
// not limited for that service; infrastructure errors resolve per the
// fail-open policy. Evaluate never returns an error.
func (s *QuotaService) Evaluate(
	ctx context.Context,
	tenantID uuid.UUID,
	tier billing.Tier,
	service metering.MeteredService,
	requestedUnits int64,
) metering.QuotaDecision {
	if requestedUnits <= 0 {
		requestedUnits = 1
	}

	limit, err := s.limits.FindByTierAndService(ctx, tier, service)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("No quota limit configured, allowing",
				zap.String("tenant_id", tenantID.String()),
				zap.String("tier", string(tier)),
				zap.String("service", string(service)))
			return metering.UnlimitedDecision(service)
		}
		return s.degradedDecision(tenantID, service, "limit lookup failed", err)
	}

	if !limit.IsActive || limit.IsUnlimited() {
		return metering.UnlimitedDecision(service)
	}

	start, end := metering.CurrentPeriod()
	current, err := s.usage.SumUnitsForPeriod(ctx, tenantID, service, start, end)
	if err != nil {
		return s.degradedDecision(tenantID, service, "usage aggregation failed", err)
	}

	decision := metering.Decide(service, limit.EffectiveLimit(), current, requestedUnits)
	if !decision.Allowed {
		s.logger.Info("Quota check denied",
			zap.String("tenant_id", tenantID.String()),
			zap.String("tier", string(tier)),
			zap.String("service", string(service)),
			zap.Int64("current_usage", decision.CurrentUsage),
			zap.Int64("limit", decision.Limit),
			zap.Int64("requested", requestedUnits))
	}
	return decision
}

// degradedDecision applies the fail-open policy when the evaluator
// cannot produce a real answer.
func (s *QuotaService) degradedDecision(tenantID uuid.UUID, service metering.MeteredService, reason string, err error) metering.QuotaDecision {
	if s.failOpen {
		s.logger.Warn("Quota evaluation degraded, failing open",
			zap.String("tenant_id", tenantID.String()),
			zap.String("service", string(service)),
			zap.String("reason", reason),
			zap.Error(err))
		return metering.UnlimitedDecision(service)
	}

	s.logger.Error("Quota evaluation degraded, failing closed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("service", string(service)),
		zap.String("reason", reason),
		zap.Error(err))
	return metering.DeniedDecision(service)
}
