package metering

import (
	"context"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordInput describes one completed paid call to append to the ledger
type RecordInput struct {
	TenantID           uuid.UUID
	UserID             *uuid.UUID
	Service            metering.MeteredService
	Operation          string
	TokensUsed         int64
	UnitsUsed          int64
	EstimatedCostCents int64
	Metadata           map[string]any
}

// UsageRecorder appends immutable usage events after successful paid
// calls. Recording is strictly best-effort: the paid call already
// happened and its result belongs to the caller, so every failure here
// is logged and swallowed. A lost event means undercounted usage, which
// is the accepted trade-off; it must never fail or retry inside the
// request path.
type UsageRecorder struct {
	events metering.UsageEventRepository
	logger *zap.Logger
}

// NewUsageRecorder creates a new UsageRecorder
func NewUsageRecorder(events metering.UsageEventRepository, logger *zap.Logger) *UsageRecorder {
	return &UsageRecorder{
		events: events,
		logger: logger,
	}
}

// Record appends exactly one usage event. Each call produces its own
// ledger row; there is no aggregation or dedup at this layer.
func (r *UsageRecorder) Record(ctx context.Context, input RecordInput) {
	event, err := metering.NewUsageEvent(input.TenantID, input.Service, input.Operation, input.UnitsUsed)
	if err != nil {
		r.logger.Error("Dropping unrecordable usage event",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("service", string(input.Service)),
			zap.String("operation", input.Operation),
			zap.Error(err))
		return
	}

	if input.UserID != nil {
		event.WithUser(*input.UserID)
	}
	event.WithTokens(input.TokensUsed).WithCost(input.EstimatedCostCents)
	for key, value := range input.Metadata {
		event.WithMetadata(key, value)
	}

	if err := r.events.Save(ctx, event); err != nil {
		r.logger.Error("Failed to append usage event",
			zap.String("tenant_id", input.TenantID.String()),
			zap.String("service", string(input.Service)),
			zap.String("operation", input.Operation),
			zap.Int64("units_used", input.UnitsUsed),
			zap.Error(err))
		return
	}

	r.logger.Debug("Usage event recorded",
		zap.String("tenant_id", input.TenantID.String()),
		zap.String("service", string(input.Service)),
		zap.String("operation", input.Operation),
		zap.Int64("units_used", input.UnitsUsed),
		zap.Int64("estimated_cost_cents", input.EstimatedCostCents))
}
