package metering

import (
	"context"
	"time"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// UsageEventRepository persists and queries the append-only usage
// ledger. There are deliberately no update or delete operations.
type UsageEventRepository interface {
	// Save appends a new usage event to the ledger
	Save(ctx context.Context, event *UsageEvent) error

	// FindByTenant retrieves usage events for a tenant, newest first
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter UsageEventFilter) ([]*UsageEvent, error)

	// CountByTenant counts usage events matching the filter
	CountByTenant(ctx context.Context, tenantID uuid.UUID, filter UsageEventFilter) (int64, error)

	// SumUnitsForPeriod totals units consumed by a tenant for one service
	// within a time window. This is the single aggregation the quota
	// evaluator depends on.
	SumUnitsForPeriod(ctx context.Context, tenantID uuid.UUID, service MeteredService, start, end time.Time) (int64, error)

	// SumCostForPeriod totals estimated cost in cents across all services
	// for a tenant within a time window
	SumCostForPeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (int64, error)
}

// UsageEventFilter defines filtering options for ledger queries
type UsageEventFilter struct {
	Service   *MeteredService // Filter by metered service
	Operation string          // Filter by calling operation
	StartTime *time.Time
	EndTime   *time.Time
	Page      int // 1-based
	PageSize  int
}

// DefaultUsageEventFilter returns a filter with default pagination
func DefaultUsageEventFilter() UsageEventFilter {
	return UsageEventFilter{
		Page:     1,
		PageSize: 50,
	}
}

// QuotaLimitRepository reads the per-(tier, service) quota catalog.
// Limits are managed elsewhere; this subsystem never writes them.
type QuotaLimitRepository interface {
	// FindByTierAndService retrieves the active limit for a tier and service.
	// Returns shared.ErrNotFound when no limit row exists.
	FindByTierAndService(ctx context.Context, tier billing.Tier, service MeteredService) (*QuotaLimit, error)

	// FindByTier retrieves all active limits for a tier
	FindByTier(ctx context.Context, tier billing.Tier) ([]*QuotaLimit, error)
}
