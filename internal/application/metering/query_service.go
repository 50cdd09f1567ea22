package metering

import (
	"context"
	"time"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUsagePageSize = 200

// UsagePage is one page of a tenant's usage history, newest first
type UsagePage struct {
	Events     []*metering.UsageEvent `json:"events"`
	TotalCount int64                  `json:"total_count"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
}

// ServiceUsage is the per-service slice of a usage summary
type ServiceUsage struct {
	Service     metering.MeteredService `json:"service"`
	DisplayName string                  `json:"display_name"`
	QuotaUnit   string                  `json:"quota_unit"`
	UnitsUsed   int64                   `json:"units_used"`
}

// UsageSummary aggregates a tenant's consumption for the current
// calendar month
type UsageSummary struct {
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	TotalEvents    int64          `json:"total_events"`
	TotalCostCents int64          `json:"total_cost_cents"`
	Services       []ServiceUsage `json:"services"`
}

// UsageQueryService serves dashboard reads over the usage ledger and
// quota catalog. Quota snapshots may be served from cache; quota
// enforcement never goes through this service.
type UsageQueryService struct {
	tiers    *TierResolver
	limits   metering.QuotaLimitRepository
	events   metering.UsageEventRepository
	cache    metering.QuotaStatusCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewUsageQueryService creates a new usage query service. The cache is
// optional; pass nil to read the ledger on every call.
func NewUsageQueryService(
	tiers *TierResolver,
	limits metering.QuotaLimitRepository,
	events metering.UsageEventRepository,
	cache metering.QuotaStatusCache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *UsageQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UsageQueryService{
		tiers:    tiers,
		limits:   limits,
		events:   events,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// QuotaStatuses returns the tenant's quota snapshot for the current
// period, one entry per active limit on their tier
func (s *UsageQueryService) QuotaStatuses(ctx context.Context, tenantID uuid.UUID) ([]metering.QuotaStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "metering.quota_statuses",
		telemetry.Attr(telemetry.SpanAttrTenantID, tenantID.String()))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.GetStatuses(ctx, tenantID)
		if err != nil {
			s.logger.Warn("Quota snapshot cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		} else if cached != nil {
			telemetry.AddEvent(span, "snapshot.cache_hit")
			return cached, nil
		}
	}

	tier := s.tiers.Resolve(ctx, tenantID)
	limits, err := s.limits.FindByTier(ctx, tier)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	periodStart, periodEnd := metering.CurrentPeriod()
	statuses := make([]metering.QuotaStatus, 0, len(limits))
	for _, limit := range limits {
		usage, err := s.events.SumUnitsForPeriod(ctx, tenantID, limit.Service, periodStart, periodEnd)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		statuses = append(statuses, metering.NewQuotaStatus(limit, usage))
	}

	if s.cache != nil {
		if err := s.cache.SetStatuses(ctx, tenantID, statuses, s.cacheTTL); err != nil {
			s.logger.Warn("Quota snapshot cache write failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
	}
	return statuses, nil
}

// UsageHistory returns one page of the tenant's usage events, newest
// first, with the total count for pagination
func (s *UsageQueryService) UsageHistory(ctx context.Context, tenantID uuid.UUID, filter metering.UsageEventFilter) (*UsagePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = metering.DefaultUsageEventFilter().PageSize
	}
	if filter.PageSize > maxUsagePageSize {
		filter.PageSize = maxUsagePageSize
	}

	events, err := s.events.FindByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.events.CountByTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	return &UsagePage{
		Events:     events,
		TotalCount: total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
	}, nil
}

// UsageSummary aggregates the tenant's consumption for the current
// calendar month across all metered services
func (s *UsageQueryService) UsageSummary(ctx context.Context, tenantID uuid.UUID) (*UsageSummary, error) {
	periodStart, periodEnd := metering.CurrentPeriod()

	totalCost, err := s.events.SumCostForPeriod(ctx, tenantID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	totalEvents, err := s.events.CountByTenant(ctx, tenantID, metering.UsageEventFilter{
		StartTime: &periodStart,
		EndTime:   &periodEnd,
	})
	if err != nil {
		return nil, err
	}

	services := make([]ServiceUsage, 0, len(metering.AllMeteredServices()))
	for _, service := range metering.AllMeteredServices() {
		units, err := s.events.SumUnitsForPeriod(ctx, tenantID, service, periodStart, periodEnd)
		if err != nil {
			return nil, err
		}
		services = append(services, ServiceUsage{
			Service:     service,
			DisplayName: service.DisplayName(),
			QuotaUnit:   service.QuotaUnit(),
			UnitsUsed:   units,
		})
	}

	return &UsageSummary{
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		TotalEvents:    totalEvents,
		TotalCostCents: totalCost,
		Services:       services,
	}, nil
}
