package metering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QuotaStatus is a read model describing how much of a quota a tenant
// has consumed in the current period. It feeds the usage dashboard and
// is never consulted on the enforcement path.
type QuotaStatus struct {
	Service      MeteredService `json:"service"`
	DisplayName  string         `json:"display_name"`
	QuotaUnit    string         `json:"quota_unit"`
	Limit        int64          `json:"limit"`
	CurrentUsage int64          `json:"current_usage"`
	Remaining    int64          `json:"remaining"`
	PercentUsed  float64        `json:"percentage_used"`
	Unlimited    bool           `json:"unlimited"`
}

// NewQuotaStatus builds a status snapshot from a limit and the units
// consumed so far this period
func NewQuotaStatus(limit *QuotaLimit, currentUsage int64) QuotaStatus {
	status := QuotaStatus{
		Service:      limit.Service,
		DisplayName:  limit.Service.DisplayName(),
		QuotaUnit:    limit.Service.QuotaUnit(),
		Limit:        limit.MonthlyUnitLimit,
		CurrentUsage: currentUsage,
		Unlimited:    limit.IsUnlimited(),
	}

	if status.Unlimited {
		return status
	}

	status.Remaining = limit.MonthlyUnitLimit - currentUsage
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if limit.MonthlyUnitLimit > 0 {
		status.PercentUsed = float64(currentUsage) / float64(limit.MonthlyUnitLimit) * 100
	}
	return status
}

// QuotaStatusCache caches per-tenant quota snapshots for dashboard
// reads. A miss is (nil, nil); implementations must never be placed in
// front of quota enforcement, which always reads the ledger directly.
type QuotaStatusCache interface {
	// GetStatuses retrieves the cached snapshot for a tenant
	GetStatuses(ctx context.Context, tenantID uuid.UUID) ([]QuotaStatus, error)

	// SetStatuses stores a snapshot with a TTL
	SetStatuses(ctx context.Context, tenantID uuid.UUID, statuses []QuotaStatus, ttl time.Duration) error

	// InvalidateTenant drops the cached snapshot for a tenant
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error

	// Close releases any resources held by the cache
	Close() error
}
