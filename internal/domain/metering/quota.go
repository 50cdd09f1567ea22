package metering

import (
	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/shared"
)

// UnlimitedQuota is the sentinel limit used when no ceiling applies,
// either because no quota row exists for a (tier, service) pair or
// because the evaluator failed open after a ledger error.
const UnlimitedQuota int64 = 1 << 62

// QuotaLimit is the per-(tier, service) ceiling on units consumable per
// billing period. Limits are configuration owned by the billing plan
// catalog; this subsystem only reads them.
type QuotaLimit struct {
	shared.BaseEntity
	Tier             billing.Tier   // Billing tier the limit applies to
	Service          MeteredService // Metered service being limited
	MonthlyUnitLimit int64          // Units per calendar month (-1 = unlimited)
	IsActive         bool
}

// NewQuotaLimit creates a new quota limit with validation
func NewQuotaLimit(tier billing.Tier, service MeteredService, monthlyLimit int64) (*QuotaLimit, error) {
	if tier == "" {
		return nil, shared.NewDomainError("INVALID_TIER", "Tier cannot be empty")
	}
	if !service.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Invalid metered service")
	}
	if monthlyLimit < -1 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Limit must be -1 (unlimited) or non-negative")
	}

	return &QuotaLimit{
		BaseEntity:       shared.NewBaseEntity(),
		Tier:             tier,
		Service:          service,
		MonthlyUnitLimit: monthlyLimit,
		IsActive:         true,
	}, nil
}

// IsUnlimited returns true if the limit imposes no ceiling
func (q *QuotaLimit) IsUnlimited() bool {
	return q.MonthlyUnitLimit == -1
}

// EffectiveLimit returns the limit as a comparable unit count
func (q *QuotaLimit) EffectiveLimit() int64 {
	if q.IsUnlimited() {
		return UnlimitedQuota
	}
	return q.MonthlyUnitLimit
}

// QuotaDecision is the transient result of evaluating a requested spend
// against a tenant's quota. It is constructed per evaluation and
// discarded once the caller has branched on Allowed.
type QuotaDecision struct {
	Allowed      bool           `json:"allowed"`
	Service      MeteredService `json:"service"`
	CurrentUsage int64          `json:"current_usage"`
	Limit        int64          `json:"limit"`
	Remaining    int64          `json:"remaining"`
	PercentUsed  float64        `json:"percentage_used"`
}

// Decide evaluates requested units against a limit and current usage.
// Pure arithmetic: allowed iff current + requested stays within the
// limit, remaining clamped at zero.
func Decide(service MeteredService, limit, currentUsage, requestedUnits int64) QuotaDecision {
	d := QuotaDecision{
		Service:      service,
		CurrentUsage: currentUsage,
		Limit:        limit,
		Allowed:      currentUsage+requestedUnits <= limit,
	}

	d.Remaining = limit - currentUsage
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if limit > 0 && limit != UnlimitedQuota {
		d.PercentUsed = float64(currentUsage) / float64(limit) * 100
	}

	return d
}

// UnlimitedDecision returns an allow-all decision with the sentinel
// limit. This is what the evaluator hands back when it fails open.
func UnlimitedDecision(service MeteredService) QuotaDecision {
	return QuotaDecision{
		Allowed:   true,
		Service:   service,
		Limit:     UnlimitedQuota,
		Remaining: UnlimitedQuota,
	}
}

// DeniedDecision returns a deny-all decision with zeroed telemetry,
// used when the evaluator is configured to fail closed.
func DeniedDecision(service MeteredService) QuotaDecision {
	return QuotaDecision{
		Allowed: false,
		Service: service,
	}
}
