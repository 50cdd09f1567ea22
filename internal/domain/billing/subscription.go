package billing

import (
	"time"

	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Tier is the label of a tenant's billing plan. Quota ceilings are
// keyed by tier, so a tenant's effective limits follow its tier.
type Tier string

const (
	TierStarter    Tier = "starter"
	TierGrowth     Tier = "growth"
	TierScale      Tier = "scale"
	TierEnterprise Tier = "enterprise"
)

// DefaultTier is the baseline tier every tenant falls back to when no
// active subscription can be found. It carries the most restrictive
// quotas, which is the safe direction to degrade toward.
const DefaultTier = TierStarter

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is one of the known plans
func (t Tier) IsValid() bool {
	switch t {
	case TierStarter, TierGrowth, TierScale, TierEnterprise:
		return true
	}
	return false
}

// SubscriptionStatus represents the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is a tenant's purchase of a billing plan. The most
// recently created active subscription determines the tenant's tier.
type Subscription struct {
	shared.BaseEntity
	TenantID           uuid.UUID
	Tier               Tier
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// NewSubscription creates a new active subscription for a tenant
func NewSubscription(tenantID uuid.UUID, tier Tier, periodStart, periodEnd time.Time) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !tier.IsValid() {
		return nil, shared.NewDomainError("INVALID_TIER", "Invalid billing tier")
	}
	if periodEnd.Before(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end cannot be before period start")
	}

	return &Subscription{
		BaseEntity:         shared.NewBaseEntity(),
		TenantID:           tenantID,
		Tier:               tier,
		Status:             SubscriptionStatusActive,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
	}, nil
}

// IsActive returns true if the subscription currently entitles the
// tenant to its tier. Trialing subscriptions count as active.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}

// EffectiveTier returns the subscription's tier, defaulting when the
// stored label is empty or unknown.
func (s *Subscription) EffectiveTier() Tier {
	if s.Tier == "" || !s.Tier.IsValid() {
		return DefaultTier
	}
	return s.Tier
}
