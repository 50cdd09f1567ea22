package metering

import (
	"context"
	"errors"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TierResolver maps a tenant to its current billing tier. Resolution is
// best-effort: any lookup failure degrades to the default tier instead
// of failing the caller's request, so a billing outage never takes the
// paid integrations down with it.
type TierResolver struct {
	subscriptions billing.SubscriptionRepository
	logger        *zap.Logger
}

// NewTierResolver creates a new TierResolver
func NewTierResolver(subscriptions billing.SubscriptionRepository, logger *zap.Logger) *TierResolver {
	return &TierResolver{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// Resolve returns the tier of the tenant's most recent active
// subscription. Tenants without one, and lookups that error, resolve to
// billing.DefaultTier. The result is never cached; every call reflects
// the subscription table as of now.
func (r *TierResolver) Resolve(ctx context.Context, tenantID uuid.UUID) billing.Tier {
	if tenantID == uuid.Nil {
		return billing.DefaultTier
	}

	sub, err := r.subscriptions.FindLatestActiveByTenant(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("Subscription lookup failed, using default tier",
				zap.String("tenant_id", tenantID.String()),
				zap.String("default_tier", string(billing.DefaultTier)),
				zap.Error(err))
		}
		return billing.DefaultTier
	}

	return sub.EffectiveTier()
}
