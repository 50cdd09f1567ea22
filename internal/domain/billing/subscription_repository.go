package billing

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionRepository defines the read surface the tier resolver
// depends on. Subscription writes happen in the payment webhook flow,
// outside this service.
type SubscriptionRepository interface {
	// FindLatestActiveByTenant retrieves the most recently created
	// active subscription for a tenant. Returns shared.ErrNotFound when
	// the tenant has no active subscription.
	FindLatestActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
}
