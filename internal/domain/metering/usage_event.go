package metering

import (
	"time"

	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UsageEvent is an immutable record of a single completed paid-API call.
// Once written, usage events are never updated or deleted - they are the
// audit trail that quota evaluation and billing analytics are built on.
// Events are created only after the paid call succeeded, never before.
type UsageEvent struct {
	shared.BaseEntity
	TenantID           uuid.UUID      // The tenant whose quota was spent
	UserID             *uuid.UUID     // User who triggered the call (optional)
	Service            MeteredService // Which metered service was consumed
	Operation          string         // Calling operation, e.g. "chat.completion"
	TokensUsed         int64          // Actual tokens reported by the provider (LLM only)
	UnitsUsed          int64          // Actual quota units consumed
	EstimatedCostCents int64          // Post-call cost estimate in cents
	Metadata           Metadata       // Service-specific context (model name, truncated ids)
}

// Metadata holds additional context about a usage event
type Metadata map[string]any

// NewUsageEvent creates a new usage event with validation
func NewUsageEvent(
	tenantID uuid.UUID,
	service MeteredService,
	operation string,
	unitsUsed int64,
) (*UsageEvent, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !service.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Invalid metered service")
	}
	if operation == "" {
		return nil, shared.NewDomainError("INVALID_OPERATION", "Operation name cannot be empty")
	}
	if unitsUsed < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Units used cannot be negative")
	}

	return &UsageEvent{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		Service:    service,
		Operation:  operation,
		UnitsUsed:  unitsUsed,
		Metadata:   make(Metadata),
	}, nil
}

// WithUser sets the user who triggered the call
func (e *UsageEvent) WithUser(userID uuid.UUID) *UsageEvent {
	e.UserID = &userID
	return e
}

// WithTokens sets the actual token count reported by the provider
func (e *UsageEvent) WithTokens(tokens int64) *UsageEvent {
	if tokens > 0 {
		e.TokensUsed = tokens
	}
	return e
}

// WithCost sets the post-call cost estimate in cents
func (e *UsageEvent) WithCost(cents int64) *UsageEvent {
	if cents > 0 {
		e.EstimatedCostCents = cents
	}
	return e
}

// WithMetadata adds a metadata entry to the usage event
func (e *UsageEvent) WithMetadata(key string, value any) *UsageEvent {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata[key] = value
	return e
}

// PeriodBounds returns the calendar-month billing period containing t.
// Both the quota evaluator's aggregation window and the ledger's
// timestamps use this bucketing, so the two always agree.
func PeriodBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// CurrentPeriod returns the billing period containing the current time
func CurrentPeriod() (time.Time, time.Time) {
	return PeriodBounds(time.Now())
}
