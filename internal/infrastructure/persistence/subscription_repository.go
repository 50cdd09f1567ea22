package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionModel is the GORM model for tenant subscriptions.
// Subscriptions are written by the payment webhook flow; this service
// only reads them.
type SubscriptionModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID `gorm:"type:uuid;index;not null"`
	Tier               string    `gorm:"type:varchar(50);not null"`
	Status             string    `gorm:"type:varchar(20);not null"`
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToEntity converts the model to a domain entity
func (m *SubscriptionModel) ToEntity() *billing.Subscription {
	return &billing.Subscription{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		TenantID:           m.TenantID,
		Tier:               billing.Tier(m.Tier),
		Status:             billing.SubscriptionStatus(m.Status),
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
	}
}

// SubscriptionRepository implements billing.SubscriptionRepository
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// FindLatestActiveByTenant retrieves the most recently created active
// subscription for a tenant
func (r *SubscriptionRepository) FindLatestActiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var model SubscriptionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status IN ?", []string{
			string(billing.SubscriptionStatusActive),
			string(billing.SubscriptionStatusTrialing),
		}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// Ensure SubscriptionRepository implements the interface
var _ billing.SubscriptionRepository = (*SubscriptionRepository)(nil)
