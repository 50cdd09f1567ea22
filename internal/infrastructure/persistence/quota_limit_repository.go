package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaLimitModel is the GORM model for the quota catalog
type QuotaLimitModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tier             string    `gorm:"type:varchar(50);uniqueIndex:idx_quota_limits_tier_service;not null"`
	Service          string    `gorm:"type:varchar(50);uniqueIndex:idx_quota_limits_tier_service;not null"`
	MonthlyUnitLimit int64     `gorm:"not null"`
	IsActive         bool      `gorm:"not null;default:true"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for the model
func (QuotaLimitModel) TableName() string {
	return "quota_limits"
}

// ToEntity converts the model to a domain entity
func (m *QuotaLimitModel) ToEntity() *metering.QuotaLimit {
	return &metering.QuotaLimit{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		Tier:             billing.Tier(m.Tier),
		Service:          metering.MeteredService(m.Service),
		MonthlyUnitLimit: m.MonthlyUnitLimit,
		IsActive:         m.IsActive,
	}
}

// QuotaLimitRepository implements metering.QuotaLimitRepository
type QuotaLimitRepository struct {
	db *gorm.DB
}

// NewQuotaLimitRepository creates a new quota limit repository
func NewQuotaLimitRepository(db *gorm.DB) *QuotaLimitRepository {
	return &QuotaLimitRepository{db: db}
}

// FindByTierAndService retrieves the active limit for a tier and service
func (r *QuotaLimitRepository) FindByTierAndService(ctx context.Context, tier billing.Tier, service metering.MeteredService) (*metering.QuotaLimit, error) {
	var model QuotaLimitModel
	err := r.db.WithContext(ctx).
		Where("tier = ?", string(tier)).
		Where("service = ?", string(service)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// FindByTier retrieves all active limits for a tier
func (r *QuotaLimitRepository) FindByTier(ctx context.Context, tier billing.Tier) ([]*metering.QuotaLimit, error) {
	var models []QuotaLimitModel
	err := r.db.WithContext(ctx).
		Where("tier = ?", string(tier)).
		Where("is_active = ?", true).
		Order("service ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	limits := make([]*metering.QuotaLimit, len(models))
	for i, model := range models {
		limits[i] = model.ToEntity()
	}
	return limits, nil
}

// Ensure QuotaLimitRepository implements the interface
var _ metering.QuotaLimitRepository = (*QuotaLimitRepository)(nil)
