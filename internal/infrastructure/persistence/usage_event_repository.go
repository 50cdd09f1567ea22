package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageEventModel is the GORM model for the usage ledger. Rows are
// insert-only; there are no update paths on this table.
type UsageEventModel struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID  `gorm:"type:uuid;index:idx_usage_events_tenant_service_created;not null"`
	UserID             *uuid.UUID `gorm:"type:uuid"`
	Service            string     `gorm:"type:varchar(50);index:idx_usage_events_tenant_service_created;not null"`
	Operation          string     `gorm:"type:varchar(100);not null"`
	TokensUsed         int64      `gorm:"not null;default:0"`
	UnitsUsed          int64      `gorm:"not null;default:0"`
	EstimatedCostCents int64      `gorm:"not null;default:0"`
	Metadata           []byte     `gorm:"type:jsonb;default:'{}'"`
	CreatedAt          time.Time  `gorm:"index:idx_usage_events_tenant_service_created;autoCreateTime"`
}

// TableName returns the table name for the model
func (UsageEventModel) TableName() string {
	return "usage_events"
}

// ToEntity converts the model to a domain entity
func (m *UsageEventModel) ToEntity() *metering.UsageEvent {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &metering.UsageEvent{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		TenantID:           m.TenantID,
		UserID:             m.UserID,
		Service:            metering.MeteredService(m.Service),
		Operation:          m.Operation,
		TokensUsed:         m.TokensUsed,
		UnitsUsed:          m.UnitsUsed,
		EstimatedCostCents: m.EstimatedCostCents,
		Metadata:           metadata,
	}
}

// UsageEventModelFromEntity creates a model from a domain entity
func UsageEventModelFromEntity(e *metering.UsageEvent) *UsageEventModel {
	metadataBytes := []byte("{}")
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			metadataBytes = b
		}
	}

	return &UsageEventModel{
		ID:                 e.ID,
		TenantID:           e.TenantID,
		UserID:             e.UserID,
		Service:            string(e.Service),
		Operation:          e.Operation,
		TokensUsed:         e.TokensUsed,
		UnitsUsed:          e.UnitsUsed,
		EstimatedCostCents: e.EstimatedCostCents,
		Metadata:           metadataBytes,
		CreatedAt:          e.CreatedAt,
	}
}

// UsageEventRepository implements metering.UsageEventRepository
type UsageEventRepository struct {
	db *gorm.DB
}

// NewUsageEventRepository creates a new usage event repository
func NewUsageEventRepository(db *gorm.DB) *UsageEventRepository {
	return &UsageEventRepository{db: db}
}

// Save appends a new usage event to the ledger
func (r *UsageEventRepository) Save(ctx context.Context, event *metering.UsageEvent) error {
	model := UsageEventModelFromEntity(event)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByTenant retrieves usage events for a tenant, newest first
func (r *UsageEventRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID, filter metering.UsageEventFilter) ([]*metering.UsageEvent, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Where("tenant_id = ?", tenantID), filter).
		Order("created_at DESC")

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 1 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	var models []UsageEventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]*metering.UsageEvent, len(models))
	for i, model := range models {
		events[i] = model.ToEntity()
	}
	return events, nil
}

// CountByTenant counts usage events matching the filter
func (r *UsageEventRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, filter metering.UsageEventFilter) (int64, error) {
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&UsageEventModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumUnitsForPeriod totals units consumed by a tenant for one service
// within a time window
func (r *UsageEventRepository) SumUnitsForPeriod(ctx context.Context, tenantID uuid.UUID, service metering.MeteredService, start, end time.Time) (int64, error) {
	var result struct {
		Total int64
	}

	err := r.db.WithContext(ctx).
		Model(&UsageEventModel{}).
		Select("COALESCE(SUM(units_used), 0) as total").
		Where("tenant_id = ?", tenantID).
		Where("service = ?", string(service)).
		Where("created_at >= ?", start).
		Where("created_at <= ?", end).
		Scan(&result).Error
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// SumCostForPeriod totals estimated cost in cents across all services
// for a tenant within a time window
func (r *UsageEventRepository) SumCostForPeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (int64, error) {
	var result struct {
		Total int64
	}

	err := r.db.WithContext(ctx).
		Model(&UsageEventModel{}).
		Select("COALESCE(SUM(estimated_cost_cents), 0) as total").
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ?", start).
		Where("created_at <= ?", end).
		Scan(&result).Error
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

// applyFilter applies filter options shared by list and count queries
func (r *UsageEventRepository) applyFilter(query *gorm.DB, filter metering.UsageEventFilter) *gorm.DB {
	if filter.Service != nil {
		query = query.Where("service = ?", string(*filter.Service))
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	return query
}

// Ensure UsageEventRepository implements the interface
var _ metering.UsageEventRepository = (*UsageEventRepository)(nil)
