package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/backend/internal/domain/billing"
	"github.com/fieldline/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SubscriptionModelSQLite is a SQLite-compatible version of
// SubscriptionModel for testing
type SubscriptionModelSQLite struct {
	ID                 string `gorm:"primaryKey"`
	TenantID           string `gorm:"index;not null"`
	Tier               string `gorm:"not null"`
	Status             string `gorm:"not null"`
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CreatedAt          time.Time
}

func (SubscriptionModelSQLite) TableName() string {
	return "subscriptions"
}

func setupSubscriptionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&SubscriptionModelSQLite{}))
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, tenantID uuid.UUID, tier billing.Tier, status billing.SubscriptionStatus, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&SubscriptionModelSQLite{
		ID:                 uuid.New().String(),
		TenantID:           tenantID.String(),
		Tier:               string(tier),
		Status:             string(status),
		CurrentPeriodStart: createdAt,
		CurrentPeriodEnd:   createdAt.AddDate(0, 1, 0),
		CreatedAt:          createdAt,
	}).Error)
}

func TestSubscriptionRepository_FindLatestActiveByTenant(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("returns the active subscription", func(t *testing.T) {
		tenantID := uuid.New()
		seedSubscription(t, db, tenantID, billing.TierGrowth, billing.SubscriptionStatusActive, now)

		sub, err := repo.FindLatestActiveByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, tenantID, sub.TenantID)
		assert.Equal(t, billing.TierGrowth, sub.Tier)
		assert.Equal(t, billing.SubscriptionStatusActive, sub.Status)
	})

	t.Run("prefers the most recently created", func(t *testing.T) {
		tenantID := uuid.New()
		seedSubscription(t, db, tenantID, billing.TierStarter, billing.SubscriptionStatusActive, now.Add(-48*time.Hour))
		seedSubscription(t, db, tenantID, billing.TierScale, billing.SubscriptionStatusActive, now)

		sub, err := repo.FindLatestActiveByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, billing.TierScale, sub.Tier)
	})

	t.Run("trialing counts as active", func(t *testing.T) {
		tenantID := uuid.New()
		seedSubscription(t, db, tenantID, billing.TierGrowth, billing.SubscriptionStatusTrialing, now)

		sub, err := repo.FindLatestActiveByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, billing.SubscriptionStatusTrialing, sub.Status)
	})

	t.Run("skips canceled and past due", func(t *testing.T) {
		tenantID := uuid.New()
		seedSubscription(t, db, tenantID, billing.TierScale, billing.SubscriptionStatusCanceled, now)
		seedSubscription(t, db, tenantID, billing.TierScale, billing.SubscriptionStatusPastDue, now.Add(time.Hour))
		seedSubscription(t, db, tenantID, billing.TierStarter, billing.SubscriptionStatusActive, now.Add(-24*time.Hour))

		sub, err := repo.FindLatestActiveByTenant(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, billing.TierStarter, sub.Tier)
	})

	t.Run("returns not found without a subscription", func(t *testing.T) {
		_, err := repo.FindLatestActiveByTenant(ctx, uuid.New())
		assert.Equal(t, shared.ErrNotFound, err)
	})
}
