package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultSnapshotTTL = time.Minute

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisQuotaStatusCache implements metering.QuotaStatusCache using
// Redis. Suitable for distributed deployments where dashboard reads
// should share one snapshot per tenant.
type RedisQuotaStatusCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	logger     *zap.Logger
}

// RedisQuotaStatusCacheOption is a functional option for configuring the cache
type RedisQuotaStatusCacheOption func(*RedisQuotaStatusCache)

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisQuotaStatusCacheOption {
	return func(c *RedisQuotaStatusCache) {
		c.logger = logger
	}
}

// NewRedisQuotaStatusCache creates a new Redis-based quota snapshot cache
func NewRedisQuotaStatusCache(cfg RedisConfig, opts ...RedisQuotaStatusCacheOption) (*RedisQuotaStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisQuotaStatusCache{
		client:     client,
		ownsClient: true,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisQuotaStatusCacheWithClient creates a cache with an existing
// Redis client. The caller retains ownership of the client and is
// responsible for closing it.
func NewRedisQuotaStatusCacheWithClient(client *redis.Client, opts ...RedisQuotaStatusCacheOption) *RedisQuotaStatusCache {
	cache := &RedisQuotaStatusCache{
		client:     client,
		ownsClient: false,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// snapshotKey generates the cache key for a tenant's quota snapshot
func (c *RedisQuotaStatusCache) snapshotKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("metering:quotas:%s", tenantID.String())
}

// GetStatuses retrieves a tenant's quota snapshot from cache
func (c *RedisQuotaStatusCache) GetStatuses(ctx context.Context, tenantID uuid.UUID) ([]metering.QuotaStatus, error) {
	key := c.snapshotKey(tenantID)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for quota snapshot", zap.String("tenant_id", tenantID.String()))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to get quota snapshot from cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get quota snapshot from cache: %w", err)
	}

	var statuses []metering.QuotaStatus
	if err := json.Unmarshal(data, &statuses); err != nil {
		c.logger.Error("Failed to unmarshal quota snapshot",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal quota snapshot: %w", err)
	}

	c.logger.Debug("Cache hit for quota snapshot", zap.String("tenant_id", tenantID.String()))
	return statuses, nil
}

// SetStatuses stores a tenant's quota snapshot in cache with a TTL
func (c *RedisQuotaStatusCache) SetStatuses(ctx context.Context, tenantID uuid.UUID, statuses []metering.QuotaStatus, ttl time.Duration) error {
	if statuses == nil {
		return nil
	}
	if ttl == 0 {
		ttl = defaultSnapshotTTL
	}

	key := c.snapshotKey(tenantID)

	data, err := json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("failed to marshal quota snapshot: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Error("Failed to set quota snapshot in cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set quota snapshot in cache: %w", err)
	}

	c.logger.Debug("Cached quota snapshot",
		zap.String("tenant_id", tenantID.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// InvalidateTenant removes a tenant's quota snapshot from cache
func (c *RedisQuotaStatusCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	key := c.snapshotKey(tenantID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete quota snapshot from cache",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to delete quota snapshot from cache: %w", err)
	}

	c.logger.Debug("Deleted quota snapshot from cache", zap.String("tenant_id", tenantID.String()))
	return nil
}

// Close releases the Redis client if this cache owns it
func (c *RedisQuotaStatusCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisQuotaStatusCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisQuotaStatusCache implements QuotaStatusCache
var _ metering.QuotaStatusCache = (*RedisQuotaStatusCache)(nil)
