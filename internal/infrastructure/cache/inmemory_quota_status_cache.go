package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryQuotaStatusCache implements metering.QuotaStatusCache using
// in-memory storage. Suitable for single-instance deployments and
// testing; snapshots are not shared across processes.
type InMemoryQuotaStatusCache struct {
	entries sync.Map // map[uuid.UUID]*snapshotEntry
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// snapshotEntry wraps a cached snapshot with its expiration time
type snapshotEntry struct {
	statuses  []metering.QuotaStatus
	expiresAt time.Time
}

func (e *snapshotEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryQuotaStatusCacheOption is a functional option for configuring the cache
type InMemoryQuotaStatusCacheOption func(*InMemoryQuotaStatusCache)

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryQuotaStatusCacheOption {
	return func(c *InMemoryQuotaStatusCache) {
		c.logger = logger
	}
}

// NewInMemoryQuotaStatusCache creates a new in-memory quota snapshot cache
func NewInMemoryQuotaStatusCache(opts ...InMemoryQuotaStatusCacheOption) *InMemoryQuotaStatusCache {
	cache := &InMemoryQuotaStatusCache{
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(cache)
	}

	go cache.cleanupExpired()

	return cache
}

// GetStatuses retrieves a tenant's quota snapshot from cache
func (c *InMemoryQuotaStatusCache) GetStatuses(ctx context.Context, tenantID uuid.UUID) ([]metering.QuotaStatus, error) {
	if value, ok := c.entries.Load(tenantID); ok {
		entry := value.(*snapshotEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.statuses, nil
		}
		c.entries.Delete(tenantID)
	}

	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// SetStatuses stores a tenant's quota snapshot with a TTL
func (c *InMemoryQuotaStatusCache) SetStatuses(ctx context.Context, tenantID uuid.UUID, statuses []metering.QuotaStatus, ttl time.Duration) error {
	if statuses == nil {
		return nil
	}
	if ttl == 0 {
		ttl = defaultSnapshotTTL
	}

	c.entries.Store(tenantID, &snapshotEntry{
		statuses:  statuses,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// InvalidateTenant removes a tenant's quota snapshot from cache
func (c *InMemoryQuotaStatusCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	c.entries.Delete(tenantID)
	return nil
}

// Close stops the background cleanup goroutine
func (c *InMemoryQuotaStatusCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns cache statistics
func (c *InMemoryQuotaStatusCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// cleanupExpired periodically removes expired entries from the cache
func (c *InMemoryQuotaStatusCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			var removed int
			c.entries.Range(func(key, value any) bool {
				if value.(*snapshotEntry).isExpired() {
					c.entries.Delete(key)
					removed++
				}
				return true
			})
			if removed > 0 {
				c.logger.Debug("Cleaned up expired quota snapshots", zap.Int("removed", removed))
			}
		}
	}
}

// Ensure InMemoryQuotaStatusCache implements QuotaStatusCache
var _ metering.QuotaStatusCache = (*InMemoryQuotaStatusCache)(nil)
