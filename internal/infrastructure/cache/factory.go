package cache

import (
	"fmt"

	"github.com/fieldline/backend/internal/domain/metering"
	"github.com/fieldline/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// QuotaStatusCacheFactory creates quota snapshot caches based on configuration
type QuotaStatusCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// QuotaStatusCacheFactoryOption is a functional option for configuring the factory
type QuotaStatusCacheFactoryOption func(*QuotaStatusCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) QuotaStatusCacheFactoryOption {
	return func(f *QuotaStatusCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory
// cache when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) QuotaStatusCacheFactoryOption {
	return func(f *QuotaStatusCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewQuotaStatusCacheFactory creates a new factory
func NewQuotaStatusCacheFactory(cfg config.RedisConfig, opts ...QuotaStatusCacheFactoryOption) *QuotaStatusCacheFactory {
	f := &QuotaStatusCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based quota snapshot cache
func (f *QuotaStatusCacheFactory) CreateRedisCache() (metering.QuotaStatusCache, error) {
	cache, err := NewRedisQuotaStatusCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, WithCacheLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis quota snapshot cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory quota snapshot cache
func (f *QuotaStatusCacheFactory) CreateInMemoryCache() metering.QuotaStatusCache {
	return NewInMemoryQuotaStatusCache(WithInMemoryLogger(f.logger))
}

// CreateCache creates a quota snapshot cache, trying Redis first and
// falling back to in-memory when Redis is unavailable and fallback is
// allowed. Snapshots are advisory dashboard data, so a process-local
// fallback only risks briefly stale meters.
func (f *QuotaStatusCacheFactory) CreateCache() (metering.QuotaStatusCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis quota snapshot cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for quota snapshot cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory quota snapshot cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
