package domain

import (
	"context"
	"time"
)

// Cache defines the interface for memoizing derived analytics between
// runs. Keys are dataset fingerprints; an unchanged dataset produces a
// cache hit and the pipeline skips recomputation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// GetReport retrieves a cached analytics report.
	GetReport(ctx context.Context, fingerprint string) (*AnalyticsReport, error)

	// SetReport caches an analytics report under a dataset fingerprint.
	SetReport(ctx context.Context, fingerprint string, report *AnalyticsReport, ttl time.Duration) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// AnalyticsReport bundles everything the pipeline derives from one
// dataset. It is the renderer/exporter hand-off and the cache value.
type AnalyticsReport struct {
	Fingerprint string     `json:"fingerprint"`
	Metrics     *Metrics   `json:"metrics"`
	RFM         *RFMReport `json:"rfm"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type" yaml:"type"`

	// Local LRU cache settings
	LocalMaxSize int           `json:"localMaxSize" yaml:"local_max_size"`
	LocalTTL     time.Duration `json:"localTtl" yaml:"local_ttl"`

	// Redis settings
	RedisAddr     string `json:"redisAddr" yaml:"redis_addr"`
	RedisPassword string `json:"-" yaml:"redis_password"`
	RedisDB       int    `json:"redisDb" yaml:"redis_db"`
}
