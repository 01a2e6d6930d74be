package core

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// The core defines the port; the data layer provides the Redis-backed
// implementation. Readers treat expired entries as absent; writers
// overwrite unconditionally on the same key.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// Well-known cache keys. Threshold configuration and tracker credentials
// are durable entries; stats keys are short-lived memoization.
const (
	CacheKeyThresholds   = "alert_thresholds"
	CacheKeyOAuthToken   = "clickup_oauth_token"
	CacheKeyOAuthTeamID  = "clickup_team_id"
	CacheKeyKPIMetrics   = "stats:kpi"
	CacheKeySystemHealth = "stats:system_health"
	CacheKeySyncLock     = "sync:clickup:lock"
)
