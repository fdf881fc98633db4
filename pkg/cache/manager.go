package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRetention is how long a stale entry stays in Redis for revalidation.
const DefaultRetention = 24 * time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis     *redis.Client
	retention time.Duration
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Manager{
		redis:     redisClient,
		retention: DefaultRetention,
	}
}

// Get retrieves a cache entry by key. Stale entries are returned as well so
// the caller can revalidate them; check IsExpired before serving.
// Returns ErrCacheMiss if the key doesn't exist.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		CacheMisses.Inc()
	} else {
		CacheHits.WithLabelValues("redis").Inc()
	}

	return &entry, nil
}

// Set stores a cache entry. Redis keeps it until Expires plus the retention window.
// Entries without a validator are dropped as soon as they become stale.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if entry.CanRevalidate() {
		ttl += m.retention
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// UpdateTTL moves the expiry of an existing entry, e.g. after a 304 Not Modified.
func (m *Manager) UpdateTTL(ctx context.Context, key CacheKey, newExpires time.Time) error {
	entry, err := m.Get(ctx, key)
	if err != nil {
		return err
	}

	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}
