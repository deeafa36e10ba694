package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"openmusic/internal/metrics"
)

// BestEffort wraps a Store so that no failure reaches the caller: failed
// reads become misses and failed writes or deletes are logged and dropped.
type BestEffort struct {
	store  Store
	logger zerolog.Logger
}

// NewBestEffort returns a fail-open view of store.
func NewBestEffort(store Store, logger zerolog.Logger) *BestEffort {
	return &BestEffort{store: store, logger: logger}
}

// Get returns the cached value, or ok == false on a miss or any error.
func (b *BestEffort) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := b.store.Get(ctx, key)
	if err != nil {
		metrics.CacheErrors.WithLabelValues("get").Inc()
		b.logger.Warn().Err(err).Str("key", key).Msg("cache get failed, treating as miss")
		return "", false
	}
	return value, ok
}

// Set writes value under key, logging any failure.
func (b *BestEffort) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := b.store.Set(ctx, key, value, ttl); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		b.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes key, logging any failure. A failed delete leaves a stale
// entry that expires with its TTL.
func (b *BestEffort) Delete(ctx context.Context, key string) {
	if err := b.store.Delete(ctx, key); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		b.logger.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
	}
}
