// Package cache memoizes generated content per source in the key-value store.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/koios/flipdot-renderer/internal/storage"
	"github.com/koios/flipdot-renderer/pkg/models"
	"go.uber.org/zap"
)

// KeyPrefix is the storage prefix of every cache entry
const KeyPrefix = "source:"

// Key returns the storage key of a source's cached content
func Key(sourceID string) string {
	return KeyPrefix + sourceID
}

// Entry is the stored form of cached content
type Entry struct {
	Content  models.Content `json:"content"`
	CachedAt time.Time      `json:"cached_at"`
	TTLMS    int            `json:"ttl_ms"`
}

// Valid reports whether the entry is still fresh at now
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.CachedAt) < time.Duration(e.TTLMS)*time.Millisecond
}

// Stats counts cache outcomes since start
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Errors int64 `json:"errors"`
}

// ContentCache is a TTL cache of generated content. Storage failures are
// logged and reported as misses; they never fail the caller.
type ContentCache struct {
	store  storage.Store
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New creates a cache on top of store
func New(store storage.Store, logger *zap.Logger) *ContentCache {
	return &ContentCache{store: store, logger: logger}
}

// Get returns the cached content of a source if it is still fresh. Stale
// entries are deleted.
func (c *ContentCache) Get(ctx context.Context, sourceID string, now time.Time) (models.Content, bool) {
	key := Key(sourceID)

	var entry Entry
	err := c.store.GetJSON(ctx, key, &entry)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.misses.Add(1)
		return models.Content{}, false
	case err != nil:
		c.errors.Add(1)
		c.misses.Add(1)
		c.logger.Warn("Cache read failed, regenerating",
			zap.String("source_id", sourceID),
			zap.Error(err))
		return models.Content{}, false
	}

	if !entry.Valid(now) {
		c.misses.Add(1)
		if err := c.store.Delete(ctx, key); err != nil {
			c.errors.Add(1)
			c.logger.Warn("Failed to delete stale cache entry",
				zap.String("source_id", sourceID),
				zap.Error(err))
		}
		return models.Content{}, false
	}

	c.hits.Add(1)
	return entry.Content, true
}

// Set stores content for a source. Failures are logged and otherwise
// ignored.
func (c *ContentCache) Set(ctx context.Context, sourceID string, content models.Content, ttlMS int, now time.Time) {
	entry := Entry{Content: content, CachedAt: now, TTLMS: ttlMS}
	if err := c.store.SetJSON(ctx, Key(sourceID), entry); err != nil {
		c.errors.Add(1)
		c.logger.Warn("Cache write failed",
			zap.String("source_id", sourceID),
			zap.String("content_id", content.ID),
			zap.Error(err))
	}
}

// Invalidate drops a source's cached content
func (c *ContentCache) Invalidate(ctx context.Context, sourceID string) {
	if err := c.store.Delete(ctx, Key(sourceID)); err != nil {
		c.errors.Add(1)
		c.logger.Warn("Cache invalidation failed",
			zap.String("source_id", sourceID),
			zap.Error(err))
	}
}

// Stats returns the hit/miss/error counters
func (c *ContentCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}
