// Package contextcache is the TTL cache boundary for assembled memory
// contexts. The aggregator treats it cache-aside: a miss or a failed read is
// never an error, just a rebuild.
package contextcache

import (
	"context"
	"time"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// DefaultTTL is how long a cached context snapshot stays fresh.
const DefaultTTL = 5 * time.Minute

// Opts holds configuration options for cache implementations.
type Opts struct {
	TTL time.Duration
	DSN string
}

// Option defines a configuration option for caches.
type Option func(*Opts)

// WithTTL overrides the snapshot lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		if ttl > 0 {
			o.TTL = ttl
		}
	}
}

// WithRedisDSN sets the Redis connection URL (redis://...).
func WithRedisDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// Cache stores assembled memory contexts keyed by user id.
type Cache interface {
	// Get returns the cached context and true on a fresh hit, (nil, false)
	// on a miss or an unreadable entry.
	Get(ctx context.Context, userID string) (*models.MemoryContext, bool)
	// Set stores the context snapshot under the configured TTL.
	Set(ctx context.Context, userID string, mc *models.MemoryContext) error
	// Delete invalidates the snapshot for a user.
	Delete(ctx context.Context, userID string) error
	// Ping reports backend reachability.
	Ping(ctx context.Context) error
}

// cacheKey namespaces context snapshots within a shared backend.
func cacheKey(userID string) string {
	return "memory_context:" + userID
}
