package contextcache

import (
	"context"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// MemoryCache is the default in-process Context Store backend.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates an in-process TTL cache.
func NewMemoryCache(opts ...Option) *MemoryCache {
	cfg := Opts{TTL: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewMemoryCache invoked", "ttl", cfg.TTL)
	return &MemoryCache{cache: gocache.New(cfg.TTL, 2*cfg.TTL)}
}

func (c *MemoryCache) Get(ctx context.Context, userID string) (*models.MemoryContext, bool) {
	v, found := c.cache.Get(cacheKey(userID))
	if !found {
		return nil, false
	}
	mc, ok := v.(models.MemoryContext)
	if !ok {
		slog.Warn("MemoryCache.Get: unexpected entry type, treating as miss", "userID", userID)
		return nil, false
	}
	// Copy out so callers cannot mutate the cached snapshot.
	out := mc
	return &out, true
}

func (c *MemoryCache) Set(ctx context.Context, userID string, mc *models.MemoryContext) error {
	c.cache.Set(cacheKey(userID), *mc, gocache.DefaultExpiration)
	slog.Debug("MemoryCache.Set: stored context snapshot", "userID", userID)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, userID string) error {
	c.cache.Delete(cacheKey(userID))
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error { return nil }

var _ Cache = (*MemoryCache)(nil)
