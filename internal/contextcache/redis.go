package contextcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

// Redis client settings.
const (
	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
	redisPoolSize     = 10
)

// RedisCache stores JSON-serialized context snapshots in Redis with a TTL.
// Selected when the cache DSN starts with redis://.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis using the configured URL and verifies
// reachability before returning.
func NewRedisCache(opts ...Option) (*RedisCache, error) {
	cfg := Opts{TTL: DefaultTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisCache invoked", "DSN_set", cfg.DSN != "", "ttl", cfg.TTL)

	if cfg.DSN == "" {
		slog.Error("RedisCache DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}

	opt, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opt.DialTimeout = redisDialTimeout
	opt.ReadTimeout = redisReadTimeout
	opt.WriteTimeout = redisWriteTimeout
	opt.PoolSize = redisPoolSize

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Debug("Redis connection established")

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*models.MemoryContext, bool) {
	data, err := c.client.Get(ctx, cacheKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("RedisCache.Get: read failed, treating as miss", "error", err, "userID", userID)
		return nil, false
	}
	var mc models.MemoryContext
	if err := json.Unmarshal(data, &mc); err != nil {
		slog.Warn("RedisCache.Get: corrupt entry, treating as miss", "error", err, "userID", userID)
		return nil, false
	}
	mc.Normalize()
	return &mc, true
}

func (c *RedisCache) Set(ctx context.Context, userID string, mc *models.MemoryContext) error {
	data, err := json.Marshal(mc)
	if err != nil {
		slog.Error("RedisCache.Set: marshal failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to marshal context snapshot: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(userID), data, c.ttl).Err(); err != nil {
		slog.Error("RedisCache.Set: write failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to write context snapshot: %w", err)
	}
	slog.Debug("RedisCache.Set: stored context snapshot", "userID", userID, "bytes", len(data))
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete context snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
