// Package cache keeps rendered grids in Redis. Every write bumps a
// generation counter, which retires all older entries at once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	prefix        = "grid:"
	generationKey = prefix + "generation"
	DefaultTTL    = 10 * time.Minute
)

// Connect returns a client for addr, or nil when addr is empty or the
// server does not answer. A nil client disables caching.
func Connect(ctx context.Context, addr string, logger *slog.Logger) *redis.Client {
	if addr == "" {
		logger.Warn("redis address not set, grid cache disabled")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Error("redis unreachable, grid cache disabled", slog.String("addr", addr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return nil
	}
	logger.Info("grid cache connected", slog.String("addr", addr))
	return rdb
}

// GridCache is safe to use with a nil client; every call is then a miss.
type GridCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *GridCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GridCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Enabled reports whether a Redis client is attached.
func (c *GridCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func entryKey(generation int64, parts ...string) string {
	return prefix + strconv.FormatInt(generation, 10) + ":" + strings.Join(parts, ":")
}

func (c *GridCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// noGeneration marks a read that could not see the counter. Set drops
// entries carrying it.
const noGeneration int64 = -1

// Get decodes the entry for parts into dst. It returns the generation it
// looked under, which the caller hands back to Set on a miss, and reports
// false on a miss and on any cache failure.
func (c *GridCache) Get(ctx context.Context, dst any, parts ...string) (int64, bool) {
	if !c.Enabled() {
		return noGeneration, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Error("read cache generation", slog.String("error", err.Error()))
		return noGeneration, false
	}
	key := entryKey(gen, parts...)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("redis GET failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return gen, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("drop undecodable cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return gen, false
	}
	return gen, true
}

// Set stores v under gen, the generation Get returned before v was built.
// A write that invalidated in between has already moved the counter past
// gen, so the entry is never read.
func (c *GridCache) Set(ctx context.Context, gen int64, v any, parts ...string) {
	if !c.Enabled() || gen < 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("encode cache entry", slog.String("error", err.Error()))
		return
	}
	key := entryKey(gen, parts...)
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Error("redis SET failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Invalidate retires every cached grid. Old entries expire by TTL.
func (c *GridCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Error("redis INCR failed", slog.String("error", err.Error()))
	}
}

// Close releases the client, if any.
func (c *GridCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
