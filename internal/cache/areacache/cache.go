// Package areacache caches data-service responses per area: an in-process
// LRU in front of an optional shared Redis tier.
package areacache

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/map-area-select/internal/core/observability"
)

// Remote is the shared tier; *redisstore.Client satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Config struct {
	Size      int
	TTL       time.Duration
	OpTimeout time.Duration
}

type Cache struct {
	logger    *slog.Logger
	lru       *expirable.LRU[string, []byte]
	remote    Remote
	ttl       time.Duration
	opTimeout time.Duration
}

// New builds the cache. remote may be nil.
func New(logger *slog.Logger, cfg Config, remote Remote) *Cache {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		logger:    logger,
		lru:       expirable.NewLRU[string, []byte](cfg.Size, nil, cfg.TTL),
		remote:    remote,
		ttl:       cfg.TTL,
		opTimeout: cfg.OpTimeout,
	}
}

// Get checks the LRU, then the remote tier. Remote failures count as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.lru.Get(key); ok {
		observability.IncCacheHit("lru")
		return v, true
	}
	observability.IncCacheMiss("lru")
	if c.remote == nil {
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	v, ok, err := c.remote.Get(opCtx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "area cache remote get failed", "key", key, "err", err)
		observability.IncCacheMiss("redis")
		return nil, false
	}
	if !ok {
		observability.IncCacheMiss("redis")
		return nil, false
	}
	observability.IncCacheHit("redis")
	c.lru.Add(key, v)
	return v, true
}

func (c *Cache) Put(ctx context.Context, key string, val []byte) {
	c.lru.Add(key, val)
	if c.remote == nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := c.remote.Set(opCtx, key, val, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "area cache remote set failed", "key", key, "err", err)
	}
}

func (c *Cache) Len() int { return c.lru.Len() }
