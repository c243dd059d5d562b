// Package resultcache memoises op results in a process local LRU backed by
// an optional shared store. Entries reach the shared store only once their
// key is hot.
package resultcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/compress"
	"github.com/mohammed-shakir/h3-columnar/internal/core/observability"
	"github.com/mohammed-shakir/h3-columnar/internal/hotness"
	mylog "github.com/mohammed-shakir/h3-columnar/internal/logger"
)

const (
	TierLRU   = "lru"
	TierStore = "redis"

	pruneEvery    = 1024
	pruneMinScore = 0.05
)

// Store is the shared back end, usually *redisstore.Client.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Config struct {
	LRUSize      int
	TTL          time.Duration
	Codec        compress.Codec
	HotThreshold float64
	// HotTTL replaces TTL in the shared store for keys scoring at least four
	// times HotThreshold. Zero keeps TTL.
	HotTTL time.Duration
	// OpTimeout bounds every store call.
	OpTimeout time.Duration
}

type Cache struct {
	cfg   Config
	front *expirable.LRU[string, []byte]
	store Store
	hot   hotness.Interface
	log   *slog.Logger
	puts  atomic.Uint64
}

// New builds a cache. store may be nil for a process local cache.
func New(cfg Config, store Store, hot hotness.Interface, log *slog.Logger) *Cache {
	if cfg.LRUSize < 1 {
		cfg.LRUSize = 1
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		cfg:   cfg,
		front: expirable.NewLRU[string, []byte](cfg.LRUSize, nil, cfg.TTL),
		store: store,
		hot:   hot,
		log:   log,
	}
}

// Get returns the cached value of key and the tier that served it.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, string, bool) {
	if c.hot != nil {
		c.hot.Inc(key)
	}

	start := time.Now()
	v, ok := c.front.Get(key)
	observability.ObserveCacheOp("get", TierLRU, time.Since(start).Seconds())
	if ok {
		observability.IncCacheHit(TierLRU)
		return v, TierLRU, true
	}

	if c.store != nil {
		sctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
		frame, found, err := c.store.Get(sctx, key)
		cancel()
		switch {
		case err != nil:
			c.log.WarnContext(mylog.WithComponent(ctx, "cache"), "shared cache read failed", "err", err)
		case found:
			data, err := compress.Decode(frame)
			if err != nil {
				observability.IncCacheError("decode", TierStore)
				c.log.WarnContext(mylog.WithComponent(ctx, "cache"), "dropping corrupt cache entry", "err", err)
				break
			}
			c.front.Add(key, data)
			observability.IncCacheHit(TierStore)
			return data, TierStore, true
		}
	}

	observability.IncCacheMiss()
	return nil, "", false
}

// Put stores val under key in the LRU, and in the shared store once the key
// is hot. Failures are logged only.
func (c *Cache) Put(ctx context.Context, key string, val []byte) {
	c.front.Add(key, val)

	if n := c.puts.Add(1); n%pruneEvery == 0 {
		c.prune()
	}
	if c.store == nil {
		return
	}
	score, hot := c.admit(key)
	if !hot {
		return
	}

	frame, err := compress.Encode(c.cfg.Codec, val)
	if err != nil {
		observability.IncCacheError("encode", TierStore)
		c.log.WarnContext(mylog.WithComponent(ctx, "cache"), "cache encode failed", "err", err)
		return
	}
	sctx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()
	if err := c.store.Set(sctx, key, frame, c.ttlFor(score)); err != nil {
		c.log.WarnContext(mylog.WithComponent(ctx, "cache"), "shared cache write failed", "err", err)
	}
}

func (c *Cache) admit(key string) (score float64, ok bool) {
	if c.hot == nil || c.cfg.HotThreshold <= 0 {
		return 0, true
	}
	score = c.hot.Score(key)
	return score, score >= c.cfg.HotThreshold
}

func (c *Cache) ttlFor(score float64) time.Duration {
	if c.cfg.HotTTL > 0 && c.cfg.HotThreshold > 0 && score >= 4*c.cfg.HotThreshold {
		return c.cfg.HotTTL
	}
	return c.cfg.TTL
}

func (c *Cache) prune() {
	if p, ok := c.hot.(interface{ Prune(float64) int }); ok {
		p.Prune(pruneMinScore)
	}
}

// Len is the number of entries in the LRU.
func (c *Cache) Len() int { return c.front.Len() }
