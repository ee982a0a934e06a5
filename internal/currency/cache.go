package currency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const rateKeyPrefix = "eazycard:rates:"

// CachedSource keeps rate tables in Redis for a TTL and collapses concurrent
// fetches of the same base into one upstream call. A nil client or a zero TTL
// turns caching off while keeping the deduplication.
type CachedSource struct {
	source Source
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedSource wraps source with a Redis-backed table cache.
func NewCachedSource(source Source, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Latest serves base from the cache when fresh, otherwise from the wrapped source.
func (c *CachedSource) Latest(ctx context.Context, base string) (RateTable, error) {
	base = Code(base)

	if table, ok := c.lookup(ctx, base); ok {
		return table, nil
	}

	// The fetch is shared by every waiter on base, so one caller giving up
	// must not fail the others. The source bounds it with its own timeout.
	v, err, _ := c.group.Do(base, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		table, err := c.source.Latest(fetchCtx, base)
		if err != nil {
			return RateTable{}, err
		}
		c.store(fetchCtx, table)
		return table, nil
	})
	if err != nil {
		return RateTable{}, err
	}
	return v.(RateTable), nil
}

func (c *CachedSource) enabled() bool {
	return c.cache != nil && c.ttl > 0
}

func (c *CachedSource) lookup(ctx context.Context, base string) (RateTable, bool) {
	if !c.enabled() {
		return RateTable{}, false
	}

	raw, err := c.cache.Get(ctx, rateKeyPrefix+base).Bytes()
	if errors.Is(err, redis.Nil) {
		return RateTable{}, false
	}
	if err != nil {
		c.logger.Warn("rate cache lookup failed", "base", base, "error", err)
		return RateTable{}, false
	}

	var table RateTable
	if err := json.Unmarshal(raw, &table); err != nil {
		c.logger.Warn("rate cache entry unreadable", "base", base, "error", err)
		return RateTable{}, false
	}
	return table, true
}

func (c *CachedSource) store(ctx context.Context, table RateTable) {
	if !c.enabled() {
		return
	}

	payload, err := json.Marshal(table)
	if err != nil {
		c.logger.Warn("rate cache encode failed", "base", table.Base, "error", err)
		return
	}
	if err := c.cache.Set(ctx, rateKeyPrefix+table.Base, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("rate cache store failed", "base", table.Base, "error", err)
	}
}
