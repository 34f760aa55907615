package billingstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kaizenhr/billing/pkg/billing"
)

const defaultPlanCacheTTL = 5 * time.Minute

// CachedPlanSource is a read-through cache in front of another
// PlanSource. The catalog is small and changes rarely, so it is cached
// as a single JSON blob under one key.
//
// Cache failures never fail a load: any redis or codec error falls
// through to the underlying source, so a degraded cache only costs
// latency.
type CachedPlanSource struct {
	src billing.PlanSource
	rdb redis.UniversalClient
	key string
	ttl time.Duration
	log *slog.Logger
}

// CachedPlanOption configures a CachedPlanSource.
type CachedPlanOption func(*CachedPlanSource)

// WithPlanCacheTTL overrides the cache entry lifetime.
func WithPlanCacheTTL(ttl time.Duration) CachedPlanOption {
	return func(c *CachedPlanSource) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPlanCacheLogger sets the logger for cache degradation warnings.
func WithPlanCacheLogger(log *slog.Logger) CachedPlanOption {
	return func(c *CachedPlanSource) {
		if log != nil {
			c.log = log
		}
	}
}

// NewCachedPlanSource wraps src with a redis cache keyed under key.
func NewCachedPlanSource(src billing.PlanSource, rdb redis.UniversalClient, key string, opts ...CachedPlanOption) *CachedPlanSource {
	c := &CachedPlanSource{
		src: src,
		rdb: rdb,
		key: key,
		ttl: defaultPlanCacheTTL,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedPlanSource) Load(ctx context.Context) (map[string]billing.Plan, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err == nil {
		var plans map[string]billing.Plan
		if err := json.Unmarshal(raw, &plans); err == nil {
			return plans, nil
		}
		c.log.WarnContext(ctx, "discarding malformed plan cache entry", "key", c.key)
	} else if err != redis.Nil {
		c.log.WarnContext(ctx, "plan cache read failed, falling back to source",
			"key", c.key, "error", err)
	}

	plans, err := c.src.Load(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(plans); err == nil {
		if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
			c.log.WarnContext(ctx, "plan cache write failed", "key", c.key, "error", err)
		}
	}
	return plans, nil
}

// Invalidate drops the cached catalog so the next Load hits the source.
func (c *CachedPlanSource) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
