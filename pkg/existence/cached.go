package existence

import (
	"context"
	"fmt"
	"navguard/pkg/domain"
	"navguard/pkg/logger"
	"navguard/pkg/metrics"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultKeyPrefix   = "navguard:exists:"
	defaultPositiveTTL = 5 * time.Minute
	defaultNegativeTTL = 30 * time.Second
	defaultCallTimeout = 10 * time.Second
)

// CachedOptions configures Cached.
type CachedOptions struct {
	// PositiveTTL is how long a "listing exists" answer is kept.
	PositiveTTL time.Duration
	// NegativeTTL is how long a "listing not found" answer is kept.
	NegativeTTL time.Duration
	// KeyPrefix namespaces cache keys.
	KeyPrefix string
	// CallTimeout bounds one shared call to the underlying checker. The call
	// outlives the caller that started it, so it never inherits that
	// caller's cancellation.
	CallTimeout time.Duration
	// Metrics records cache hits and misses; may be nil.
	Metrics *metrics.Recorder
}

// Cached puts a Cache in front of another Checker. Concurrent checks for the
// same reference share one call to the underlying checker; each caller may
// stop waiting when its own context ends without affecting the others. Errors are never
// cached, and a failing cache degrades to calling the underlying checker.
type Cached struct {
	next  Checker
	cache Cache
	opts  CachedOptions
	group singleflight.Group
}

var _ Checker = (*Cached)(nil)

// NewCached wraps next with cache.
func NewCached(next Checker, cache Cache, opts CachedOptions) *Cached {
	if opts.PositiveTTL <= 0 {
		opts.PositiveTTL = defaultPositiveTTL
	}
	if opts.NegativeTTL <= 0 {
		opts.NegativeTTL = defaultNegativeTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}

	return &Cached{next: next, cache: cache, opts: opts}
}

// Key returns the cache key for a listing reference.
func (c *Cached) Key(ref domain.ListingReference) string {
	return c.opts.KeyPrefix + ref.String()
}

// Exists answers from the cache when possible and otherwise asks the
// underlying checker, caching its answer with the matching TTL.
func (c *Cached) Exists(ctx context.Context, id string, t domain.ListingType) (bool, error) {
	key := c.Key(domain.ListingReference{Type: t, ID: id})

	exists, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.opts.Metrics.CacheLookup(ctx, "error")
		logger.Warn(ctx, "could not read existence cache", zap.String("key", key), zap.Error(err))
	case found:
		c.opts.Metrics.CacheLookup(ctx, "hit")

		return exists, nil
	default:
		c.opts.Metrics.CacheLookup(ctx, "miss")
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// the flight is shared: a caller leaving early must not fail the others
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CallTimeout)
		defer cancel()

		ok, err := c.next.Exists(ctx, id, t)
		if err != nil {
			return false, err
		}

		ttl := c.opts.NegativeTTL
		if ok {
			ttl = c.opts.PositiveTTL
		}
		if err := c.cache.Set(ctx, key, ok, ttl); err != nil {
			logger.Warn(ctx, "could not write existence cache", zap.String("key", key), zap.Error(err))
		}

		return ok, nil
	})

	select {
	case <-ctx.Done():
		return false, fmt.Errorf("existence check interrupted: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		ok, _ := res.Val.(bool)

		return ok, nil
	}
}

// Forget evicts the cached answer for ref.
func (c *Cached) Forget(ctx context.Context, ref domain.ListingReference) error {
	if err := c.cache.Delete(ctx, c.Key(ref)); err != nil {
		return fmt.Errorf("could not evict %s: %w", ref, err)
	}

	return nil
}
