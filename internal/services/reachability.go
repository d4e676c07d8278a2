// Package services – ReachabilityCache
//
// This file implements the read-through cache over the bot's reachable
// recipients. Relay consults it once per fanout to skip recipients whose
// last send failed permanently or who never interacted with the bot.
//
// Semantics:
//   - the set is reloaded as a whole, at most once per TTL
//   - concurrent reloads collapse into one store query (singleflight)
//   - an Invalidate racing a reload wins; the stale result is not installed
//   - changes are optionally broadcast to peer processes through Peers
//
// Observability: failed peer broadcasts are logged and never fail the caller.

package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultReachTTL bounds how stale the cached reachable set may get.
const DefaultReachTTL = 5 * time.Second

// Peers broadcasts reachability changes to other processes. The Redis
// implementation lives in internal/pubsub.
type Peers interface {
	Publish(ctx context.Context, uid int64) error
}

// ReachabilityCache is a read-through cache over the set of recipients the
// bot can send to. The whole set is reloaded at most once per TTL and
// concurrent reloads share one query.
type ReachabilityCache struct {
	Store ReachabilityStore
	BotID int64
	TTL   time.Duration
	Peers Peers
	Now   func() time.Time

	sf       singleflight.Group
	mu       sync.RWMutex
	set      map[int64]struct{}
	loadedAt time.Time
	valid    bool
	gen      uint64
}

// NewReachabilityCache returns a cache for botID.
func NewReachabilityCache(store ReachabilityStore, botID int64, ttl time.Duration) *ReachabilityCache {
	if ttl <= 0 {
		ttl = DefaultReachTTL
	}
	return &ReachabilityCache{Store: store, BotID: botID, TTL: ttl}
}

// IsReachable reports whether uid can currently receive deliveries.
func (c *ReachabilityCache) IsReachable(ctx context.Context, uid int64) (bool, error) {
	set, err := c.snapshot(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[uid]
	return ok, nil
}

// Reachable returns the current reachable set. The map must not be modified.
func (c *ReachabilityCache) Reachable(ctx context.Context) (map[int64]struct{}, error) {
	return c.snapshot(ctx)
}

// MarkSeen records an interaction of uid. The cache is invalidated only when
// uid was not already known to be reachable.
func (c *ReachabilityCache) MarkSeen(ctx context.Context, uid int64) error {
	known := c.cached(uid)
	if err := c.Store.MarkSeen(ctx, c.BotID, uid, nowOr(c.Now)); err != nil {
		return err
	}
	if !known {
		c.Invalidate()
		c.publish(ctx, uid)
	}
	return nil
}

// MarkUnreachable flags uid as unreachable and invalidates the cache.
//
// Called by the dispatcher when the transport reports a permanent failure.
// The flag is cleared again by the next MarkSeen for uid.
func (c *ReachabilityCache) MarkUnreachable(ctx context.Context, uid int64) error {
	if err := c.Store.MarkUnreachable(ctx, c.BotID, uid); err != nil {
		return err
	}
	c.Invalidate()
	c.publish(ctx, uid)
	return nil
}

// Invalidate forces the next read to reload.
func (c *ReachabilityCache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.gen++
	c.mu.Unlock()
}

// cached reports whether uid is in a still-valid set, without reloading.
func (c *ReachabilityCache) cached(uid int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return false
	}
	_, ok := c.set[uid]
	return ok
}

// snapshot returns the cached set, reloading it when stale or invalidated.
// The generation counter detects an Invalidate that lands mid-query.
func (c *ReachabilityCache) snapshot(ctx context.Context) (map[int64]struct{}, error) {
	now := nowOr(c.Now)
	c.mu.RLock()
	if c.valid && now.Sub(c.loadedAt) < c.ttl() {
		set := c.set
		c.mu.RUnlock()
		return set, nil
	}
	gen := c.gen
	c.mu.RUnlock()

	v, err, _ := c.sf.Do("reachable", func() (any, error) {
		ids, err := c.Store.ListReachable(ctx, c.BotID)
		if err != nil {
			return nil, err
		}
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		c.mu.Lock()
		// an Invalidate that raced with the query wins
		if c.gen == gen {
			c.set = set
			c.loadedAt = nowOr(c.Now)
			c.valid = true
		}
		c.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int64]struct{}), nil
}

func (c *ReachabilityCache) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultReachTTL
	}
	return c.TTL
}

func (c *ReachabilityCache) publish(ctx context.Context, uid int64) {
	if c.Peers == nil {
		return
	}
	if err := c.Peers.Publish(ctx, uid); err != nil {
		log.Warn().Err(err).Int64("uid", uid).Msg("reachability: publish invalidation failed")
	}
}
