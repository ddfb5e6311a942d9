package repository

// This file defines a Redis read-through cache for seat availability.  It
// only serves GET /v1/shows/:id/seats; holds and confirmations always read
// the show from the store.  Entries are dropped after every successful
// commit and additionally bounded by a short TTL.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// SeatCache caches a show's seat map under "<prefix>:<show id>".  A nil
// *SeatCache is valid and caches nothing, so callers can degrade
// gracefully when Redis is unavailable.
type SeatCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewSeatCache returns a cache bound to rdb, or nil when rdb is nil.
func NewSeatCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *SeatCache {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "seats"
	}
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &SeatCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key holding the seat map of showID.
func (c *SeatCache) Key(showID string) string { return c.prefix + ":" + showID }

// Get returns the cached seat map.  Misses and Redis errors both report
// ok=false.
func (c *SeatCache) Get(ctx context.Context, showID string) (model.SeatMap, bool) {
	if c == nil {
		return nil, false
	}
	bs, err := c.rdb.Get(ctx, c.Key(showID)).Bytes()
	if err != nil {
		return nil, false
	}
	var seats model.SeatMap
	if err := json.Unmarshal(bs, &seats); err != nil {
		return nil, false
	}
	return seats, true
}

// Set stores seats for showID.
func (c *SeatCache) Set(ctx context.Context, showID string, seats model.SeatMap) error {
	if c == nil {
		return nil
	}
	bs, err := json.Marshal(seats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.Key(showID), bs, c.ttl).Err()
}

// Invalidate drops the cached seat map of showID.
func (c *SeatCache) Invalidate(ctx context.Context, showID string) error {
	if c == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.Key(showID)).Err()
}
