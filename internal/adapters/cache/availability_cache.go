// Package cache provides a Redis-backed read-through cache for item stock
// snapshots. It is optional: the application runs without it and all cache
// failures degrade to database reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warehouse-engine/internal/app"
	"warehouse-engine/internal/core"
)

// defaultTTL keeps snapshots fresh enough for dashboards without hammering
// the database. Mutations invalidate eagerly, so the TTL is only a backstop.
const defaultTTL = 30 * time.Second

type availabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailabilityCache wraps a Redis client as an AvailabilityInfoCache.
// ttl <= 0 selects the default.
func NewAvailabilityCache(client *redis.Client, ttl time.Duration) app.AvailabilityInfoCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &availabilityCache{client: client, ttl: ttl}
}

func key(itemID int) string {
	return fmt.Sprintf("availability:item:%d", itemID)
}

func (c *availabilityCache) Get(ctx context.Context, itemID int) (*core.ItemAvailabilityInfo, error) {
	val, err := c.client.Get(ctx, key(itemID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get item %d: %w", itemID, err)
	}

	var info core.ItemAvailabilityInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		// A corrupt entry is as good as a miss.
		_ = c.client.Del(ctx, key(itemID)).Err()
		return nil, nil
	}
	return &info, nil
}

func (c *availabilityCache) Set(ctx context.Context, itemID int, info *core.ItemAvailabilityInfo) error {
	val, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("cache marshal item %d: %w", itemID, err)
	}
	if err := c.client.Set(ctx, key(itemID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set item %d: %w", itemID, err)
	}
	return nil
}

func (c *availabilityCache) Invalidate(ctx context.Context, itemID int) error {
	if err := c.client.Del(ctx, key(itemID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate item %d: %w", itemID, err)
	}
	return nil
}
