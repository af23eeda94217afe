// Package cache is a Redis cache-aside layer in front of the two
// read-heavy, recompute-cheap projections spec §4.5 describes (helper
// wait times, recent helper actions). It is grounded on the teacher's
// stock.ItemCache/CachedStore Cache-Aside pattern, adapted from stock
// items to queue projections.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with a fixed TTL for projection payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials Redis at addr and verifies connectivity.
func New(addr string, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

// GetWaitTimes decodes a cached helperWaitTimes payload for businessID
// into out and reports true, or reports (false, nil) on a cache miss.
func (c *Cache) GetWaitTimes(ctx context.Context, businessID string, out interface{}) (bool, error) {
	return c.get(ctx, waitTimesKey(businessID), out)
}

// SetWaitTimes caches a helperWaitTimes payload for businessID.
func (c *Cache) SetWaitTimes(ctx context.Context, businessID string, v interface{}) error {
	return c.set(ctx, waitTimesKey(businessID), v)
}

// InvalidateWaitTimes drops the cached payload for businessID, called
// whenever a restructure or action commits for that business.
func (c *Cache) InvalidateWaitTimes(ctx context.Context, businessID string) error {
	return c.client.Del(ctx, waitTimesKey(businessID)).Err()
}

// GetRecentActions decodes a cached helperRecentActions payload for
// helperID into out and reports true, or reports (false, nil) on a cache
// miss.
func (c *Cache) GetRecentActions(ctx context.Context, helperID string, out interface{}) (bool, error) {
	return c.get(ctx, recentActionsKey(helperID), out)
}

// SetRecentActions caches a helperRecentActions payload for helperID.
func (c *Cache) SetRecentActions(ctx context.Context, helperID string, v interface{}) error {
	return c.set(ctx, recentActionsKey(helperID), v)
}

// InvalidateRecentActions drops the cached payload for helperID.
func (c *Cache) InvalidateRecentActions(ctx context.Context, helperID string) error {
	return c.client.Del(ctx, recentActionsKey(helperID)).Err()
}

func waitTimesKey(businessID string) string     { return fmt.Sprintf("waittimes:%s", businessID) }
func recentActionsKey(helperID string) string   { return fmt.Sprintf("recentactions:%s", helperID) }

func (c *Cache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}
