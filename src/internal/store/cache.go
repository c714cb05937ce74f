package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statsCacheKey = "dispatch:stats"

// StatsCache keeps the dashboard stats payload in Redis for a short TTL so
// polling dashboards don't hammer the count queries.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

// Get unmarshals the cached payload into dest, reporting false on a miss.
func (c *StatsCache) Get(ctx context.Context, dest any) (bool, error) {
	val, err := c.client.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get stats from cache: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("unmarshal cached stats: %w", err)
	}
	return true, nil
}

func (c *StatsCache) Set(ctx context.Context, stats any) error {
	val, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats for cache: %w", err)
	}
	if err := c.client.Set(ctx, statsCacheKey, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("set stats in cache: %w", err)
	}
	return nil
}

func (c *StatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, statsCacheKey).Err(); err != nil {
		return fmt.Errorf("invalidate stats cache: %w", err)
	}
	return nil
}
