package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores the active visa list as JSON under a single key so
// several service replicas share one cached copy.
type RedisCache struct {
	client *redis.Client
	key    string
	config CacheConfig
}

// NewRedisCache creates a cache on an existing client.
func NewRedisCache(client *redis.Client, config CacheConfig) *RedisCache {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultCacheConfig().KeyPrefix
	}
	return &RedisCache{
		client: client,
		key:    prefix + ":visa-types:active",
		config: config,
	}
}

func (c *RedisCache) Get(ctx context.Context) ([]VisaType, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}

	var visas []VisaType
	if err := json.Unmarshal(data, &visas); err != nil {
		return nil, false, fmt.Errorf("decode cached visa types: %w", err)
	}
	if visas == nil {
		visas = []VisaType{}
	}
	return visas, true, nil
}

func (c *RedisCache) Set(ctx context.Context, visas []VisaType) error {
	if visas == nil {
		visas = []VisaType{}
	}
	data, err := json.Marshal(visas)
	if err != nil {
		return fmt.Errorf("encode visa types: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.config.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCache) Backend() string { return "redis" }

// Key returns the Redis key holding the list.
func (c *RedisCache) Key() string { return c.key }
