package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a thin JSON cache on top of redis. A nil *Cache is valid and
// behaves as a permanent miss, so callers never need to branch on whether
// caching is enabled.
type Cache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func New(client *redis.Client) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{
		client:  client,
		baseTTL: 10 * time.Minute,
	}
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if c == nil {
		return ErrCacheMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal cached value failed: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cached value failed: %w", err)
	}
	// Jitter the TTL so hot keys written together do not expire together.
	ttl := c.baseTTL + time.Duration(rand.Intn(120))*time.Second
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func ProductKey(id string) string { return fmt.Sprintf("product:%s", id) }

func CategoriesKey() string { return "categories:active" }
