// Package cache keeps rendered catalog listings in Redis.
//
// Keys embed a generation number. Invalidate bumps the generation so every
// listing written before it becomes unreachable at once and expires on its
// own TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wb-aggregator/internal/model"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const generationKey = "catalog:gen"

type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
	}
}

// Generation returns the current cache generation. Callers read it before
// loading a listing and hand the same value to Set, so a listing loaded
// before an Invalidate is written under a key nobody reads any more.
func (c *CatalogCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

func (c *CatalogCache) Get(ctx context.Context, gen int64, key string) ([]model.CatalogItem, error) {
	data, err := c.client.Get(ctx, cacheKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []model.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal catalog failed: %w", err)
	}

	return items, nil
}

func (c *CatalogCache) Set(ctx context.Context, gen int64, key string, items []model.CatalogItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal catalog failed: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate makes every cached listing unreachable.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return nil
}

func cacheKey(gen int64, key string) string {
	return fmt.Sprintf("catalog:%d:%s", gen, key)
}
