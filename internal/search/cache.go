package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docgate/docgate/pkg/metrics"
)

// Cache stores serialized search pages in Redis.
// Pages are stored as JSON under key: "search:<tenant>:<queryHash>:<page>:<perPage>"
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a Redis-backed result cache. Prefix may be empty.
func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "search:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(tenantID, query string, page, perPage int) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s%s:%s:%d:%d", c.prefix, tenantID, hex.EncodeToString(sum[:8]), page, perPage)
}

// Get returns the cached page or nil on a miss. Store errors are returned so
// the caller can decide whether to treat them as misses.
func (c *Cache) Get(ctx context.Context, tenantID, query string, page, perPage int) (*Result, error) {
	b, err := c.client.Get(ctx, c.key(tenantID, query, page, perPage)).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheHits.WithLabelValues("miss").Inc()
			return nil, nil
		}
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(b, &res); err != nil {
		// stale or corrupt entry, drop it and treat as a miss
		_ = c.client.Del(ctx, c.key(tenantID, query, page, perPage)).Err()
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, nil
	}
	metrics.CacheHits.WithLabelValues("hit").Inc()
	return &res, nil
}

func (c *Cache) Set(ctx context.Context, tenantID, query string, page, perPage int, res *Result) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(tenantID, query, page, perPage), b, c.ttl).Err()
}

// InvalidateTenant removes every cached page belonging to the tenant. Called
// after document mutations so readers never see pages older than the cache TTL
// plus one write.
func (c *Cache) InvalidateTenant(ctx context.Context, tenantID string) error {
	pattern := c.prefix + tenantID + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
