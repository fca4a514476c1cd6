package redisinfra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a namespaced key/value wrapper over a Redis client.
type Cache struct {
	client    redis.UniversalClient
	namespace string
}

func NewClient(addr, password string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewCache(client redis.UniversalClient, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

func (c *Cache) key(k string) string {
	return c.namespace + ":" + k
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// TTL returns the remaining lifetime of key; non-positive when absent.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.client.TTL(ctx, c.key(key)).Result()
}

// IncrWithExpire increments key and starts its expiry window on first use.
func (c *Cache) IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := c.key(key)
	cnt, err := c.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		_ = c.client.Expire(ctx, k, window).Err()
	}
	return cnt, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
