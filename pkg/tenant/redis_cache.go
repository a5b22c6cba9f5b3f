package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	redisconn "github.com/dmitrymomot/tenantkit/pkg/redis"
)

// redisCache stores resolved tenants in Redis so that multiple application
// instances share one cache and invalidation (e.g. after an Update) is
// visible everywhere at once.
type redisCache struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisCache creates a Redis-backed tenant cache. The prefix namespaces
// keys within a shared Redis database; an empty prefix defaults to "tenant:".
func NewRedisCache(client *redis.Client, prefix string) Cache {
	if client == nil {
		panic("tenant: redis client is required")
	}
	if prefix == "" {
		prefix = "tenant:"
	}
	return &redisCache{client: client, prefix: prefix}
}

// NewRedisCacheFromConfig connects to Redis using cfg and returns a cache
// that owns the resulting client. Close releases the connection.
func NewRedisCacheFromConfig(ctx context.Context, cfg redisconn.Config, prefix string) (Cache, error) {
	client, err := redisconn.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "tenant:"
	}
	return &redisCache{client: client, prefix: prefix, owned: true}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var t Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		// Corrupt entry; drop it so the next request repopulates.
		c.client.Del(ctx, c.prefix+key)
		return nil, false
	}
	return &t, true
}

func (c *redisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	data, err := json.Marshal(tenant)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, data, ttl)
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, c.prefix+key)
}

func (c *redisCache) Close() error {
	if c.owned {
		return c.client.Close()
	}
	// The client is owned by the caller; nothing to release here.
	return nil
}
