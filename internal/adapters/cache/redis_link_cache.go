package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLinkCache stores decoded provider links under a short TTL.
type RedisLinkCache struct {
	client *redis.Client
}

func NewRedisLinkCache(client *redis.Client) *RedisLinkCache {
	return &RedisLinkCache{client: client}
}

func (c *RedisLinkCache) GetLink(ctx context.Context, key string) (string, bool, error) {
	link, err := c.client.Get(ctx, "proxy:link:"+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return link, true, nil
}

func (c *RedisLinkCache) SetLink(ctx context.Context, key, link string, ttl time.Duration) error {
	return c.client.Set(ctx, "proxy:link:"+key, link, ttl).Err()
}
