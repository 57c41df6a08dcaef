package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements the rate limiter's shared counters with
// atomic increment-with-TTL, plus the client timeout markers.
type RedisCounterStore struct {
	client *redis.Client
}

func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	redisKey := "proxy:ratelimit:" + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, redisKey)
		// arm the TTL only on first touch so the window stays fixed
		// instead of sliding with every request
		p.ExpireNX(ctx, redisKey, window)
		ttl = p.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	remaining := ttl.Val()
	if remaining < 0 {
		remaining = window
	}
	return incr.Val(), remaining, nil
}

func (s *RedisCounterStore) SetTimeout(ctx context.Context, key, reason string, ttl time.Duration) error {
	return s.client.Set(ctx, "proxy:timeout:"+key, reason, ttl).Err()
}

func (s *RedisCounterStore) GetTimeout(ctx context.Context, key string) (string, time.Duration, bool, error) {
	redisKey := "proxy:timeout:" + key

	var get *redis.StringCmd
	var ttl *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, redisKey)
		ttl = p.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", 0, false, nil
		}
		return "", 0, false, err
	}
	if ttl.Val() <= 0 {
		return "", 0, false, nil
	}
	return get.Val(), ttl.Val(), true, nil
}
