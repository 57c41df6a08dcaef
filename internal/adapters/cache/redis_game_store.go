package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// RedisGameStore keeps one hash per provider, field = game id, value = the
// JSON record, plus a last-fetch timestamp key driving catalog freshness.
type RedisGameStore struct {
	client *redis.Client
}

func NewRedisGameStore(client *redis.Client) *RedisGameStore {
	return &RedisGameStore{client: client}
}

func gamesKey(provider string) string     { return "streams:games:" + provider }
func lastFetchKey(provider string) string { return "streams:lastfetch:" + provider }

func (s *RedisGameStore) StoreGame(ctx context.Context, provider string, game domain.Game) error {
	payload, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game %d: %w", game.ID, err)
	}
	return s.client.HSet(ctx, gamesKey(provider), strconv.FormatInt(game.ID, 10), payload).Err()
}

func (s *RedisGameStore) GetGame(ctx context.Context, provider string, id int64) (*domain.Game, error) {
	raw, err := s.client.HGet(ctx, gamesKey(provider), strconv.FormatInt(id, 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var game domain.Game
	if err := json.Unmarshal([]byte(raw), &game); err != nil {
		return nil, fmt.Errorf("unmarshal game %d: %w", id, err)
	}
	return &game, nil
}

func (s *RedisGameStore) GetGames(ctx context.Context, provider string) ([]domain.Game, error) {
	fields, err := s.client.HGetAll(ctx, gamesKey(provider)).Result()
	if err != nil {
		return nil, err
	}
	games := make([]domain.Game, 0, len(fields))
	for _, raw := range fields {
		var game domain.Game
		if err := json.Unmarshal([]byte(raw), &game); err != nil {
			// one corrupt record must not take the whole catalog down
			continue
		}
		games = append(games, game)
	}
	return games, nil
}

func (s *RedisGameStore) ClearProvider(ctx context.Context, provider string) error {
	return s.client.Del(ctx, gamesKey(provider), lastFetchKey(provider)).Err()
}

func (s *RedisGameStore) SetLastFetchTime(ctx context.Context, provider string, unixSeconds int64) error {
	return s.client.Set(ctx, lastFetchKey(provider), unixSeconds, 0).Err()
}

func (s *RedisGameStore) LastFetchTime(ctx context.Context, provider string) (int64, bool, error) {
	raw, err := s.client.Get(ctx, lastFetchKey(provider)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse last fetch time: %w", err)
	}
	return ts, true, nil
}
