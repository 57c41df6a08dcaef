package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/proxyurl"
)

// Providers lists configured catalog providers, sorted.
func (s *Service) Providers() []string {
	names := make([]string, 0, len(s.catalogs))
	for name := range s.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategorizedGames serves the provider catalog read-through: a fresh cache
// answers from Redis, a stale or empty one refetches. An upstream failure
// with any cached records serves the stale copy; viewers get yesterday's
// catalog over an error page.
func (s *Service) CategorizedGames(ctx context.Context, provider string) ([]domain.GameCategory, error) {
	if _, ok := s.catalogs[provider]; !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}

	now := s.nowFn().Unix()
	lastFetch, haveFetch, err := s.games.LastFetchTime(ctx, provider)
	if err != nil {
		s.logger.WarnContext(ctx, "last fetch time unavailable",
			"operation", "catalog", "outcome", "degraded", "provider", provider, "error", err.Error())
	}
	if haveFetch && now-lastFetch <= int64(s.cfg.MetadataTTL.Seconds()) {
		games, err := s.games.GetGames(ctx, provider)
		if err == nil {
			s.metrics.CacheEvent("metadata", "hit")
			return domain.GroupByCategory(games), nil
		}
		s.logger.WarnContext(ctx, "cached catalog read failed, refetching",
			"operation", "catalog", "outcome", "degraded", "provider", provider, "error", err.Error())
	}
	s.metrics.CacheEvent("metadata", "miss")

	games, err := s.refreshCatalog(ctx, provider, now)
	if err != nil {
		// upstream down: a stale catalog beats none
		cached, cacheErr := s.games.GetGames(ctx, provider)
		if cacheErr == nil && len(cached) > 0 {
			s.logger.WarnContext(ctx, "serving stale catalog",
				"operation", "catalog", "outcome", "stale_served", "provider", provider, "error", err.Error())
			return domain.GroupByCategory(cached), nil
		}
		return nil, err
	}
	return domain.GroupByCategory(games), nil
}

func (s *Service) refreshCatalog(ctx context.Context, provider string, now int64) ([]domain.Game, error) {
	games, err := s.catalogs[provider].FetchGames(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.games.ClearProvider(ctx, provider); err != nil {
		s.logger.WarnContext(ctx, "catalog clear failed",
			"operation", "catalog", "outcome", "degraded", "provider", provider, "error", err.Error())
	}
	for _, game := range games {
		if err := s.games.StoreGame(ctx, provider, game); err != nil {
			s.logger.WarnContext(ctx, "game store failed",
				"operation", "catalog", "outcome", "degraded",
				"provider", provider, "game_id", game.ID, "error", err.Error())
		}
	}
	if err := s.games.SetLastFetchTime(ctx, provider, now); err != nil {
		s.logger.WarnContext(ctx, "last fetch time store failed",
			"operation", "catalog", "outcome", "degraded", "provider", provider, "error", err.Error())
	}
	s.metrics.CacheEvent("metadata", "store")
	return games, nil
}

// GameByID returns one catalog record, refetching when the cached copy has
// outlived the metadata TTL. A refetch failure falls back to the stale
// record when one exists.
func (s *Service) GameByID(ctx context.Context, provider string, id int64) (*domain.Game, error) {
	fetcher, ok := s.catalogs[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}

	cached, err := s.games.GetGame(ctx, provider, id)
	if err == nil && s.nowFn().Unix()-cached.CacheTime <= int64(s.cfg.MetadataTTL.Seconds()) {
		s.metrics.CacheEvent("metadata", "hit")
		return cached, nil
	}
	s.metrics.CacheEvent("metadata", "miss")

	game, fetchErr := fetcher.FetchGame(ctx, id)
	if fetchErr != nil {
		if cached != nil {
			s.logger.WarnContext(ctx, "serving stale game",
				"operation", "catalog", "outcome", "stale_served",
				"provider", provider, "game_id", id, "error", fetchErr.Error())
			return cached, nil
		}
		return nil, fetchErr
	}

	if err := s.games.StoreGame(ctx, provider, *game); err != nil {
		s.logger.WarnContext(ctx, "game store failed",
			"operation", "catalog", "outcome", "degraded",
			"provider", provider, "game_id", id, "error", err.Error())
	}
	return game, nil
}

// SignedStreamURL issues a proxy URL for a game's stream, bound to the
// requesting client.
func (s *Service) SignedStreamURL(ctx context.Context, provider string, id int64, clientID string) (string, int64, error) {
	game, err := s.GameByID(ctx, provider, id)
	if err != nil {
		return "", 0, err
	}
	if game.VideoLink == "" {
		return "", 0, fmt.Errorf("%w: game %d has no stream link", domain.ErrNotFound, id)
	}

	encoded := proxyurl.EncodeTarget(game.VideoLink)
	token := s.signer.Issue(encoded, s.cfg.DefaultSchema, s.cfg.SignedURLTTL, clientID)
	return token.ProxyPath(s.cfg.ProxyPath), token.Expiry, nil
}

// DecodeLink resolves a game's encoded embed link to the real playlist URL
// via the provider's decoder.
func (s *Service) DecodeLink(ctx context.Context, provider string, id int64) (string, error) {
	game, err := s.GameByID(ctx, provider, id)
	if err != nil {
		return "", err
	}
	return s.decoders.Decode(ctx, provider, game.VideoLink)
}

// ClearCache drops a provider's catalog so the next read refetches.
func (s *Service) ClearCache(ctx context.Context, provider string) error {
	if _, ok := s.catalogs[provider]; !ok {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrNotFound, provider)
	}
	return s.games.ClearProvider(ctx, provider)
}
