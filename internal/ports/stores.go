package ports

import (
	"context"
	"time"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// CounterStore is the shared counter store behind the rate limiter. All
// mutation happens through atomic increment-with-TTL; there is no
// read-modify-write path.
type CounterStore interface {
	// IncrementWindow atomically increments key and arms a TTL equal to the
	// window on first touch. Returns the post-increment count and the
	// remaining window.
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	// SetTimeout marks a client as timed out with a reason for ttl.
	SetTimeout(ctx context.Context, key, reason string, ttl time.Duration) error

	// GetTimeout returns the active timeout reason and remaining duration,
	// or ok=false when none is set.
	GetTimeout(ctx context.Context, key string) (reason string, remaining time.Duration, ok bool, err error)
}

// GameStore persists catalog records per provider with TTL-style freshness
// tracked via the provider's last fetch time.
type GameStore interface {
	StoreGame(ctx context.Context, provider string, game domain.Game) error
	GetGame(ctx context.Context, provider string, id int64) (*domain.Game, error)
	GetGames(ctx context.Context, provider string) ([]domain.Game, error)
	ClearProvider(ctx context.Context, provider string) error
	SetLastFetchTime(ctx context.Context, provider string, unixSeconds int64) error
	LastFetchTime(ctx context.Context, provider string) (unixSeconds int64, ok bool, err error)
}

// LinkCache holds decoded provider links for a short TTL so repeated
// manifest loads don't re-trigger the decode round trip.
type LinkCache interface {
	GetLink(ctx context.Context, key string) (link string, ok bool, err error)
	SetLink(ctx context.Context, key, link string, ttl time.Duration) error
}

// CookieStore keeps merged upstream cookies per domain so provider
// sessions survive across proxied requests.
type CookieStore interface {
	Cookies(ctx context.Context, host string) (header string, ok bool, err error)
	StoreCookies(ctx context.Context, host string, setCookies []string) error
}
