package ports

import (
	"context"
	"net/http"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// UpstreamResponse is a fully read provider response. Bodies are bounded by
// the fetch timeout, never streamed, so manifests can be rewritten and
// segments handed to the cache without re-reading.
type UpstreamResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// ProxyFetcher performs the origin-tier upstream fetch for proxied media.
// Implementations own per-schema request headers and must strip client
// content-negotiation headers before forwarding.
type ProxyFetcher interface {
	Fetch(ctx context.Context, targetURL, schema string, clientHeader http.Header, cookies string) (*UpstreamResponse, error)
}

// CatalogFetcher lists and refetches games from a provider's catalog API.
type CatalogFetcher interface {
	FetchGames(ctx context.Context) ([]domain.Game, error)
	FetchGame(ctx context.Context, id int64) (*domain.Game, error)
}

// LinkDecoder reverses one provider's link obfuscation. Matches reports
// whether an URL is this provider's encoded form.
type LinkDecoder interface {
	Matches(rawURL string) bool
	Decode(ctx context.Context, encodedLink string) (string, error)
}
