package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
)

// SchemaProfile is the browser-like header set sent upstream for one
// schema. HostOverrides swaps the profile when the target host matches;
// some CDNs behind a schema expect a different Referer/Origin pair.
type SchemaProfile struct {
	Referer       string
	Origin        string
	UserAgent     string
	HostOverrides map[string]SchemaProfile
}

// DefaultSchemaProfiles covers the schemas the catalog hands out today.
// Unknown schemas fall back to "sports".
func DefaultSchemaProfiles() map[string]SchemaProfile {
	const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	const firefoxUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:145.0) Gecko/20100101 Firefox/145.0"

	return map[string]SchemaProfile{
		"sports": {
			Referer:   "https://api.ppv.to/api/streams/",
			Origin:    "https://api.ppv.to/api/streams",
			UserAgent: chromeUA,
			HostOverrides: map[string]SchemaProfile{
				"strm.poocloud.in": {
					Referer:   "https://modistreams.org/",
					Origin:    "https://ppv.to",
					UserAgent: chromeUA,
				},
			},
		},
		"captions": {
			UserAgent: firefoxUA,
		},
	}
}

// hop-by-hop and content-negotiation headers never forwarded upstream.
// Accept-Encoding stays off so the transport negotiates gzip itself and
// hands back decoded bytes the rewriter and cache can work with.
var skipForwardHeaders = map[string]struct{}{
	"Accept-Encoding":     {},
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Host":                {},
	"Cookie":              {},
	"Referer":             {},
	"Origin":              {},
	"User-Agent":          {},
}

// HTTPProxyFetcher performs the upstream media fetch for proxied requests.
// Responses are read fully so the caller can classify and rewrite.
type HTTPProxyFetcher struct {
	client       *http.Client
	profiles     map[string]SchemaProfile
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewHTTPProxyFetcher(client *http.Client, profiles map[string]SchemaProfile, maxBodyBytes int64, logger *slog.Logger) *HTTPProxyFetcher {
	return &HTTPProxyFetcher{
		client:       client,
		profiles:     profiles,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("module", "proxy_fetcher"),
	}
}

var _ ports.ProxyFetcher = (*HTTPProxyFetcher)(nil)

func (f *HTTPProxyFetcher) Fetch(ctx context.Context, targetURL, schema string, clientHeader http.Header, cookies string) (*ports.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build upstream request: %v", domain.ErrInvalidInput, err)
	}

	for name, values := range clientHeader {
		if _, skip := skipForwardHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	profile := f.profileFor(schema, req.URL.Host)
	if profile.Referer != "" {
		req.Header.Set("Referer", profile.Referer)
	}
	if profile.Origin != "" {
		req.Header.Set("Origin", profile.Origin)
	}
	if profile.UserAgent != "" {
		req.Header.Set("User-Agent", profile.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrUpstream, req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read upstream body: %v", domain.ErrUpstream, err)
	}

	return &ports.UpstreamResponse{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

func (f *HTTPProxyFetcher) profileFor(schema, host string) SchemaProfile {
	profile, ok := f.profiles[schema]
	if !ok {
		profile = f.profiles["sports"]
	}
	for overrideHost, override := range profile.HostOverrides {
		if strings.EqualFold(host, overrideHost) {
			return override
		}
	}
	return profile
}
