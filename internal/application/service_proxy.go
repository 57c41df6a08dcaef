package application

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/manifest"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
	"github.com/SultanXM/Reedstreams-Backend/internal/proxyurl"
)

// ProxyRequest carries one /proxy invocation. RawURL is the url query
// parameter exactly as received; the signature covers that encoded form.
// Client is the client query parameter from a signed URL; ClientID is the
// identity derived from the caller's IP and user agent, used when the
// query carries none.
type ProxyRequest struct {
	RawURL   string
	Schema   string
	Sig      string
	Exp      string
	Client   string
	ClientID string
	Header   http.Header
}

// ProxyResponse is a fully materialized reply: status, headers and body.
// IsManifest marks rewritten playlists so callers can skip segment caching.
type ProxyResponse struct {
	Status     int
	Header     http.Header
	Body       []byte
	IsManifest bool
}

// Proxy runs the full pipeline for one media request: authorize, throttle,
// decode the target, fetch upstream with replayed cookies, classify the
// payload, and either rewrite it (manifests) or pass it along (segments
// and everything else). Authorization and throttling both complete before
// any upstream contact.
func (s *Service) Proxy(ctx context.Context, req ProxyRequest) (*ProxyResponse, error) {
	schema := req.Schema
	if schema == "" {
		schema = s.cfg.DefaultSchema
	}

	if err := s.authorize(ctx, req); err != nil {
		return nil, err
	}
	if err := s.checkThrottle(ctx, req.ClientID); err != nil {
		return nil, err
	}

	target, err := s.resolveTarget(ctx, req.RawURL)
	if err != nil {
		return nil, err
	}

	cookies := s.loadCookies(ctx, target)

	upstream, err := s.fetcher.Fetch(ctx, target, schema, req.Header, cookies)
	if err != nil {
		s.metrics.UpstreamFetch(schema, "error")
		s.recordUpstreamError(ctx, req.ClientID)
		return nil, err
	}
	s.metrics.UpstreamFetch(schema, fmt.Sprintf("%dxx", upstream.Status/100))

	s.storeCookiesAsync(ctx, target, upstream.Header.Values("Set-Cookie"))

	if upstream.Status < 200 || upstream.Status > 299 {
		if upstream.Status >= 400 {
			s.recordUpstreamError(ctx, req.ClientID)
		}
		return passthroughResponse(upstream.Status, upstream.Header, upstream.Body), nil
	}

	contentType := upstream.Header.Get("Content-Type")
	if manifest.IsPlaylist(contentType, upstream.Body) {
		return s.rewriteManifest(ctx, req, schema, target, upstream.Body)
	}
	if manifest.IsSegment(contentType) {
		return s.segmentResponse(upstream), nil
	}
	return passthroughResponse(upstream.Status, upstream.Header, upstream.Body), nil
}

// authorize enforces the signed-URL contract. A presented signature must
// verify against the client binding; a missing one is rejected unless
// unsigned passthrough is switched on. Verification binds to the client id
// the URL was issued for when present, otherwise to the caller's own
// derived identity.
func (s *Service) authorize(ctx context.Context, req ProxyRequest) error {
	if req.Sig == "" && req.Exp == "" {
		if s.cfg.AllowUnsignedPassthrough {
			s.logger.InfoContext(ctx, "unsigned request passed through",
				"operation", "proxy_auth", "outcome", "passthrough", "client_id", req.ClientID)
			return nil
		}
		return fmt.Errorf("%w: missing signature", domain.ErrUnauthorized)
	}
	if req.Sig == "" || req.Exp == "" {
		return fmt.Errorf("%w: incomplete signature parameters", domain.ErrUnauthorized)
	}

	expiry, err := strconv.ParseInt(req.Exp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed exp parameter", domain.ErrUnauthorized)
	}

	boundClient := req.Client
	if boundClient == "" {
		boundClient = req.ClientID
	}
	if err := s.signer.Verify(boundClient, expiry, req.RawURL, req.Schema, req.Sig, s.nowFn()); err != nil {
		s.logger.WarnContext(ctx, "signature rejected",
			"operation", "proxy_auth", "outcome", "rejected", "client_id", req.ClientID)
		return err
	}
	return nil
}

// resolveTarget decodes the url parameter and, when it is a provider embed
// link, runs it through the matching decoder to get the real playlist URL.
func (s *Service) resolveTarget(ctx context.Context, rawURL string) (string, error) {
	target, err := proxyurl.DecodeTarget(rawURL)
	if err != nil {
		return "", err
	}
	if d, ok := s.decoders.Match(target); ok {
		decoded, err := d.Decode(ctx, target)
		if err != nil {
			return "", err
		}
		return decoded, nil
	}
	return target, nil
}

func (s *Service) loadCookies(ctx context.Context, target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return ""
	}
	cookies, ok, err := s.cookies.Cookies(ctx, u.Host)
	if err != nil {
		s.logger.WarnContext(ctx, "cookie load failed",
			"operation", "proxy_cookies", "outcome", "degraded", "host", u.Host, "error", err.Error())
		return ""
	}
	if !ok {
		return ""
	}
	return cookies
}

// storeCookiesAsync persists upstream Set-Cookie values without holding up
// the response. The write runs on a context detached from the request so a
// client disconnect cannot abort it.
func (s *Service) storeCookiesAsync(ctx context.Context, target string, setCookies []string) {
	if len(setCookies) == 0 {
		return
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.cookies.StoreCookies(detached, u.Host, setCookies); err != nil {
			s.logger.Warn("cookie store failed",
				"operation", "proxy_cookies", "outcome", "degraded", "host", u.Host, "error", err.Error())
		}
	}()
}

// rewriteManifest signs every media reference with a fresh expiry shared
// across the whole playlist.
func (s *Service) rewriteManifest(ctx context.Context, req ProxyRequest, schema, target string, body []byte) (*ProxyResponse, error) {
	boundClient := req.Client
	if boundClient == "" {
		boundClient = req.ClientID
	}
	rewritten, err := manifest.Rewrite(string(body), s.signer, manifest.Context{
		BaseURL:   target,
		Schema:    schema,
		ClientID:  boundClient,
		Expiry:    s.nowFn().Add(s.cfg.SignedURLTTL).Unix(),
		ProxyPath: s.cfg.ProxyPath,
	})
	if err != nil {
		s.metrics.RewriteFailure()
		s.logger.ErrorContext(ctx, "manifest rewrite aborted",
			"operation", "proxy_rewrite", "outcome", "failure", "error", err.Error())
		return nil, err
	}

	header := http.Header{}
	header.Set("Content-Type", manifest.ContentTypeM3U8)
	header.Set("Cache-Control", "no-cache")
	return &ProxyResponse{
		Status:     http.StatusOK,
		Header:     header,
		Body:       []byte(rewritten),
		IsManifest: true,
	}, nil
}

// segmentResponse keeps the upstream status so ranged fetches answer 206
// with their Content-Range intact. Only complete bodies carry the public
// max-age; relabeling a partial as cacheable would hand caches truncated
// segments.
func (s *Service) segmentResponse(upstream *ports.UpstreamResponse) *ProxyResponse {
	header := http.Header{}
	header.Set("Content-Type", upstream.Header.Get("Content-Type"))
	header.Set("Accept-Ranges", "bytes")
	if upstream.Status == http.StatusPartialContent {
		if cr := upstream.Header.Get("Content-Range"); cr != "" {
			header.Set("Content-Range", cr)
		}
		header.Set("Cache-Control", "no-cache")
	} else {
		header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.cfg.SegmentMaxAge.Seconds())))
	}
	return &ProxyResponse{
		Status: upstream.Status,
		Header: header,
		Body:   upstream.Body,
	}
}

// passthroughResponse forwards status and body with a trimmed header set.
// Hop-by-hop and encoding headers are dropped; the body is already decoded.
func passthroughResponse(status int, upstreamHeader http.Header, body []byte) *ProxyResponse {
	header := http.Header{}
	for _, name := range []string{"Content-Type", "Cache-Control", "Expires", "Last-Modified", "ETag"} {
		if v := upstreamHeader.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	return &ProxyResponse{
		Status: status,
		Header: header,
		Body:   body,
	}
}
