package edge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SultanXM/Reedstreams-Backend/internal/manifest"
	"github.com/SultanXM/Reedstreams-Backend/internal/proxyurl"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

// Handler terminates /proxy at the edge. The cache key is the decoded
// target plus schema with all authorization parameters stripped, so the
// same segment signed for different clients or expiries is stored once.
type Handler struct {
	client    *http.Client
	originURL string
	cache     *SegmentCache
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	nowFn     func() time.Time
}

func NewHandler(client *http.Client, originURL string, cache *SegmentCache, metrics *telemetry.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		client:    client,
		originURL: strings.TrimRight(originURL, "/"),
		cache:     cache,
		metrics:   metrics,
		logger:    logger.With("service", "reedstreams-edge", "module", "http"),
		nowFn:     time.Now,
	}
}

// NewRouter registers the edge routes.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/metrics", handler.metrics.Handler().ServeHTTP)
	r.Get("/proxy", handler.proxy)
	r.Options("/proxy", handler.proxy)

	return r
}

// healthz reports the edge as healthy only when the origin answers; a
// cache-only edge with a dead origin serves stale segments for minutes
// before anyone notices otherwise.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	latency, err := h.pingOrigin(ctx)
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, `{"status":"degraded","error":%q}`, err.Error())
		return
	}
	_, _ = fmt.Fprintf(w, `{"status":"ok","origin_latency_ms":%d}`, latency.Milliseconds())
}

func (h *Handler) proxy(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.forward(w, r, "", false)
		return
	}

	q := r.URL.Query()
	key, cacheable := h.cacheKey(q.Get("url"), q.Get("schema"))

	// ranged requests bypass the cache both ways: a 206 body must never be
	// stored under the full-segment key, and a stored full body must not
	// shadow the origin's range handling
	if r.Header.Get("Range") != "" {
		cacheable = false
	}

	// an elapsed exp can never be served from cache; the origin owns the
	// rejection so the client sees the same 401 either way
	if exp := q.Get("exp"); exp != "" && cacheable {
		if expiry, err := strconv.ParseInt(exp, 10, 64); err == nil && h.nowFn().Unix() > expiry {
			cacheable = false
		}
	}

	if cacheable {
		if segment, ok := h.cache.Get(key); ok {
			h.metrics.CacheEvent("edge", "hit")
			writeSegment(w, segment, "HIT")
			return
		}
		h.metrics.CacheEvent("edge", "miss")
	}

	h.forward(w, r, key, cacheable)
}

// cacheKey normalizes the request to schema + decoded target. A url
// parameter that does not decode leaves the request uncacheable but still
// proxied; the origin is the authority on rejecting it.
func (h *Handler) cacheKey(rawURL, schema string) (string, bool) {
	if h.cache == nil || rawURL == "" {
		return "", false
	}
	target, err := proxyurl.DecodeTarget(rawURL)
	if err != nil {
		return "", false
	}
	if schema == "" {
		schema = "sports"
	}
	return schema + "\n" + target, true
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, key string, cacheable bool) {
	originReq, err := http.NewRequestWithContext(r.Context(), r.Method,
		h.originURL+"/proxy?"+r.URL.RawQuery, nil)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	copyForwardHeaders(originReq.Header, r.Header)
	appendForwardedFor(originReq.Header, r.RemoteAddr)

	resp, err := h.client.Do(originReq)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "origin fetch failed",
			"operation", "edge_forward", "outcome", "failure", "error", err.Error())
		http.Error(w, "origin unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "origin body read failed",
			"operation", "edge_forward", "outcome", "failure", "error", err.Error())
		http.Error(w, "origin unavailable", http.StatusBadGateway)
		return
	}

	segment := &CachedSegment{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}

	// only complete bodies are stored; a 206 under the range-less key would
	// serve truncated bytes to every full-segment request until the TTL lapses
	if cacheable && resp.StatusCode == http.StatusOK &&
		manifest.IsSegment(resp.Header.Get("Content-Type")) {
		h.cache.Set(key, segment)
		h.metrics.CacheEvent("edge", "store")
	}

	writeSegment(w, segment, "MISS")
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.InfoContext(r.Context(), "http request completed",
			"operation", "http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

// origin derives client identity from IP and user agent, so the edge must
// pass the real client address along
func appendForwardedFor(dst http.Header, remoteAddr string) {
	ip := remoteAddr
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		ip = ip[:idx]
	}
	if prior := dst.Get("X-Forwarded-For"); prior != "" {
		dst.Set("X-Forwarded-For", prior+", "+ip)
		return
	}
	dst.Set("X-Forwarded-For", ip)
}

var skipForwardHeaders = map[string]struct{}{
	"Accept-Encoding":   {},
	"Connection":        {},
	"Keep-Alive":        {},
	"Te":                {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Host":              {},
}

func copyForwardHeaders(dst, src http.Header) {
	for name, values := range src {
		if _, skip := skipForwardHeaders[http.CanonicalHeaderKey(name)]; skip {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func writeSegment(w http.ResponseWriter, segment *CachedSegment, cacheStatus string) {
	for name, values := range segment.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.Header().Set("X-Edge-Cache", cacheStatus)
	w.Header().Set("Content-Length", strconv.Itoa(len(segment.Body)))
	w.WriteHeader(segment.Status)
	_, _ = w.Write(segment.Body)
}

func (h *Handler) pingOrigin(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.originURL+"/healthz", nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("origin health returned %d", resp.StatusCode)
	}
	return time.Since(start), nil
}
