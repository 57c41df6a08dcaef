// Package httpapi is the origin tier's HTTP adapter: routing, middleware,
// domain error mapping and the JSON envelope.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SultanXM/Reedstreams-Backend/internal/application"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

// PingFunc probes the backing store for the health endpoint.
type PingFunc func(ctx context.Context) (time.Duration, error)

// Handler is the HTTP adapter entrypoint. Only the application service and
// the operational probes live here; no business policy.
type Handler struct {
	service        *application.Service
	metrics        *telemetry.Metrics
	identitySecret string
	ping           PingFunc
}

func NewHandler(service *application.Service, metrics *telemetry.Metrics, identitySecret string, ping PingFunc) *Handler {
	return &Handler{
		service:        service,
		metrics:        metrics,
		identitySecret: identitySecret,
		ping:           ping,
	}
}

// NewRouter registers the origin routes and middleware stack.
func NewRouter(handler *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	r.Use(corsMiddleware(allowedOrigins))

	r.Get("/healthz", handler.healthz)
	r.Get("/metrics", handler.metrics.Handler().ServeHTTP)

	r.Get("/proxy", handler.proxy)
	r.Options("/proxy", handler.proxyPreflight)

	r.Route("/streams", func(r chi.Router) {
		r.Get("/", handler.allStreams)
		r.Get("/{provider}", handler.providerStreams)
		r.Get("/{provider}/{id}/signed-url", handler.signedURL)
		r.Get("/{provider}/{id}/decode", handler.decodeLink)
		r.Delete("/{provider}/cache", handler.clearCache)
	})

	return r
}
