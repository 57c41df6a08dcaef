// Package application wires the proxy orchestrator and the catalog service
// around the ports. All policy lives here; adapters stay mechanical.
package application

import (
	"log/slog"
	"time"

	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	"github.com/SultanXM/Reedstreams-Backend/internal/decoder"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

// RateLimitConfig tunes the fixed-window limiter and the error-score
// timeout supplement.
type RateLimitConfig struct {
	Limit  int64
	Window time.Duration

	// clients racking up ErrorLimit upstream errors inside ErrorWindow get
	// timed out for TimeoutDuration
	ErrorLimit      int64
	ErrorWindow     time.Duration
	TimeoutDuration time.Duration
}

// Config is the application-level policy knobs, populated from bootstrap.
type Config struct {
	SignedURLTTL             time.Duration
	MetadataTTL              time.Duration
	SegmentMaxAge            time.Duration
	ProxyPath                string
	DefaultSchema            string
	AllowUnsignedPassthrough bool
	RateLimit                RateLimitConfig
}

type Service struct {
	cfg      Config
	counters ports.CounterStore
	games    ports.GameStore
	cookies  ports.CookieStore
	catalogs map[string]ports.CatalogFetcher
	fetcher  ports.ProxyFetcher
	decoders *decoder.Registry
	signer   *security.URLSigner
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Counters ports.CounterStore
	Games    ports.GameStore
	Cookies  ports.CookieStore
	Catalogs map[string]ports.CatalogFetcher
	Fetcher  ports.ProxyFetcher
	Decoders *decoder.Registry
	Signer   *security.URLSigner
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
}

func NewService(deps Dependencies) *Service {
	return &Service{
		cfg:      deps.Config,
		counters: deps.Counters,
		games:    deps.Games,
		cookies:  deps.Cookies,
		catalogs: deps.Catalogs,
		fetcher:  deps.Fetcher,
		decoders: deps.Decoders,
		signer:   deps.Signer,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With("service", "reedstreams"),
		nowFn:    time.Now,
	}
}
