package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	cacheadapter "github.com/SultanXM/Reedstreams-Backend/internal/adapters/cache"
	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/httpapi"
	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	upstreamadapter "github.com/SultanXM/Reedstreams-Backend/internal/adapters/upstream"
	"github.com/SultanXM/Reedstreams-Backend/internal/application"
	"github.com/SultanXM/Reedstreams-Backend/internal/decoder"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

// Runtime holds the origin tier's wired components and manages startup and
// graceful shutdown.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping reedstreams origin", "http_port", cfg.HTTPPort)

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if _, err := cacheadapter.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.UpstreamTimeout}

	counters := cacheadapter.NewRedisCounterStore(redisClient)
	games := cacheadapter.NewRedisGameStore(redisClient)
	cookies := cacheadapter.NewRedisCookieStore(redisClient)
	links := cacheadapter.NewRedisLinkCache(redisClient)

	decoders := decoder.NewRegistry()
	decoders.Register("ppv", decoder.NewPPVDecoder(httpClient, links, cfg.DecoderUA, logger))

	catalogs := map[string]ports.CatalogFetcher{
		"ppv": upstreamadapter.NewPPVCatalogFetcher(httpClient, cfg.CatalogBaseURL, logger),
	}

	fetcher := upstreamadapter.NewHTTPProxyFetcher(
		httpClient, upstreamadapter.DefaultSchemaProfiles(), cfg.MaxBodyBytes, logger)

	metrics := telemetry.New()

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			SignedURLTTL:             cfg.SignedURLTTL,
			MetadataTTL:              cfg.MetadataTTL,
			SegmentMaxAge:            cfg.SegmentMaxAge,
			ProxyPath:                "/proxy",
			DefaultSchema:            "sports",
			AllowUnsignedPassthrough: cfg.AllowUnsignedPassthrough,
			RateLimit: application.RateLimitConfig{
				Limit:           int64(cfg.RateLimitRequests),
				Window:          cfg.RateLimitWindow,
				ErrorLimit:      int64(cfg.ErrorScoreLimit),
				ErrorWindow:     cfg.ErrorScoreWindow,
				TimeoutDuration: cfg.ErrorTimeoutMinutes,
			},
		},
		Counters: counters,
		Games:    games,
		Cookies:  cookies,
		Catalogs: catalogs,
		Fetcher:  fetcher,
		Decoders: decoders,
		Signer:   security.NewURLSigner(cfg.AccessTokenSecret),
		Metrics:  metrics,
		Logger:   logger,
	})

	handler := httpapi.NewHandler(svc, metrics, cfg.AccessTokenSecret,
		func(ctx context.Context) (time.Duration, error) {
			return cacheadapter.Ping(ctx, redisClient)
		})
	router := httpapi.NewRouter(handler, cfg.AllowedOrigins)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanupFn: func(ctx context.Context) {
			closeRedis(redisClient)
		},
	}, nil
}

// Run serves until a signal or server failure, then shuts down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}

func closeRedis(client *redis.Client) {
	_ = client.Close()
}
