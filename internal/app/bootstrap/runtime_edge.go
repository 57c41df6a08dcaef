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

	"github.com/SultanXM/Reedstreams-Backend/internal/edge"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

// EdgeRuntime is the edge tier: in-process segment cache in front of one
// origin. No Redis, no catalog; it only needs the origin URL.
type EdgeRuntime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
}

func NewEdgeRuntime(_ context.Context, configPath string) (*EdgeRuntime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping reedstreams edge",
		"http_port", cfg.EdgeHTTPPort, "origin_url", cfg.EdgeOriginURL)

	cache, err := edge.NewSegmentCache(cfg.EdgeCacheBytes, cfg.EdgeCacheTTL)
	if err != nil {
		// always-fetch mode: every request forwards to origin
		logger.Warn("segment cache init failed, running without cache", "error", err.Error())
		cache = nil
	}

	handler := edge.NewHandler(
		&http.Client{Timeout: cfg.EdgeFetchTimeout},
		cfg.EdgeOriginURL,
		cache,
		telemetry.New(),
		logger,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.EdgeHTTPPort),
		Handler:           edge.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &EdgeRuntime{cfg: cfg, logger: logger, httpServer: httpServer}, nil
}

func (r *EdgeRuntime) Run(ctx context.Context) error {
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
	return nil
}
