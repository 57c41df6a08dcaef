package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for both tiers. It merges
// file defaults and environment overrides to support local and deployed
// runs with one binary each.
type Config struct {
	ServiceID string

	HTTPPort int

	RedisURL string

	// AccessTokenSecret keys both URL signing and client identity
	// derivation. Rotating it invalidates every outstanding signed URL.
	AccessTokenSecret string

	AllowedOrigins []string

	SignedURLTTL             time.Duration
	MetadataTTL              time.Duration
	SegmentMaxAge            time.Duration
	UpstreamTimeout          time.Duration
	MaxBodyBytes             int64
	AllowUnsignedPassthrough bool

	RateLimitRequests   int
	RateLimitWindow     time.Duration
	ErrorScoreLimit     int
	ErrorScoreWindow    time.Duration
	ErrorTimeoutMinutes time.Duration

	CatalogBaseURL string
	DecoderUA      string

	// edge tier
	EdgeHTTPPort     int
	EdgeOriginURL    string
	EdgeCacheTTL     time.Duration
	EdgeCacheBytes   int64
	EdgeFetchTimeout time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		RedisURL string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Proxy struct {
		AllowedOrigins           []string `yaml:"allowed_origins"`
		SignedURLTTLHours        int      `yaml:"signed_url_ttl_hours"`
		AllowUnsignedPassthrough bool     `yaml:"allow_unsigned_passthrough"`
		UpstreamTimeoutSeconds   int      `yaml:"upstream_timeout_seconds"`
		MaxBodyMB                int      `yaml:"max_body_mb"`
	} `yaml:"proxy"`
	RateLimit struct {
		Requests            int `yaml:"requests"`
		WindowSeconds       int `yaml:"window_seconds"`
		ErrorLimit          int `yaml:"error_limit"`
		ErrorWindowSeconds  int `yaml:"error_window_seconds"`
		ErrorTimeoutMinutes int `yaml:"error_timeout_minutes"`
	} `yaml:"rate_limit"`
	Catalog struct {
		BaseURL    string `yaml:"base_url"`
		TTLMinutes int    `yaml:"ttl_minutes"`
	} `yaml:"catalog"`
	Edge struct {
		HTTPPort            int    `yaml:"http_port"`
		OriginURL           string `yaml:"origin_url"`
		CacheTTLMinutes     int    `yaml:"cache_ttl_minutes"`
		CacheMB             int    `yaml:"cache_mb"`
		FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
	} `yaml:"edge"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "reedstreams-backend",
		HTTPPort:            8080,
		AllowedOrigins:      []string{"*"},
		SignedURLTTL:        12 * time.Hour,
		MetadataTTL:         5 * time.Minute,
		SegmentMaxAge:       10 * time.Minute,
		UpstreamTimeout:     30 * time.Second,
		MaxBodyBytes:        64 << 20,
		RateLimitRequests:   600,
		RateLimitWindow:     time.Minute,
		ErrorScoreLimit:     30,
		ErrorScoreWindow:    time.Minute,
		ErrorTimeoutMinutes: 10 * time.Minute,
		CatalogBaseURL:      "https://api.ppv.to",
		DecoderUA:           "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:148.0) Gecko/20100101 Firefox/148.0",
		EdgeHTTPPort:        8081,
		EdgeOriginURL:       "http://localhost:8080",
		EdgeCacheTTL:        10 * time.Minute,
		EdgeCacheBytes:      256 << 20,
		EdgeFetchTimeout:    35 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Proxy.AllowedOrigins) > 0 {
			cfg.AllowedOrigins = f.Proxy.AllowedOrigins
		}
		if f.Proxy.SignedURLTTLHours > 0 {
			cfg.SignedURLTTL = time.Duration(f.Proxy.SignedURLTTLHours) * time.Hour
		}
		cfg.AllowUnsignedPassthrough = f.Proxy.AllowUnsignedPassthrough
		if f.Proxy.UpstreamTimeoutSeconds > 0 {
			cfg.UpstreamTimeout = time.Duration(f.Proxy.UpstreamTimeoutSeconds) * time.Second
		}
		if f.Proxy.MaxBodyMB > 0 {
			cfg.MaxBodyBytes = int64(f.Proxy.MaxBodyMB) << 20
		}
		if f.RateLimit.Requests > 0 {
			cfg.RateLimitRequests = f.RateLimit.Requests
		}
		if f.RateLimit.WindowSeconds > 0 {
			cfg.RateLimitWindow = time.Duration(f.RateLimit.WindowSeconds) * time.Second
		}
		if f.RateLimit.ErrorLimit > 0 {
			cfg.ErrorScoreLimit = f.RateLimit.ErrorLimit
		}
		if f.RateLimit.ErrorWindowSeconds > 0 {
			cfg.ErrorScoreWindow = time.Duration(f.RateLimit.ErrorWindowSeconds) * time.Second
		}
		if f.RateLimit.ErrorTimeoutMinutes > 0 {
			cfg.ErrorTimeoutMinutes = time.Duration(f.RateLimit.ErrorTimeoutMinutes) * time.Minute
		}
		if f.Catalog.BaseURL != "" {
			cfg.CatalogBaseURL = f.Catalog.BaseURL
		}
		if f.Catalog.TTLMinutes > 0 {
			cfg.MetadataTTL = time.Duration(f.Catalog.TTLMinutes) * time.Minute
		}
		if f.Edge.HTTPPort > 0 {
			cfg.EdgeHTTPPort = f.Edge.HTTPPort
		}
		if f.Edge.OriginURL != "" {
			cfg.EdgeOriginURL = f.Edge.OriginURL
		}
		if f.Edge.CacheTTLMinutes > 0 {
			cfg.EdgeCacheTTL = time.Duration(f.Edge.CacheTTLMinutes) * time.Minute
		}
		if f.Edge.CacheMB > 0 {
			cfg.EdgeCacheBytes = int64(f.Edge.CacheMB) << 20
		}
		if f.Edge.FetchTimeoutSeconds > 0 {
			cfg.EdgeFetchTimeout = time.Duration(f.Edge.FetchTimeoutSeconds) * time.Second
		}
	}

	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AccessTokenSecret = envOrDefault("ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret)
	cfg.AllowedOrigins = envCSV("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.AllowUnsignedPassthrough = envBool("ALLOW_UNSIGNED_PASSTHROUGH", cfg.AllowUnsignedPassthrough)
	cfg.CatalogBaseURL = envOrDefault("CATALOG_BASE_URL", cfg.CatalogBaseURL)
	cfg.EdgeOriginURL = envOrDefault("EDGE_ORIGIN_URL", cfg.EdgeOriginURL)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.EdgeHTTPPort = envInt("EDGE_HTTP_PORT", cfg.EdgeHTTPPort)
	cfg.RateLimitRequests = envInt("RATE_LIMIT_REQUESTS", cfg.RateLimitRequests)
	cfg.ErrorScoreLimit = envInt("ERROR_SCORE_LIMIT", cfg.ErrorScoreLimit)

	cfg.SignedURLTTL = time.Duration(envInt("SIGNED_URL_TTL_HOURS", int(cfg.SignedURLTTL.Hours()))) * time.Hour
	cfg.MetadataTTL = time.Duration(envInt("CATALOG_TTL_MINUTES", int(cfg.MetadataTTL.Minutes()))) * time.Minute
	cfg.UpstreamTimeout = time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", int(cfg.UpstreamTimeout.Seconds()))) * time.Second
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second
	cfg.ErrorScoreWindow = time.Duration(envInt("ERROR_SCORE_WINDOW_SECONDS", int(cfg.ErrorScoreWindow.Seconds()))) * time.Second
	cfg.ErrorTimeoutMinutes = time.Duration(envInt("ERROR_TIMEOUT_MINUTES", int(cfg.ErrorTimeoutMinutes.Minutes()))) * time.Minute
	cfg.EdgeCacheTTL = time.Duration(envInt("EDGE_CACHE_TTL_MINUTES", int(cfg.EdgeCacheTTL.Minutes()))) * time.Minute

	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.AccessTokenSecret == "" {
		return Config{}, fmt.Errorf("missing ACCESS_TOKEN_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
