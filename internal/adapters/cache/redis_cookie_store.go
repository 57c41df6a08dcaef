package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const cookieTTL = 24 * time.Hour

// RedisCookieStore keeps a merged name=value cookie line per upstream host.
// New Set-Cookie values overwrite same-named cookies and extend the TTL, so
// a provider session stays warm while the host keeps getting traffic.
type RedisCookieStore struct {
	client *redis.Client
}

func NewRedisCookieStore(client *redis.Client) *RedisCookieStore {
	return &RedisCookieStore{client: client}
}

func cookieKey(host string) string { return "proxy:cookies:" + host }

func (s *RedisCookieStore) Cookies(ctx context.Context, host string) (string, bool, error) {
	header, err := s.client.Get(ctx, cookieKey(host)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return header, true, nil
}

func (s *RedisCookieStore) StoreCookies(ctx context.Context, host string, setCookies []string) error {
	if len(setCookies) == 0 {
		return nil
	}

	existing, _, err := s.Cookies(ctx, host)
	if err != nil {
		return err
	}

	merged := mergeCookies(existing, setCookies)
	if merged == "" {
		return nil
	}
	return s.client.Set(ctx, cookieKey(host), merged, cookieTTL).Err()
}

// mergeCookies folds Set-Cookie headers into an existing Cookie line,
// replacing same-named pairs and preserving first-seen order.
func mergeCookies(existing string, setCookies []string) string {
	order := make([]string, 0, 8)
	values := make(map[string]string, 8)

	add := func(pair string) {
		name, value, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return
		}
		if _, seen := values[name]; !seen {
			order = append(order, name)
		}
		values[name] = strings.TrimSpace(value)
	}

	for _, pair := range strings.Split(existing, ";") {
		if strings.TrimSpace(pair) != "" {
			add(pair)
		}
	}
	for _, sc := range setCookies {
		// only the leading name=value matters; attributes like Path and
		// Expires are upstream-facing
		pair, _, _ := strings.Cut(sc, ";")
		add(pair)
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, name+"="+values[name])
	}
	return strings.Join(parts, "; ")
}
