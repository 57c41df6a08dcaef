package application

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	"github.com/SultanXM/Reedstreams-Backend/internal/decoder"
	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
	"github.com/SultanXM/Reedstreams-Backend/internal/telemetry"
)

const testSecret = "unit-test-secret"

type fakeCounterStore struct {
	mu       sync.Mutex
	counts   map[string]int64
	timeouts map[string]string
	failAll  bool
}

func newFakeCounterStore() *fakeCounterStore {
	return &fakeCounterStore{counts: map[string]int64{}, timeouts: map[string]string{}}
}

func (s *fakeCounterStore) IncrementWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return 0, 0, context.DeadlineExceeded
	}
	s.counts[key]++
	return s.counts[key], window, nil
}

func (s *fakeCounterStore) SetTimeout(_ context.Context, key, reason string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return context.DeadlineExceeded
	}
	s.timeouts[key] = reason
	return nil
}

func (s *fakeCounterStore) GetTimeout(_ context.Context, key string) (string, time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", 0, false, context.DeadlineExceeded
	}
	reason, ok := s.timeouts[key]
	if !ok {
		return "", 0, false, nil
	}
	return reason, time.Minute, true, nil
}

// resetWindow mimics the TTL lapsing on a key.
func (s *fakeCounterStore) resetWindow(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, key)
}

type fakeGameStore struct {
	mu        sync.Mutex
	games     map[string]map[int64]domain.Game
	lastFetch map[string]int64
	failReads bool
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{games: map[string]map[int64]domain.Game{}, lastFetch: map[string]int64{}}
}

func (s *fakeGameStore) StoreGame(_ context.Context, provider string, game domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.games[provider] == nil {
		s.games[provider] = map[int64]domain.Game{}
	}
	s.games[provider][game.ID] = game
	return nil
}

func (s *fakeGameStore) GetGame(_ context.Context, provider string, id int64) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, context.DeadlineExceeded
	}
	game, ok := s.games[provider][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &game, nil
}

func (s *fakeGameStore) GetGames(_ context.Context, provider string) ([]domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return nil, context.DeadlineExceeded
	}
	out := make([]domain.Game, 0, len(s.games[provider]))
	for _, game := range s.games[provider] {
		out = append(out, game)
	}
	return out, nil
}

func (s *fakeGameStore) ClearProvider(_ context.Context, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, provider)
	delete(s.lastFetch, provider)
	return nil
}

func (s *fakeGameStore) SetLastFetchTime(_ context.Context, provider string, unixSeconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetch[provider] = unixSeconds
	return nil
}

func (s *fakeGameStore) LastFetchTime(_ context.Context, provider string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.lastFetch[provider]
	return ts, ok, nil
}

type fakeCookieStore struct {
	mu     sync.Mutex
	jar    map[string]string
	stored map[string][][]string
}

func newFakeCookieStore() *fakeCookieStore {
	return &fakeCookieStore{jar: map[string]string{}, stored: map[string][][]string{}}
}

func (s *fakeCookieStore) Cookies(_ context.Context, host string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header, ok := s.jar[host]
	return header, ok, nil
}

func (s *fakeCookieStore) StoreCookies(_ context.Context, host string, setCookies []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[host] = append(s.stored[host], setCookies)
	return nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	games    []domain.Game
	err      error
	listCall int
	getCall  int
}

func (f *fakeCatalog) FetchGames(_ context.Context) ([]domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCall++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Game(nil), f.games...), nil
}

func (f *fakeCatalog) FetchGame(_ context.Context, id int64) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCall++
	if f.err != nil {
		return nil, f.err
	}
	for _, game := range f.games {
		if game.ID == id {
			g := game
			return &g, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeFetcher struct {
	mu       sync.Mutex
	response *ports.UpstreamResponse
	err      error
	calls    int
	targets  []string
	cookies  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, targetURL, _ string, _ http.Header, cookies string) (*ports.UpstreamResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.targets = append(f.targets, targetURL)
	f.cookies = append(f.cookies, cookies)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type testEnv struct {
	svc      *Service
	counters *fakeCounterStore
	games    *fakeGameStore
	cookies  *fakeCookieStore
	catalog  *fakeCatalog
	fetcher  *fakeFetcher
	signer   *security.URLSigner
}

func newTestEnv() *testEnv {
	counters := newFakeCounterStore()
	games := newFakeGameStore()
	cookies := newFakeCookieStore()
	catalog := &fakeCatalog{}
	fetcher := &fakeFetcher{}
	signer := security.NewURLSigner(testSecret)

	svc := NewService(Dependencies{
		Config: Config{
			SignedURLTTL:  time.Hour,
			MetadataTTL:   5 * time.Minute,
			SegmentMaxAge: 10 * time.Minute,
			ProxyPath:     "/proxy",
			DefaultSchema: "sports",
			RateLimit: RateLimitConfig{
				Limit:           5,
				Window:          time.Minute,
				ErrorLimit:      3,
				ErrorWindow:     time.Minute,
				TimeoutDuration: 10 * time.Minute,
			},
		},
		Counters: counters,
		Games:    games,
		Cookies:  cookies,
		Catalogs: map[string]ports.CatalogFetcher{"ppv": catalog},
		Fetcher:  fetcher,
		Decoders: decoder.NewRegistry(),
		Signer:   signer,
		Metrics:  telemetry.New(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return &testEnv{
		svc:      svc,
		counters: counters,
		games:    games,
		cookies:  cookies,
		catalog:  catalog,
		fetcher:  fetcher,
		signer:   signer,
	}
}
