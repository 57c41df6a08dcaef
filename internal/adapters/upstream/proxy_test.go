package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

func newProxyFetcher(server *httptest.Server) *HTTPProxyFetcher {
	profiles := map[string]SchemaProfile{
		"sports": {
			Referer:   "https://api.ppv.to/api/streams/",
			Origin:    "https://api.ppv.to/api/streams",
			UserAgent: "chrome-ua",
			HostOverrides: map[string]SchemaProfile{
				"127.0.0.1": {
					Referer:   "https://modistreams.org/",
					Origin:    "https://ppv.to",
					UserAgent: "chrome-ua",
				},
			},
		},
		"captions": {UserAgent: "firefox-ua"},
	}
	return NewHTTPProxyFetcher(server.Client(), profiles, 1<<20, testLogger())
}

func TestFetchAppliesSchemaHeaders(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "video/mp2t")
		_, _ = w.Write([]byte("seg"))
	}))
	defer server.Close()

	f := newProxyFetcher(server)
	clientHeader := http.Header{
		"Range":           []string{"bytes=0-1023"},
		"Referer":         []string{"https://attacker.example.com/"},
		"User-Agent":      []string{"player/1.0"},
		"Accept-Encoding": []string{"br"},
		"Cookie":          []string{"tracking=1"},
	}

	resp, err := f.Fetch(context.Background(), server.URL+"/seg1.ts", "captions", clientHeader, "session=abc")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if resp.Status != http.StatusOK || string(resp.Body) != "seg" {
		t.Fatalf("unexpected response %d %q", resp.Status, resp.Body)
	}

	if got.Get("Range") != "bytes=0-1023" {
		t.Fatalf("range header not forwarded: %q", got.Get("Range"))
	}
	if got.Get("User-Agent") != "firefox-ua" {
		t.Fatalf("client user agent leaked upstream: %q", got.Get("User-Agent"))
	}
	if got.Get("Referer") != "" {
		t.Fatalf("client referer leaked upstream: %q", got.Get("Referer"))
	}
	if got.Get("Cookie") != "session=abc" {
		t.Fatalf("expected stored cookies, got %q", got.Get("Cookie"))
	}
	if got.Get("Accept") != "*/*" {
		t.Fatalf("expected default accept header, got %q", got.Get("Accept"))
	}
}

func TestFetchHostOverrideReplacesProfile(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("seg"))
	}))
	defer server.Close()

	f := newProxyFetcher(server)
	target := server.URL + "/seg1.ts"
	if !strings.Contains(target, "127.0.0.1") {
		t.Skipf("test server not on 127.0.0.1: %s", target)
	}

	if _, err := f.Fetch(context.Background(), target, "sports", http.Header{}, ""); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.Get("Referer") != "https://modistreams.org/" || got.Get("Origin") != "https://ppv.to" {
		t.Fatalf("host override not applied: referer=%q origin=%q", got.Get("Referer"), got.Get("Origin"))
	}
}

func TestFetchUnknownSchemaFallsBackToSports(t *testing.T) {
	t.Parallel()

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("seg"))
	}))
	defer server.Close()

	f := NewHTTPProxyFetcher(server.Client(), map[string]SchemaProfile{
		"sports": {Referer: "https://api.ppv.to/api/streams/", UserAgent: "chrome-ua"},
	}, 1<<20, testLogger())

	if _, err := f.Fetch(context.Background(), server.URL+"/seg1.ts", "mystery", http.Header{}, ""); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got.Get("Referer") != "https://api.ppv.to/api/streams/" {
		t.Fatalf("expected sports fallback, got referer %q", got.Get("Referer"))
	}
}

func TestFetchCapsBodyAtLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	f := NewHTTPProxyFetcher(server.Client(), map[string]SchemaProfile{"sports": {}}, 1024, testLogger())
	resp, err := f.Fetch(context.Background(), server.URL+"/big.ts", "sports", http.Header{}, "")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Fatalf("expected body capped at 1024 bytes, got %d", len(resp.Body))
	}
}

func TestFetchRejectsUnparseableTarget(t *testing.T) {
	t.Parallel()

	f := NewHTTPProxyFetcher(http.DefaultClient, map[string]SchemaProfile{"sports": {}}, 1024, testLogger())
	if _, err := f.Fetch(context.Background(), "http://bad host/x", "sports", http.Header{}, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
