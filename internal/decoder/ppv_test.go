package decoder

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/chacha20"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

type memoryLinkCache struct {
	mu    sync.Mutex
	links map[string]string
}

func newMemoryLinkCache() *memoryLinkCache {
	return &memoryLinkCache{links: map[string]string{}}
}

func (c *memoryLinkCache) GetLink(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	link, ok := c.links[key]
	return link, ok, nil
}

func (c *memoryLinkCache) SetLink(_ context.Context, key, link string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[key] = link
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unrot71 is the inverse rotation, used to build fixtures in the
// provider's custom charset.
func unrot71(in string) string {
	out := []byte(in)
	for i, c := range out {
		if c >= 33 && c <= 126 {
			out[i] = 33 + (c-33+23)%94
		}
	}
	return string(out)
}

// buildFetchResponse assembles a provider /fetch response envelope whose
// decryption yields plaintext.
func buildFetchResponse(t *testing.T, plaintext, key string, nonce []byte) []byte {
	t.Helper()

	cipher, err := chacha20.NewUnauthenticatedCipher([]byte(key), nonce)
	if err != nil {
		t.Fatalf("init fixture cipher: %v", err)
	}
	cipher.SetCounter(1)
	ciphertext := make([]byte, len(plaintext))
	cipher.XORKeyStream(ciphertext, []byte(plaintext))

	encoded := unrot71(base64.StdEncoding.EncodeToString(append(append([]byte{}, nonce...), ciphertext...)))

	envelope := []byte{0x0a}
	envelope = appendVarint(envelope, uint64(len(encoded)))
	envelope = append(envelope, encoded...)
	envelope = append(envelope, 0x12)
	envelope = appendVarint(envelope, uint64(len("buf-den")))
	envelope = append(envelope, "buf-den"...)
	return envelope
}

func TestRot71RoundTrip(t *testing.T) {
	t.Parallel()

	in := "aGVsbG8gd29ybGQ=+/ABCxyz0189"
	if got := rot71(unrot71(in)); got != in {
		t.Fatalf("rotation round trip mismatch: %q -> %q", in, got)
	}
}

func TestDecodeFullPipeline(t *testing.T) {
	t.Parallel()

	const key = "0123456789abcdef0123456789abcdef"
	nonce := []byte("12-byte-nonc")
	playlist := "https://edge.cdn.example.com/live/buf-den/index.m3u8"
	// provider pads the tail with garbage past the extension
	body := buildFetchResponse(t, playlist+"\x00\x07garbage", key, nonce)

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fetch" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		payload, _ := io.ReadAll(r.Body)
		path, _, err := parseEnvelope(payload)
		if err != nil {
			t.Errorf("request envelope malformed: %v", err)
		}
		gotPath = path
		w.Header().Set("island", key)
		_, _ = w.Write(body)
	}))
	defer server.Close()

	links := newMemoryLinkCache()
	d := NewPPVDecoder(server.Client(), links, "test-agent", testLogger())

	embed := server.URL + "/embed/nfl/2026-01-17/buf-den"
	if !d.Matches(embed) {
		t.Fatalf("expected decoder to match %s", embed)
	}

	got, err := d.Decode(context.Background(), embed)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != playlist {
		t.Fatalf("expected %s, got %s", playlist, got)
	}
	if gotPath != "nfl/2026-01-17/buf-den" {
		t.Fatalf("expected stream path in request envelope, got %q", gotPath)
	}

	// second decode must come from the link cache, not another round trip
	if link, ok, _ := links.GetLink(context.Background(), "nfl/2026-01-17/buf-den"); !ok || link != playlist {
		t.Fatalf("expected decoded link cached, got %q ok=%v", link, ok)
	}
}

func TestDecodeServesFromLinkCache(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "should not be called", http.StatusInternalServerError)
	}))
	defer server.Close()

	links := newMemoryLinkCache()
	_ = links.SetLink(context.Background(), "nfl/a/b", "https://cached.example.com/x.m3u8", time.Minute)

	d := NewPPVDecoder(server.Client(), links, "test-agent", testLogger())
	got, err := d.Decode(context.Background(), server.URL+"/embed/nfl/a/b")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got != "https://cached.example.com/x.m3u8" {
		t.Fatalf("expected cached link, got %s", got)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestDecodeRejectsNonEmbedURL(t *testing.T) {
	t.Parallel()

	d := NewPPVDecoder(http.DefaultClient, newMemoryLinkCache(), "test-agent", testLogger())
	if _, err := d.Decode(context.Background(), "https://example.com/watch/123"); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestDecodeRejectsMalformedKeyHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("island", "short")
		_, _ = w.Write([]byte{0x0a, 0x01, 0x41})
	}))
	defer server.Close()

	d := NewPPVDecoder(server.Client(), newMemoryLinkCache(), "test-agent", testLogger())
	if _, err := d.Decode(context.Background(), server.URL+"/embed/x/y"); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestDecryptStreamURLRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	const key = "0123456789abcdef0123456789abcdef"

	// envelope missing the ciphertext field
	if _, err := decryptStreamURL([]byte{0x12, 0x01, 0x41}, key); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected failure for missing field, got %v", err)
	}

	// ciphertext that is not base64 after rotation
	bad := []byte{0x0a, 0x03}
	bad = append(bad, unrot71("^^^")...)
	if _, err := decryptStreamURL(bad, key); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected failure for bad base64, got %v", err)
	}

	// decodes but shorter than a nonce
	short := base64.StdEncoding.EncodeToString([]byte("tiny"))
	envelope := []byte{0x0a}
	envelope = appendVarint(envelope, uint64(len(short)))
	envelope = append(envelope, unrot71(short)...)
	if _, err := decryptStreamURL(envelope, key); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected failure for short ciphertext, got %v", err)
	}
}

func TestExtractPlaylistURLRejectsNonURL(t *testing.T) {
	t.Parallel()

	if _, err := extractPlaylistURL("garbage plaintext"); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected decode failure, got %v", err)
	}
	got, err := extractPlaylistURL("https://a.example.com/x.m3u8\x00junk")
	if err != nil || got != "https://a.example.com/x.m3u8" {
		t.Fatalf("expected trimmed url, got %q err=%v", got, err)
	}
}

func TestRegistryDecodeUnknownProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.Decode(context.Background(), "nope", "https://x/embed/y"); !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("expected decode failure for unknown provider, got %v", err)
	}
}
