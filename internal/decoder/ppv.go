package decoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/ports"
)

const (
	// decoded links churn as the provider rotates stream hosts
	linkCacheTTL = 5 * time.Minute

	ppvKeyHeader = "island"
	ppvKeySize   = 32
	ppvNonceSize = 12
)

// PPVDecoder reverses the ppv provider's embed-link obfuscation. The embed
// URL only identifies a stream path; the real playlist URL comes from the
// provider's /fetch endpoint as a protobuf envelope whose first field is a
// custom-charset ciphertext: ROT-71 maps the charset back to standard
// base64, and the decoded bytes are a 12-byte nonce followed by a ChaCha20
// ciphertext keyed by the response's island header with the block counter
// starting at 1.
type PPVDecoder struct {
	client    *http.Client
	links     ports.LinkCache
	userAgent string
	logger    *slog.Logger
}

func NewPPVDecoder(client *http.Client, links ports.LinkCache, userAgent string, logger *slog.Logger) *PPVDecoder {
	return &PPVDecoder{
		client:    client,
		links:     links,
		userAgent: userAgent,
		logger:    logger.With("module", "decoder", "provider", "ppv"),
	}
}

// Matches recognizes the provider's embed links.
func (d *PPVDecoder) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/embed/")
}

// Decode resolves an embed URL to the real playlist URL, consulting the
// link cache first. A cache read failure degrades to the decode round trip.
func (d *PPVDecoder) Decode(ctx context.Context, encodedLink string) (string, error) {
	u, err := url.Parse(encodedLink)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: unparseable embed url", domain.ErrDecodeFailed)
	}
	streamPath := strings.TrimPrefix(u.Path, "/embed/")
	if streamPath == u.Path || streamPath == "" {
		return "", fmt.Errorf("%w: embed url missing /embed/ path", domain.ErrDecodeFailed)
	}

	if link, ok, err := d.links.GetLink(ctx, streamPath); err == nil && ok {
		return link, nil
	} else if err != nil {
		d.logger.WarnContext(ctx, "link cache read failed, decoding upstream",
			"operation", "decode_link", "error", err.Error())
	}

	link, err := d.fetchAndDecrypt(ctx, u, streamPath)
	if err != nil {
		return "", err
	}

	if err := d.links.SetLink(ctx, streamPath, link, linkCacheTTL); err != nil {
		d.logger.WarnContext(ctx, "link cache write failed",
			"operation", "decode_link", "outcome", "degraded", "error", err.Error())
	}
	return link, nil
}

func (d *PPVDecoder) fetchAndDecrypt(ctx context.Context, embed *url.URL, streamPath string) (string, error) {
	baseURL := embed.Scheme + "://" + embed.Host

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/fetch",
		bytes.NewReader(encodeEnvelope(streamPath)))
	if err != nil {
		return "", fmt.Errorf("%w: build fetch request: %v", domain.ErrDecodeFailed, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Origin", baseURL)
	req.Header.Set("Referer", embed.String())

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch endpoint: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch endpoint returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	key := resp.Header.Get(ppvKeyHeader)
	if len(key) != ppvKeySize {
		return "", fmt.Errorf("%w: missing or malformed %s header", domain.ErrDecodeFailed, ppvKeyHeader)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read fetch response: %v", domain.ErrUpstream, err)
	}

	return decryptStreamURL(blob, key)
}

// decryptStreamURL runs the full pipeline: envelope parse, ROT-71, base64,
// ChaCha20. Any step failing is a decode failure; no partial output.
func decryptStreamURL(blob []byte, key string) (string, error) {
	ciphertext, _, err := parseEnvelope(blob)
	if err != nil {
		return "", err
	}

	decoded, err := base64.StdEncoding.DecodeString(rot71(ciphertext))
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not base64 after rotation", domain.ErrDecodeFailed)
	}
	if len(decoded) < ppvNonceSize {
		return "", fmt.Errorf("%w: ciphertext shorter than nonce", domain.ErrDecodeFailed)
	}

	cipher, err := chacha20.NewUnauthenticatedCipher([]byte(key), decoded[:ppvNonceSize])
	if err != nil {
		return "", fmt.Errorf("%w: init cipher: %v", domain.ErrDecodeFailed, err)
	}
	// provider's keystream starts at block 1, not 0
	cipher.SetCounter(1)

	plain := make([]byte, len(decoded)-ppvNonceSize)
	cipher.XORKeyStream(plain, decoded[ppvNonceSize:])

	return extractPlaylistURL(string(plain))
}

// extractPlaylistURL trims decrypted plaintext at the playlist extension;
// the provider pads the tail with garbage bytes.
func extractPlaylistURL(plain string) (string, error) {
	if idx := strings.Index(plain, ".m3u8"); idx >= 0 {
		plain = plain[:idx+len(".m3u8")]
	} else {
		end := len(plain)
		for i := 0; i < len(plain); i++ {
			if plain[i] < 0x20 || plain[i] > 0x7e {
				end = i
				break
			}
		}
		plain = plain[:end]
	}
	if !strings.HasPrefix(plain, "http://") && !strings.HasPrefix(plain, "https://") {
		return "", fmt.Errorf("%w: decrypted value is not a url", domain.ErrDecodeFailed)
	}
	return plain, nil
}

// rot71 rotates printable ASCII (33..126, 94 symbols) forward by 71,
// mapping the provider's custom charset onto standard base64.
func rot71(in string) string {
	out := []byte(in)
	for i, c := range out {
		if c >= 33 && c <= 126 {
			out[i] = 33 + (c-33+71)%94
		}
	}
	return string(out)
}

// encodeEnvelope builds the request envelope: tag 0x0a, varint length,
// then the stream path bytes.
func encodeEnvelope(streamPath string) []byte {
	path := []byte(streamPath)
	out := make([]byte, 0, len(path)+6)
	out = append(out, 0x0a)
	out = appendVarint(out, uint64(len(path)))
	return append(out, path...)
}

func appendVarint(out []byte, n uint64) []byte {
	for n >= 0x80 {
		out = append(out, byte(n)|0x80)
		n >>= 7
	}
	return append(out, byte(n))
}

// parseEnvelope extracts the two length-delimited fields of the response
// envelope: field 1 (0x0a) is the encoded ciphertext, field 2 (0x12) the
// stream name.
func parseEnvelope(buf []byte) (ciphertext, name string, err error) {
	offset := 0
	var field1, field2 *string

	for offset < len(buf) {
		tag := buf[offset]
		offset++

		length, n, ok := readVarint(buf[offset:])
		if !ok {
			break
		}
		offset += n
		if offset+length > len(buf) {
			break
		}
		data := string(buf[offset : offset+length])
		offset += length

		switch tag {
		case 0x0a:
			field1 = &data
		case 0x12:
			field2 = &data
		}
	}

	if field1 == nil {
		return "", "", fmt.Errorf("%w: envelope missing ciphertext field", domain.ErrDecodeFailed)
	}
	if field2 != nil {
		name = *field2
	}
	return *field1, name, nil
}

func readVarint(buf []byte) (value, bytesRead int, ok bool) {
	shift := 0
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		value |= int(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, i + 1, true
		}
		shift += 7
		if shift > 35 {
			return 0, 0, false
		}
	}
	return 0, 0, false
}
