// Package proxyurl handles the encoded form of the proxy's url parameter.
// Targets travel as url-safe base64 without padding so they survive query
// strings and manifest lines untouched; literal http(s) URLs are accepted
// on input for hand-built requests.
package proxyurl

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// EncodeTarget encodes an absolute URL into the padded-free url-safe form
// used in signed proxy URLs.
func EncodeTarget(target string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(target))
}

// DecodeTarget reverses EncodeTarget. Literal http(s) URLs pass through.
// Anything that does not decode to an absolute http(s) URL is rejected;
// there is no best-effort fallback.
func DecodeTarget(param string) (string, error) {
	if param == "" {
		return "", fmt.Errorf("%w: empty url parameter", domain.ErrInvalidInput)
	}
	if isHTTP(param) {
		return param, nil
	}

	// tolerate padded input from hand-built URLs
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(param, "="))
	if err != nil {
		return "", fmt.Errorf("%w: invalid url encoding", domain.ErrInvalidInput)
	}
	target := string(raw)
	if !isHTTP(target) {
		return "", fmt.Errorf("%w: decoded url is not absolute http(s)", domain.ErrInvalidInput)
	}
	return target, nil
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
