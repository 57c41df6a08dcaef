// Package manifest rewrites adaptive-streaming playlists so every media
// reference routes back through the proxy with a fresh signature.
package manifest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/SultanXM/Reedstreams-Backend/internal/adapters/security"
	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
	"github.com/SultanXM/Reedstreams-Backend/internal/proxyurl"
)

// Context carries the signing parameters of the enclosing proxy request.
// Every rewritten URI in one manifest shares the same expiry and client
// binding; only the target differs.
type Context struct {
	// BaseURL is the manifest's own absolute URL, used to resolve relative
	// segment references.
	BaseURL   string
	Schema    string
	ClientID  string
	Expiry    int64
	ProxyPath string
}

// Rewrite processes the manifest line by line. Directive and blank lines
// pass through byte-identical and in order; URI lines are resolved against
// BaseURL and replaced with signed proxy URLs. Any line that cannot be
// resolved aborts the whole rewrite — emitting a manifest with a mix of
// signed and raw upstream URLs would bypass authorization silently.
func Rewrite(text string, signer *security.URLSigner, rc Context) (string, error) {
	base, err := url.Parse(rc.BaseURL)
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("%w: invalid manifest base url %q", domain.ErrRewriteFailed, rc.BaseURL)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		ref, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("%w: unparseable reference on line %d", domain.ErrRewriteFailed, i+1)
		}
		resolved := base.ResolveReference(ref)
		if !resolved.IsAbs() || resolved.Host == "" {
			return "", fmt.Errorf("%w: reference on line %d does not resolve to an absolute url", domain.ErrRewriteFailed, i+1)
		}

		encoded := proxyurl.EncodeTarget(resolved.String())
		token := security.SignedURL{
			URL:      encoded,
			Schema:   rc.Schema,
			Sig:      signer.Sign(rc.ClientID, rc.Expiry, encoded, rc.Schema),
			Expiry:   rc.Expiry,
			ClientID: rc.ClientID,
		}
		lines[i] = token.ProxyPath(rc.ProxyPath)
	}

	return strings.Join(lines, "\n"), nil
}
