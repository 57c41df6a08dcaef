package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// SignedURL is a stateless, time-bound authorization for one proxy target.
// It is never persisted; everything needed to verify it travels in the
// query string and is recomputed from the server secret.
type SignedURL struct {
	// URL is the url query parameter exactly as it will appear in the
	// proxy request: either a url-safe base64 encoding of the target or a
	// literal http(s) URL. The signature covers this encoded form, not the
	// decoded target, so issuer and verifier never disagree on escaping.
	URL      string
	Schema   string
	Sig      string
	Expiry   int64
	ClientID string
}

// ProxyPath renders the token as a relative proxy URL rooted at path.
func (t SignedURL) ProxyPath(path string) string {
	q := url.Values{}
	q.Set("url", t.URL)
	q.Set("schema", t.Schema)
	q.Set("sig", t.Sig)
	q.Set("exp", strconv.FormatInt(t.Expiry, 10))
	q.Set("client", t.ClientID)
	return path + "?" + q.Encode()
}

// URLSigner issues and verifies MAC-signed proxy URLs.
//
// The canonical message is clientID + decimal expiry + encoded URL +
// schema, in that order. The order is a contract between issuer and
// verifier: changing it invalidates every outstanding token, so it must
// never change without a signature version bump. Schema is bound so a
// token holder cannot flip upstream header profiles on a signed target.
type URLSigner struct {
	secret []byte
}

func NewURLSigner(secret string) *URLSigner {
	return &URLSigner{secret: []byte(secret)}
}

// Sign computes the hex HMAC-SHA256 over the canonical field order.
func (s *URLSigner) Sign(clientID string, expiry int64, encodedURL, schema string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(clientID))
	mac.Write([]byte(strconv.FormatInt(expiry, 10)))
	mac.Write([]byte(encodedURL))
	mac.Write([]byte(schema))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue builds a signed URL valid for ttl from now, bound to clientID.
func (s *URLSigner) Issue(encodedURL, schema string, ttl time.Duration, clientID string) SignedURL {
	expiry := time.Now().Add(ttl).Unix()
	return SignedURL{
		URL:      encodedURL,
		Schema:   schema,
		Sig:      s.Sign(clientID, expiry, encodedURL, schema),
		Expiry:   expiry,
		ClientID: clientID,
	}
}

// Verify recomputes the MAC from the presented fields and checks expiry.
// The comparison is constant time. Expiry and signature failures are
// distinct errors for internal use only; callers surfacing them externally
// must collapse both to a single unauthorized class.
func (s *URLSigner) Verify(clientID string, expiry int64, encodedURL, schema, sig string, now time.Time) error {
	if now.Unix() > expiry {
		return fmt.Errorf("%w: expired at %d", domain.ErrTokenExpired, expiry)
	}
	expected := s.Sign(clientID, expiry, encodedURL, schema)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}
