package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DeriveClientID turns (IP, User-Agent) into a stable pseudonymous handle.
// The derivation is keyed with the deployment secret so the handle is
// deterministic per deployment but not reversible to the raw inputs, and a
// handle from one deployment is useless against another.
//
// A missing user agent still yields a handle; the binding is just weaker.
// There is no failure path.
func DeriveClientID(secret, ip, userAgent string) string {
	if ip == "" {
		ip = "unknown"
	}
	if userAgent == "" {
		userAgent = "unknown"
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ip))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(userAgent))
	return hex.EncodeToString(mac.Sum(nil))[:32]
}
