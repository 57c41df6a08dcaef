package manifest

import (
	"bytes"
	"strings"
)

// ContentTypeM3U8 is set on every rewritten manifest response.
const ContentTypeM3U8 = "application/vnd.apple.mpegurl"

// IsPlaylist reports whether an upstream response is an HLS manifest.
// Providers are sloppy with content types, so the body sniff (#EXT prefix)
// is authoritative when the declared type is ambiguous; anything declared
// video/mp4 is never a playlist.
func IsPlaylist(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "video/mp4") {
		return false
	}
	return strings.Contains(ct, "mpegurl") ||
		strings.Contains(ct, "m3u8") ||
		bytes.HasPrefix(body, []byte("#EXT"))
}

// IsSegment reports whether a content type names a cacheable media segment.
func IsSegment(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "video/mp2t"),
		strings.Contains(ct, "video/mp4"),
		strings.Contains(ct, "audio/aac"),
		strings.Contains(ct, "application/octet-stream"):
		return true
	}
	return false
}
