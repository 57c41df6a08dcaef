package manifest

import "testing"

func TestIsPlaylist(t *testing.T) {
	t.Parallel()

	if !IsPlaylist("application/vnd.apple.mpegurl", nil) {
		t.Fatal("mpegurl content type should classify as playlist")
	}
	if !IsPlaylist("text/plain", []byte("#EXTM3U\n#EXT-X-VERSION:3")) {
		t.Fatal("body starting with #EXT should classify as playlist")
	}
	if !IsPlaylist("audio/x-mpegurl; charset=utf-8", nil) {
		t.Fatal("mpegurl with parameters should classify as playlist")
	}
	if IsPlaylist("video/mp4", []byte("#EXT")) {
		t.Fatal("video/mp4 must never classify as playlist")
	}
	if IsPlaylist("video/mp2t", []byte{0x47, 0x40, 0x00}) {
		t.Fatal("transport stream should not classify as playlist")
	}
}

func TestIsSegment(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{"video/MP2T", "video/mp4", "audio/aac", "application/octet-stream"} {
		if !IsSegment(ct) {
			t.Fatalf("%s should classify as segment", ct)
		}
	}
	for _, ct := range []string{"application/vnd.apple.mpegurl", "text/html", ""} {
		if IsSegment(ct) {
			t.Fatalf("%s should not classify as segment", ct)
		}
	}
}
