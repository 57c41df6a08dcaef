package cache

import "testing"

func TestMergeCookies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		existing   string
		setCookies []string
		want       string
	}{
		{
			name:       "fresh jar",
			existing:   "",
			setCookies: []string{"cf_clearance=abc; Path=/; HttpOnly"},
			want:       "cf_clearance=abc",
		},
		{
			name:       "replaces same-named cookie in place",
			existing:   "session=old; lang=en",
			setCookies: []string{"session=new; Path=/"},
			want:       "session=new; lang=en",
		},
		{
			name:       "appends new cookies after existing ones",
			existing:   "session=abc",
			setCookies: []string{"region=us; Secure", "theme=dark"},
			want:       "session=abc; region=us; theme=dark",
		},
		{
			name:       "strips attributes after the first pair",
			existing:   "",
			setCookies: []string{"id=42; Expires=Wed, 21 Oct 2026 07:28:00 GMT; Domain=.example.com"},
			want:       "id=42",
		},
		{
			name:       "drops malformed headers without a pair",
			existing:   "session=abc",
			setCookies: []string{"no-equals-sign", "=orphan-value"},
			want:       "session=abc",
		},
		{
			name:       "last write wins within one batch",
			existing:   "",
			setCookies: []string{"token=first", "token=second"},
			want:       "token=second",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mergeCookies(tc.existing, tc.setCookies); got != tc.want {
				t.Fatalf("mergeCookies(%q, %v) = %q, want %q", tc.existing, tc.setCookies, got, tc.want)
			}
		})
	}
}
