package domain

import "errors"

var (
	// ErrUnauthorized covers missing, malformed, or non-verifying signatures.
	// Callers outside the process must not learn which field failed, so the
	// HTTP adapter maps this and ErrTokenExpired to one unauthorized response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is kept distinct internally for logging and for the
	// edge tier's expiry pre-check; externally it is indistinguishable from
	// ErrUnauthorized.
	ErrTokenExpired = errors.New("token expired")
	// ErrRateLimited signals the client exceeded its request window or is
	// serving an error-score timeout.
	ErrRateLimited = errors.New("rate limited")
	// ErrDecodeFailed means a provider-encoded link could not be reversed.
	// The decoder never returns a best-effort URL instead.
	ErrDecodeFailed = errors.New("link decode failed")
	// ErrUpstream covers network failures and unreadable responses from the
	// provider. Non-success upstream statuses are not errors; they pass
	// through with their original status.
	ErrUpstream = errors.New("upstream failure")
	// ErrStoreUnavailable marks a Redis-backed store as unreachable. Each
	// consumer degrades per its own policy: the rate limiter fails closed,
	// the metadata cache falls through to upstream, the edge cache falls
	// through to always-fetch.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRewriteFailed aborts a manifest rewrite. A partially rewritten
	// manifest would leak unsigned upstream URLs, so there is no partial
	// success.
	ErrRewriteFailed = errors.New("manifest rewrite failed")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)
