package application

import (
	"context"
	"fmt"

	"github.com/SultanXM/Reedstreams-Backend/internal/domain"
)

// checkThrottle enforces the per-client budget before any upstream work.
//
// Fixed window: the first request in a window arms a TTL equal to the
// window, every request increments, and counts above the limit are
// rejected until the TTL lapses. A client can burst up to twice the limit
// across a window edge; that is the accepted cost of keeping the store
// interaction to one atomic pipeline.
//
// An unreachable counter store rejects the request. An unlimited free-for-
// all during a store outage costs more than turning traffic away.
func (s *Service) checkThrottle(ctx context.Context, clientID string) error {
	reason, remaining, active, err := s.counters.GetTimeout(ctx, clientID)
	if err != nil {
		s.metrics.Throttled()
		return fmt.Errorf("%w: counter store unavailable: %v", domain.ErrRateLimited, err)
	}
	if active {
		s.metrics.Throttled()
		s.logger.WarnContext(ctx, "client timed out",
			"operation", "rate_limit", "outcome", "throttled",
			"client_id", clientID, "reason", reason, "remaining_s", int(remaining.Seconds()))
		return fmt.Errorf("%w: timed out (%s)", domain.ErrRateLimited, reason)
	}

	count, _, err := s.counters.IncrementWindow(ctx, clientID, s.cfg.RateLimit.Window)
	if err != nil {
		s.metrics.Throttled()
		return fmt.Errorf("%w: counter store unavailable: %v", domain.ErrRateLimited, err)
	}
	if count > s.cfg.RateLimit.Limit {
		s.metrics.Throttled()
		return fmt.Errorf("%w: %d requests in window (limit %d)", domain.ErrRateLimited, count, s.cfg.RateLimit.Limit)
	}
	return nil
}

// recordUpstreamError bumps the client's error score and times the client
// out once it crosses the threshold. Misbehaving players hammering dead
// links would otherwise burn the request budget for everyone behind a NAT.
// Score bookkeeping is best effort; a store error here never fails the
// request that triggered it.
func (s *Service) recordUpstreamError(ctx context.Context, clientID string) {
	if s.cfg.RateLimit.ErrorLimit <= 0 {
		return
	}
	count, _, err := s.counters.IncrementWindow(ctx, "errors:"+clientID, s.cfg.RateLimit.ErrorWindow)
	if err != nil {
		s.logger.WarnContext(ctx, "error score increment failed",
			"operation", "rate_limit", "outcome", "degraded", "error", err.Error())
		return
	}
	if count < s.cfg.RateLimit.ErrorLimit {
		return
	}
	if err := s.counters.SetTimeout(ctx, clientID, "error_score", s.cfg.RateLimit.TimeoutDuration); err != nil {
		s.logger.WarnContext(ctx, "timeout set failed",
			"operation", "rate_limit", "outcome", "degraded", "error", err.Error())
		return
	}
	s.logger.InfoContext(ctx, "client timed out on error score",
		"operation", "rate_limit", "outcome", "timeout_set",
		"client_id", clientID, "error_count", count)
}
