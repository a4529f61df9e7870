package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quizlive-service/internal/domain"
)

// DefaultStaleThreshold is how long a session may sit unfinished before the
// reaper force-ends it.
const DefaultStaleThreshold = 2 * time.Hour

// ReapStaleSessions force-terminates sessions abandoned in a non-terminal
// state beyond the threshold. A failure on one record is logged and skipped;
// it never blocks cleanup of the rest.
func (s *GameService) ReapStaleSessions(ctx context.Context, now time.Time, threshold time.Duration) (domain.ReapReport, error) {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	stale, err := s.sessions.ListStale(ctx, now.Add(-threshold))
	if err != nil {
		return domain.ReapReport{}, err
	}

	report := domain.ReapReport{StaleFound: len(stale)}
	for _, sess := range stale {
		if _, err := s.end(ctx, sess.ID, domain.EndReasonTimeout); err != nil {
			s.logger.Warn("reap skipped session",
				zap.String("session_id", sess.ID),
				zap.Error(err))
			continue
		}
		s.broadcast(ctx, sess.ID)
		report.Ended++
	}
	if report.StaleFound > 0 {
		s.logger.Info("reap sweep finished",
			zap.Int("stale_found", report.StaleFound),
			zap.Int("ended", report.Ended))
	}
	return report, nil
}

// RunReaper sweeps on a fixed interval until the context is canceled. It is
// the durable fallback for hosts whose end notification never arrived.
func (s *GameService) RunReaper(ctx context.Context, interval, threshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, interval)
			if _, err := s.ReapStaleSessions(sweepCtx, s.now(), threshold); err != nil {
				s.logger.Error("reap sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}
