package dispatch

import (
	"context"
	"time"

	wrap "github.com/marketfleet/dispatch/pkg/logger/wrapper"
	"github.com/marketfleet/dispatch/pkg/metrics"
)

const timeoutCancelReason = "no courier available"

// RunSweeper cancels requests that stayed PENDING longer than the
// configured timeout. It blocks until the context is done, sweeping on
// every tick.
func (s *Service) RunSweeper(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "pending_sweeper")

	ticker := time.NewTicker(s.cfg.SweepInterval.Std())
	defer ticker.Stop()

	s.l.Info(ctx, "pending sweeper started",
		"timeout", s.cfg.PendingTimeout.Std().String(),
		"interval", s.cfg.SweepInterval.Std().String(),
	)

	for {
		select {
		case <-ctx.Done():
			s.l.Info(ctx, "pending sweeper stopped")
			return
		case <-ticker.C:
			if err := s.SweepExpired(ctx); err != nil {
				s.l.Error(ctx, "sweep failed", err)
			}
		}
	}
}

// SweepExpired performs one sweep pass and broadcasts a cancellation
// event for every request it expired.
func (s *Service) SweepExpired(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.PendingTimeout.Std())

	expired, err := s.repos.request.CancelExpired(ctx, cutoff, timeoutCancelReason)
	if err != nil {
		return wrap.Error(ctx, err)
	}
	if len(expired) == 0 {
		return nil
	}

	metrics.RequestsTimedOutTotal.Add(float64(len(expired)))
	s.l.Info(ctx, "expired pending requests cancelled", "count", len(expired))

	for i := range expired {
		s.broadcast(ctx, &expired[i])
	}
	return nil
}
