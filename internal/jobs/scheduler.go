// Package jobs runs the scheduled payout sweep.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matic113/freelance-platform-sub003/internal/metrics"
	"github.com/robfig/cron/v3"
)

// PayoutDispatcher re-sends payout orders for approved, unsettled requests.
type PayoutDispatcher interface {
	DispatchPayouts(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	payouts   PayoutDispatcher
	olderThan time.Duration
	logger    *slog.Logger
}

func NewScheduler(payouts PayoutDispatcher, olderThan time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		payouts:   payouts,
		olderThan: olderThan,
		logger:    logger,
	}
}

// Start registers the payout sweep on spec (standard five-field cron or a
// descriptor such as "@every 5m") and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("running payout sweep")
		s.RunPayoutSweep(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling payout sweep %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "payout_sweep", spec, "older_than", s.olderThan.String())
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunPayoutSweep dispatches once and records the outcome. It returns the
// number of orders sent and the number that failed.
func (s *Scheduler) RunPayoutSweep(ctx context.Context) (sent, failed int) {
	sent, err := s.payouts.DispatchPayouts(ctx, s.olderThan)
	if err != nil {
		failed = countErrors(err)
		s.logger.Warn("payout sweep finished with failures", "sent", sent, "failed", failed, "error", err)
	} else if sent > 0 {
		s.logger.Info("payout sweep dispatched orders", "sent", sent)
	}
	metrics.RecordPayoutSweep(sent, failed)
	return sent, failed
}

// countErrors counts the leaves of a joined error.
func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
