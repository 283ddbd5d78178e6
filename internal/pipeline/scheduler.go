package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler triggers recurring runs on a fixed interval, retrying a failed
// run a bounded number of times with a fixed delay between attempts. There is
// no checkpointing: a run that exhausts its retries is abandoned and the next
// tick starts from scratch.
type Scheduler struct {
	runner     *Runner
	logger     *zap.Logger
	interval   time.Duration
	maxRetries int
	retryDelay time.Duration

	// active rejects a tick that arrives while the previous run, including
	// its retries, is still in flight.
	active sync.Mutex
}

func NewScheduler(runner *Runner, logger *zap.Logger, interval time.Duration, maxRetries int, retryDelay time.Duration) *Scheduler {
	return &Scheduler{
		runner:     runner,
		logger:     logger,
		interval:   interval,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Start runs one immediate run and then ticks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("maxRetries", s.maxRetries),
		zap.Duration("retryDelay", s.retryDelay))

	s.runWithRetries(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runWithRetries(ctx)
		}
	}
}

func (s *Scheduler) runWithRetries(ctx context.Context) {
	if !s.active.TryLock() {
		s.logger.Warn("Previous run still active, skipping tick")
		return
	}
	defer s.active.Unlock()

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.runner.Run(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.logger.Error("Run failed",
			zap.Int("attempt", attempt),
			zap.Int("maxRetries", s.maxRetries),
			zap.Error(err))

		if attempt == s.maxRetries {
			s.logger.Error("Run abandoned after exhausting retries")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}
