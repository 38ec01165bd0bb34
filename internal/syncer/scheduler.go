package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler fires the coordinator on a fixed interval and once shortly
// after startup, so dependencies have a moment to finish initializing.
// It carries no business logic; overlap is the coordinator's problem.
type Scheduler struct {
	logger       *zap.Logger
	coordinator  *Coordinator
	interval     time.Duration
	startupDelay time.Duration
}

// NewScheduler creates a scheduler around the given coordinator.
func NewScheduler(logger *zap.Logger, coordinator *Coordinator, interval, startupDelay time.Duration) *Scheduler {
	return &Scheduler{
		logger:       logger,
		coordinator:  coordinator,
		interval:     interval,
		startupDelay: startupDelay,
	}
}

// Run blocks until the context is cancelled, triggering a sync after the
// startup delay and then on every interval tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting sync scheduler",
		zap.Duration("interval", s.interval),
		zap.Duration("startup_delay", s.startupDelay),
	)

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startupDelay):
		s.fire(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync scheduler")
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.coordinator.MarkScheduledTick(time.Now())
	if msg, started := s.coordinator.TriggerSync(ctx); !started {
		s.logger.Info("Scheduled sync skipped", zap.String("reason", msg))
	}
}
