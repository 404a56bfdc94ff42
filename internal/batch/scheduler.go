// internal/batch/scheduler.go
package batch

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler triggers the batch jobs on fixed intervals. It is the in-process
// stand-in for an external cron: schedule-triggered runs process the full
// tracked set (no limit), unlike HTTP-triggered runs.
type Scheduler struct {
	svc             *Service
	logger          *slog.Logger
	collectInterval time.Duration
	rankingInterval time.Duration
}

// NewScheduler creates a Scheduler around the given batch service.
func NewScheduler(svc *Service, logger *slog.Logger, collectInterval, rankingInterval time.Duration) *Scheduler {
	return &Scheduler{
		svc:             svc,
		logger:          logger,
		collectInterval: collectInterval,
		rankingInterval: rankingInterval,
	}
}

// Start runs the schedule loop until ctx is cancelled. An initial collection
// pass runs immediately so a fresh deployment has data without waiting a full
// interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting scheduler",
		"collect_interval", s.collectInterval.String(),
		"ranking_interval", s.rankingInterval.String())

	collectTicker := time.NewTicker(s.collectInterval)
	defer collectTicker.Stop()
	rankingTicker := time.NewTicker(s.rankingInterval)
	defer rankingTicker.Stop()

	s.runCollection(ctx)

	for {
		select {
		case <-collectTicker.C:
			s.runCollection(ctx)
		case <-rankingTicker.C:
			s.runRanking(ctx)
		case <-ctx.Done():
			s.logger.Info("Scheduler shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Scheduler) runCollection(ctx context.Context) {
	if _, err := s.svc.RunDailyCollection(ctx, 0); err != nil {
		s.logger.Error("Scheduled daily collection failed", "error", err)
	}
}

func (s *Scheduler) runRanking(ctx context.Context) {
	if _, err := s.svc.RunWeeklyRankingCalculation(ctx, nil); err != nil {
		s.logger.Error("Scheduled weekly ranking calculation failed", "error", err)
	}
}
