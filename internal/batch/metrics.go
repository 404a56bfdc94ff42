// internal/batch/metrics.go
package batch

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github-trend-tracker/internal/model"
)

// Number of repositories whose metrics are recalculated in parallel. The
// metrics pass only touches the store, never GitHub, so bounded fan-out is
// safe here.
const metricsConcurrency = 5

// MetricsSummary is the JSON-serializable result of one metrics run.
type MetricsSummary struct {
	Message        string `json:"message"`
	Total          int    `json:"total"`
	Success        int    `json:"success"`
	Errors         int    `json:"errors"`
	CalculatedDate string `json:"calculated_date"`
	DurationMs     int64  `json:"duration_ms"`
}

// CalculateAndReplaceMetrics derives the 7-day and 30-day star growth for one
// repository as of the given date and overwrites its metric row.
//
// A missing snapshot for the date itself means there is nothing to compute
// and no row is written. Missing prior snapshots are a normal case (newly
// tracked repository, gap in history): the corresponding increase and rate
// are both 0. A prior snapshot with zero stars also yields rate 0 rather
// than a division by zero. Negative increases are preserved as-is.
func (s *Service) CalculateAndReplaceMetrics(ctx context.Context, repoID int64, date time.Time) error {
	date = dateOnly(date)

	current, err := s.store.GetSnapshotAt(ctx, repoID, date)
	if err != nil {
		return fmt.Errorf("metrics for repo %d: %w", repoID, err)
	}
	if current == nil {
		return nil
	}

	prior7, err := s.store.GetSnapshotAt(ctx, repoID, date.AddDate(0, 0, -7))
	if err != nil {
		return fmt.Errorf("metrics for repo %d: %w", repoID, err)
	}
	prior30, err := s.store.GetSnapshotAt(ctx, repoID, date.AddDate(0, 0, -30))
	if err != nil {
		return fmt.Errorf("metrics for repo %d: %w", repoID, err)
	}

	metric := &model.DailyMetric{
		RepoID:         repoID,
		CalculatedDate: date,
	}
	if prior7 != nil {
		metric.Stars7dIncrease = current.Stars - prior7.Stars
		if prior7.Stars > 0 {
			metric.Stars7dRate = roundRate(float64(metric.Stars7dIncrease) / float64(prior7.Stars))
		}
	}
	if prior30 != nil {
		metric.Stars30dIncrease = current.Stars - prior30.Stars
		if prior30.Stars > 0 {
			metric.Stars30dRate = roundRate(float64(metric.Stars30dIncrease) / float64(prior30.Stars))
		}
	}

	return s.store.ReplaceDailyMetric(ctx, metric)
}

// roundRate keeps stored rates at 4 decimal places so repeated recomputation
// does not accumulate floating-point noise.
func roundRate(r float64) float64 {
	return math.Round(r*10000) / 10000
}

// RunMetricsCalculation recalculates metrics for every repository that has a
// snapshot dated today. Repositories without today's snapshot are simply not
// candidates. Per-repository failures are tallied, never propagated.
func (s *Service) RunMetricsCalculation(ctx context.Context) (*MetricsSummary, error) {
	start := s.now()
	today := dateOnly(start)

	ids, err := s.store.ListRepoIDsWithSnapshotOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("metrics calculation: %w", err)
	}

	if len(ids) == 0 {
		return &MetricsSummary{
			Message:        "no repositories with snapshots for today",
			CalculatedDate: today.Format(time.DateOnly),
			DurationMs:     s.now().Sub(start).Milliseconds(),
		}, nil
	}

	var success, errCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(metricsConcurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := s.CalculateAndReplaceMetrics(gctx, id, today); err != nil {
				s.logger.Error("Failed to calculate metrics", "repo_id", id, "error", err)
				errCount.Add(1)
				return nil
			}
			success.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	summary := &MetricsSummary{
		Message:        "metrics calculation completed",
		Total:          len(ids),
		Success:        int(success.Load()),
		Errors:         int(errCount.Load()),
		CalculatedDate: today.Format(time.DateOnly),
		DurationMs:     s.now().Sub(start).Milliseconds(),
	}
	s.logger.Info("Metrics calculation finished",
		"total", summary.Total, "success", summary.Success, "errors", summary.Errors,
		"duration_ms", summary.DurationMs)
	return summary, nil
}
