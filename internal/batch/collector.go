// internal/batch/collector.go
package batch

import (
	"context"
	"fmt"
	"time"

	"github-trend-tracker/internal/model"
)

// CollectionSummary is the JSON-serializable result of one daily collection
// run. Per-repository failures are surfaced only through the counters; a run
// with nonzero error counts is still a successful run.
type CollectionSummary struct {
	Message         string `json:"message"`
	Total           int    `json:"total"`
	FetchSuccess    int    `json:"github_fetch_success"`
	FetchNotFound   int    `json:"github_not_found"`
	FetchErrors     int    `json:"github_errors"`
	DBUpdateSuccess int    `json:"db_update_success"`
	DBUpdateErrors  int    `json:"db_update_errors"`
	SnapshotDate    string `json:"snapshot_date"`
	DurationMs      int64  `json:"duration_ms"`
}

// RunDailyCollection refreshes every tracked repository from GitHub, writes
// today's snapshot, and recalculates growth metrics for the fetched
// repositories. limit > 0 truncates the tracked list, which lets a time-boxed
// HTTP-triggered run bound its own worst-case duration; limit <= 0 processes
// all.
//
// The run is safe to repeat within the same day: the repository upsert and
// the insert-if-absent snapshot write both converge.
func (s *Service) RunDailyCollection(ctx context.Context, limit int) (*CollectionSummary, error) {
	start := s.now()
	today := dateOnly(start)

	fullNames, err := s.store.ListTrackedFullNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("daily collection: %w", err)
	}

	if len(fullNames) == 0 {
		return &CollectionSummary{
			Message:      "no repositories to process",
			SnapshotDate: today.Format(time.DateOnly),
			DurationMs:   s.now().Sub(start).Milliseconds(),
		}, nil
	}

	if limit > 0 && len(fullNames) > limit {
		fullNames = fullNames[:limit]
	}

	fetchSummary := s.fetcher.FetchBatch(ctx, fullNames)

	var dbSuccess, dbErrors int
	for _, res := range fetchSummary.Results {
		if res.Repo == nil {
			continue
		}
		logger := s.logger.With("repo", res.FullName)

		if err := s.store.UpsertRepository(ctx, res.Repo); err != nil {
			logger.Error("Failed to upsert repository", "error", err)
			dbErrors++
			continue
		}

		snap := &model.Snapshot{
			RepoID:       res.Repo.GithubRepoID,
			Stars:        res.Repo.StarsCount,
			Forks:        res.Repo.ForksCount,
			Watchers:     res.Repo.WatchersCount,
			OpenIssues:   res.Repo.OpenIssuesCount,
			SnapshotDate: today,
		}
		if err := s.store.InsertSnapshotIfAbsent(ctx, snap); err != nil {
			logger.Error("Failed to insert snapshot", "error", err)
			dbErrors++
			continue
		}

		if err := s.CalculateAndReplaceMetrics(ctx, res.Repo.GithubRepoID, today); err != nil {
			logger.Error("Failed to calculate metrics", "error", err)
			dbErrors++
			continue
		}

		dbSuccess++
	}

	summary := &CollectionSummary{
		Message:         "daily collection completed",
		Total:           fetchSummary.Total,
		FetchSuccess:    fetchSummary.Success,
		FetchNotFound:   fetchSummary.NotFound,
		FetchErrors:     fetchSummary.Errors,
		DBUpdateSuccess: dbSuccess,
		DBUpdateErrors:  dbErrors,
		SnapshotDate:    today.Format(time.DateOnly),
		DurationMs:      s.now().Sub(start).Milliseconds(),
	}
	s.logger.Info("Daily collection finished",
		"total", summary.Total,
		"fetch_success", summary.FetchSuccess,
		"not_found", summary.FetchNotFound,
		"fetch_errors", summary.FetchErrors,
		"db_success", summary.DBUpdateSuccess,
		"db_errors", summary.DBUpdateErrors,
		"duration_ms", summary.DurationMs)
	return summary, nil
}
