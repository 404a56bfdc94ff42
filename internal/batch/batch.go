// internal/batch/batch.go

// Package batch implements the time-series aggregation pipeline: daily
// snapshot collection, growth metric calculation, and weekly per-language
// ranking rollups. The jobs communicate only through persisted rows and every
// write path is idempotent, so each job is independently re-runnable.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github-trend-tracker/internal/github"
	"github-trend-tracker/internal/model"
)

// Store is the persistence surface the pipeline needs. *store.Store satisfies
// it; tests substitute a mock.
type Store interface {
	ListTrackedFullNames(ctx context.Context) ([]string, error)
	UpsertRepository(ctx context.Context, repo *model.Repository) error
	InsertSnapshotIfAbsent(ctx context.Context, snap *model.Snapshot) error
	GetSnapshotAt(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error)
	GetLatestSnapshotAtOrBefore(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error)
	ListRepoIDsWithSnapshotOn(ctx context.Context, date time.Time) ([]int64, error)
	ListReposWithSnapshotBetween(ctx context.Context, start, end time.Time) ([]model.RepoRef, error)
	ReplaceDailyMetric(ctx context.Context, m *model.DailyMetric) error
	ReplaceWeeklyRanking(ctx context.Context, ranking *model.WeeklyRanking) error
}

// Fetcher fetches current repository data from GitHub. *github.Client
// satisfies it.
type Fetcher interface {
	FetchBatch(ctx context.Context, fullNames []string) *github.BatchSummary
}

// Service bundles the three batch jobs over a shared store and fetcher.
type Service struct {
	store   Store
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a batch Service.
func NewService(store Store, fetcher Fetcher, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
		now:     time.Now,
	}
}

// dateOnly truncates t to its UTC calendar date. Snapshot dates always use
// UTC as the source's notion of "as of".
func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
