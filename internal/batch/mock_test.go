// internal/batch/mock_test.go
package batch

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github-trend-tracker/internal/github"
	"github-trend-tracker/internal/model"
)

// MockStore is a mock of the Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListTrackedFullNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) UpsertRepository(ctx context.Context, repo *model.Repository) error {
	args := m.Called(ctx, repo)
	return args.Error(0)
}

func (m *MockStore) InsertSnapshotIfAbsent(ctx context.Context, snap *model.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockStore) GetSnapshotAt(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error) {
	args := m.Called(ctx, repoID, date)
	if snap := args.Get(0); snap != nil {
		return snap.(*model.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) GetLatestSnapshotAtOrBefore(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error) {
	args := m.Called(ctx, repoID, date)
	if snap := args.Get(0); snap != nil {
		return snap.(*model.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) ListRepoIDsWithSnapshotOn(ctx context.Context, date time.Time) ([]int64, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockStore) ListReposWithSnapshotBetween(ctx context.Context, start, end time.Time) ([]model.RepoRef, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]model.RepoRef), args.Error(1)
}

func (m *MockStore) ReplaceDailyMetric(ctx context.Context, metric *model.DailyMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *MockStore) ReplaceWeeklyRanking(ctx context.Context, ranking *model.WeeklyRanking) error {
	args := m.Called(ctx, ranking)
	return args.Error(0)
}

// MockFetcher is a mock of the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchBatch(ctx context.Context, fullNames []string) *github.BatchSummary {
	args := m.Called(ctx, fullNames)
	return args.Get(0).(*github.BatchSummary)
}
