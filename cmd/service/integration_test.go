//go:build integration

// cmd/service/integration_test.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github-trend-tracker/internal/batch"
	"github-trend-tracker/internal/github"
	"github-trend-tracker/internal/model"
	"github-trend-tracker/internal/store"
)

func setupTestDatabase(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(dbpool.Close)

	return dbpool
}

// newMockGitHub serves repository metadata for the tracked fixtures. Paths are
// matched by suffix because the client routes through an /api/v3/ base path.
func newMockGitHub(t *testing.T) *httptest.Server {
	t.Helper()

	repoPayload := func(id int64, name, language string, stars int) string {
		return fmt.Sprintf(`{
			"id": %d,
			"name": %q,
			"full_name": "test-owner/%s",
			"owner": {"login": "test-owner"},
			"language": %q,
			"description": "fixture repo",
			"html_url": "https://github.com/test-owner/%s",
			"stargazers_count": %d,
			"forks_count": 10,
			"watchers_count": %d,
			"open_issues_count": 3,
			"created_at": "2020-01-01T00:00:00Z",
			"updated_at": "2026-08-01T00:00:00Z",
			"pushed_at": "2026-08-01T00:00:00Z"
		}`, id, name, name, language, name, stars, stars)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/repos/test-owner/alpha"):
			w.Write([]byte(repoPayload(101, "alpha", "Go", 1500)))
		case strings.HasSuffix(r.URL.Path, "/repos/test-owner/beta"):
			w.Write([]byte(repoPayload(102, "beta", "Rust", 800)))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message": "Not Found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func seedTrackedRepo(ctx context.Context, t *testing.T, st *store.Store, id int64, name, language string) {
	t.Helper()
	lang := language
	require.NoError(t, st.UpsertRepository(ctx, &model.Repository{
		GithubRepoID:  id,
		Name:          name,
		FullName:      "test-owner/" + name,
		Owner:         "test-owner",
		Language:      &lang,
		HTMLURL:       "https://github.com/test-owner/" + name,
		RepoCreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		RepoUpdatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func seedSnapshot(ctx context.Context, t *testing.T, st *store.Store, repoID int64, date time.Time, stars int) {
	t.Helper()
	require.NoError(t, st.InsertSnapshotIfAbsent(ctx, &model.Snapshot{
		RepoID:       repoID,
		Stars:        stars,
		Forks:        10,
		Watchers:     stars,
		OpenIssues:   3,
		SnapshotDate: date,
	}))
}

func countRows(ctx context.Context, t *testing.T, dbpool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, dbpool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestPipeline_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dbpool := setupTestDatabase(ctx, t)
	server := newMockGitHub(t)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st := store.New(dbpool, logger)

	ghClient := github.NewClient("", 6000, logger)
	require.NoError(t, ghClient.SetBaseURL(server.URL))

	svc := batch.NewService(st, ghClient, logger)

	today := time.Now().UTC()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	// Track three repositories; gamma does not exist upstream.
	seedTrackedRepo(ctx, t, st, 101, "alpha", "Go")
	seedTrackedRepo(ctx, t, st, 102, "beta", "Rust")
	seedTrackedRepo(ctx, t, st, 103, "gamma", "C")

	// History for alpha so the daily run produces growth metrics.
	seedSnapshot(ctx, t, st, 101, today.AddDate(0, 0, -7), 1200)
	seedSnapshot(ctx, t, st, 101, today.AddDate(0, 0, -30), 1000)

	t.Run("daily collection snapshots tracked repositories", func(t *testing.T) {
		summary, err := svc.RunDailyCollection(ctx, 0)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.Total)
		assert.Equal(t, 2, summary.FetchSuccess)
		assert.Equal(t, 1, summary.FetchNotFound)
		assert.Equal(t, 2, summary.DBUpdateSuccess)
		assert.Equal(t, 0, summary.DBUpdateErrors)

		snap, err := st.GetSnapshotAt(ctx, 101, today)
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, 1500, snap.Stars)

		// The missing repository got no snapshot.
		snap, err = st.GetSnapshotAt(ctx, 103, today)
		require.NoError(t, err)
		assert.Nil(t, snap)

		// Metadata was refreshed from the API response.
		repo, err := st.GetRepositoryByFullName(ctx, "test-owner/alpha")
		require.NoError(t, err)
		require.NotNil(t, repo)
		require.NotNil(t, repo.Description)
		assert.Equal(t, "fixture repo", *repo.Description)
	})

	t.Run("daily collection is idempotent", func(t *testing.T) {
		before := countRows(ctx, t, dbpool, "repo_snapshots")
		_, err := svc.RunDailyCollection(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, before, countRows(ctx, t, dbpool, "repo_snapshots"))
	})

	t.Run("metrics computed against exact prior snapshots", func(t *testing.T) {
		metrics, err := st.ListDailyMetrics(ctx, 101, today)
		require.NoError(t, err)
		require.Len(t, metrics, 1)

		m := metrics[0]
		assert.Equal(t, 300, m.Stars7dIncrease)
		assert.Equal(t, 500, m.Stars30dIncrease)
		assert.InDelta(t, 0.25, m.Stars7dRate, 1e-9)
		assert.InDelta(t, 0.5, m.Stars30dRate, 1e-9)

		// Beta has no history, so its metric row carries zeroes.
		metrics, err = st.ListDailyMetrics(ctx, 102, today)
		require.NoError(t, err)
		require.Len(t, metrics, 1)
		assert.Equal(t, 0, metrics[0].Stars7dIncrease)
	})

	t.Run("metrics recalculation overwrites instead of duplicating", func(t *testing.T) {
		summary, err := svc.RunMetricsCalculation(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Success)

		metrics, err := st.ListDailyMetrics(ctx, 101, today)
		require.NoError(t, err)
		assert.Len(t, metrics, 1)
	})

	t.Run("weekly ranking aggregates one completed week", func(t *testing.T) {
		// Week 10 of 2026 runs 2026-03-02 through 2026-03-08.
		weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		weekEnd := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
		seedSnapshot(ctx, t, st, 101, weekStart, 1000)
		seedSnapshot(ctx, t, st, 101, weekEnd, 1130)
		// Beta is first seen mid-week and counts from a zero baseline.
		seedSnapshot(ctx, t, st, 102, weekEnd, 50)

		target := weekEnd.AddDate(0, 0, 3)
		summary, err := svc.RunWeeklyRankingCalculation(ctx, &target)
		require.NoError(t, err)
		assert.Equal(t, 2026, summary.Year)
		assert.Equal(t, 10, summary.WeekNumber)
		assert.Equal(t, 2, summary.TotalRepos)
		assert.Equal(t, 3, summary.TotalRankings) // all, Go, Rust

		ranking, err := st.GetWeeklyRanking(ctx, 2026, 10, batch.LanguageAll)
		require.NoError(t, err)
		require.NotNil(t, ranking)
		require.Len(t, ranking.Entries, 2)
		assert.Equal(t, "test-owner/alpha", ranking.Entries[0].RepoFullName)
		assert.Equal(t, 130, ranking.Entries[0].StarIncrease)
		assert.Equal(t, "test-owner/beta", ranking.Entries[1].RepoFullName)
		assert.Equal(t, 50, ranking.Entries[1].StarIncrease)

		goRanking, err := st.GetWeeklyRanking(ctx, 2026, 10, "Go")
		require.NoError(t, err)
		require.NotNil(t, goRanking)
		require.Len(t, goRanking.Entries, 1)
		assert.Equal(t, int64(101), goRanking.Entries[0].RepoID)
	})

	t.Run("weekly ranking replaces its rows on rerun", func(t *testing.T) {
		target := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
		_, err := svc.RunWeeklyRankingCalculation(ctx, &target)
		require.NoError(t, err)

		var n int
		require.NoError(t, dbpool.QueryRow(ctx,
			`SELECT COUNT(*) FROM ranking_weekly WHERE year = 2026 AND week_number = 10`).Scan(&n))
		assert.Equal(t, 3, n)

		weeks, err := st.ListAvailableWeeks(ctx)
		require.NoError(t, err)
		require.Len(t, weeks, 1)
		assert.Equal(t, 10, weeks[0].WeekNumber)
	})
}
