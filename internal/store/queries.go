// internal/store/queries.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github-trend-tracker/internal/model"
)

// GetRepositoryByFullName returns the tracked repository with the given full
// name, or nil if it is not tracked.
func (s *Store) GetRepositoryByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	var repo model.Repository
	err := s.pool.QueryRow(ctx, `
		SELECT id, repo_id, name, full_name, owner, language, description, html_url, homepage, topics,
		       repo_created_at, repo_updated_at, repo_pushed_at
		FROM repositories
		WHERE full_name = $1`, fullName).Scan(
		&repo.ID, &repo.GithubRepoID, &repo.Name, &repo.FullName, &repo.Owner,
		&repo.Language, &repo.Description, &repo.HTMLURL, &repo.Homepage, &repo.Topics,
		&repo.RepoCreatedAt, &repo.RepoUpdatedAt, &repo.RepoPushedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying repository %s: %w", fullName, err)
	}
	return &repo, nil
}

// GetWeeklyRanking returns the persisted ranking for one (year, week,
// language) bucket, or nil if that bucket was never calculated.
func (s *Store) GetWeeklyRanking(ctx context.Context, year, week int, language string) (*model.WeeklyRanking, error) {
	var ranking model.WeeklyRanking
	err := s.pool.QueryRow(ctx, `
		SELECT year, week_number, language, rank_data, created_at
		FROM ranking_weekly
		WHERE year = $1 AND week_number = $2 AND language = $3`, year, week, language).Scan(
		&ranking.Year, &ranking.WeekNumber, &ranking.Language, &ranking.Entries, &ranking.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying weekly ranking %d-W%d %s: %w", year, week, language, err)
	}
	return &ranking, nil
}

// ListAvailableWeeks returns every (year, week) pair with at least one
// ranking row, newest week first.
func (s *Store) ListAvailableWeeks(ctx context.Context) ([]model.WeekRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT year, week_number
		FROM ranking_weekly
		ORDER BY year DESC, week_number DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing available weeks: %w", err)
	}
	defer rows.Close()

	var weeks []model.WeekRef
	for rows.Next() {
		var w model.WeekRef
		if err := rows.Scan(&w.Year, &w.WeekNumber); err != nil {
			return nil, err
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// ListDailyMetrics returns the metric rows for a repository dated on or
// after since, oldest first.
func (s *Store) ListDailyMetrics(ctx context.Context, repoID int64, since time.Time) ([]model.DailyMetric, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT repo_id, calculated_date, stars_7d_increase, stars_30d_increase, stars_7d_rate, stars_30d_rate
		FROM metrics_daily
		WHERE repo_id = $1 AND calculated_date >= $2
		ORDER BY calculated_date`, repoID, since)
	if err != nil {
		return nil, fmt.Errorf("listing daily metrics for repo %d: %w", repoID, err)
	}
	defer rows.Close()

	var metrics []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(&m.RepoID, &m.CalculatedDate, &m.Stars7dIncrease, &m.Stars30dIncrease, &m.Stars7dRate, &m.Stars30dRate); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ListSnapshots returns the snapshots for a repository dated on or after
// since, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, repoID int64, since time.Time) ([]model.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT repo_id, stars, forks, watchers, open_issues, snapshot_date, created_at
		FROM repo_snapshots
		WHERE repo_id = $1 AND snapshot_date >= $2
		ORDER BY snapshot_date`, repoID, since)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots for repo %d: %w", repoID, err)
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		if err := rows.Scan(&snap.RepoID, &snap.Stars, &snap.Forks, &snap.Watchers, &snap.OpenIssues, &snap.SnapshotDate, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListLanguages returns the distinct languages among tracked repositories.
func (s *Store) ListLanguages(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT language
		FROM repositories
		WHERE language IS NOT NULL
		ORDER BY language`)
	if err != nil {
		return nil, fmt.Errorf("listing languages: %w", err)
	}
	defer rows.Close()

	var langs []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}
