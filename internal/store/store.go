// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-trend-tracker/internal/model"
)

// Store provides typed access to the repository, snapshot, metric and
// ranking tables. Every write is idempotent at the row level: upsert,
// insert-if-absent, or keyed replace.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store backed by the given connection pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// ListTrackedFullNames returns the full names of every tracked repository,
// in insertion order.
func (s *Store) ListTrackedFullNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT full_name FROM repositories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing tracked repositories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// UpsertRepository inserts the repository or, on repo_id conflict, refreshes
// all mutable metadata fields.
func (s *Store) UpsertRepository(ctx context.Context, repo *model.Repository) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO repositories
			(repo_id, name, full_name, owner, language, description, html_url, homepage, topics, repo_created_at, repo_updated_at, repo_pushed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (repo_id) DO UPDATE SET
			name            = EXCLUDED.name,
			full_name       = EXCLUDED.full_name,
			owner           = EXCLUDED.owner,
			language        = EXCLUDED.language,
			description     = EXCLUDED.description,
			html_url        = EXCLUDED.html_url,
			homepage        = EXCLUDED.homepage,
			topics          = EXCLUDED.topics,
			repo_updated_at = EXCLUDED.repo_updated_at,
			repo_pushed_at  = EXCLUDED.repo_pushed_at`,
		repo.GithubRepoID, repo.Name, repo.FullName, repo.Owner, repo.Language,
		repo.Description, repo.HTMLURL, repo.Homepage, repo.Topics,
		repo.RepoCreatedAt, repo.RepoUpdatedAt, repo.RepoPushedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting repository %s: %w", repo.FullName, err)
	}
	return nil
}

// InsertSnapshotIfAbsent records one day's counters for a repository.
// A second call for the same (repo, date) is a no-op: counters for a date
// are never revised once written.
func (s *Store) InsertSnapshotIfAbsent(ctx context.Context, snap *model.Snapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO repo_snapshots (repo_id, stars, forks, watchers, open_issues, snapshot_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (repo_id, snapshot_date) DO NOTHING`,
		snap.RepoID, snap.Stars, snap.Forks, snap.Watchers, snap.OpenIssues, snap.SnapshotDate,
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot for repo %d: %w", snap.RepoID, err)
	}
	return nil
}

// GetSnapshotAt returns the snapshot for the exact date, or nil if the
// repository has no row for that date. No interpolation.
func (s *Store) GetSnapshotAt(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error) {
	return s.querySnapshot(ctx, `
		SELECT repo_id, stars, forks, watchers, open_issues, snapshot_date, created_at
		FROM repo_snapshots
		WHERE repo_id = $1 AND snapshot_date = $2`, repoID, date)
}

// GetLatestSnapshotAtOrBefore returns the most recent snapshot dated at or
// before the given date, or nil if none exists.
func (s *Store) GetLatestSnapshotAtOrBefore(ctx context.Context, repoID int64, date time.Time) (*model.Snapshot, error) {
	return s.querySnapshot(ctx, `
		SELECT repo_id, stars, forks, watchers, open_issues, snapshot_date, created_at
		FROM repo_snapshots
		WHERE repo_id = $1 AND snapshot_date <= $2
		ORDER BY snapshot_date DESC
		LIMIT 1`, repoID, date)
}

func (s *Store) querySnapshot(ctx context.Context, query string, args ...any) (*model.Snapshot, error) {
	var snap model.Snapshot
	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&snap.RepoID, &snap.Stars, &snap.Forks, &snap.Watchers,
		&snap.OpenIssues, &snap.SnapshotDate, &snap.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return &snap, nil
}

// ListRepoIDsWithSnapshotOn returns the IDs of all repositories that have a
// snapshot dated exactly the given date.
func (s *Store) ListRepoIDsWithSnapshotOn(ctx context.Context, date time.Time) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.repo_id
		FROM repo_snapshots s
		JOIN repositories r ON r.repo_id = s.repo_id
		WHERE s.snapshot_date = $1
		ORDER BY s.repo_id`, date)
	if err != nil {
		return nil, fmt.Errorf("listing repositories with snapshot on %s: %w", date.Format(time.DateOnly), err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListReposWithSnapshotBetween returns each repository with at least one
// snapshot in [start, end], with the fields the weekly calculator needs.
func (s *Store) ListReposWithSnapshotBetween(ctx context.Context, start, end time.Time) ([]model.RepoRef, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT r.repo_id, r.full_name, r.language
		FROM repositories r
		JOIN repo_snapshots s ON s.repo_id = r.repo_id
		WHERE s.snapshot_date BETWEEN $1 AND $2
		ORDER BY r.repo_id`, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing repositories with snapshots between %s and %s: %w",
			start.Format(time.DateOnly), end.Format(time.DateOnly), err)
	}
	defer rows.Close()

	var refs []model.RepoRef
	for rows.Next() {
		var ref model.RepoRef
		if err := rows.Scan(&ref.RepoID, &ref.FullName, &ref.Language); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// ReplaceDailyMetric writes the metric row for (repo, date), overwriting any
// prior row. Postgres supports atomic upsert on the composite key, so this is
// a single statement rather than delete-then-insert.
func (s *Store) ReplaceDailyMetric(ctx context.Context, m *model.DailyMetric) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO metrics_daily
			(repo_id, calculated_date, stars_7d_increase, stars_30d_increase, stars_7d_rate, stars_30d_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (repo_id, calculated_date) DO UPDATE SET
			stars_7d_increase  = EXCLUDED.stars_7d_increase,
			stars_30d_increase = EXCLUDED.stars_30d_increase,
			stars_7d_rate      = EXCLUDED.stars_7d_rate,
			stars_30d_rate     = EXCLUDED.stars_30d_rate`,
		m.RepoID, m.CalculatedDate, m.Stars7dIncrease, m.Stars30dIncrease, m.Stars7dRate, m.Stars30dRate,
	)
	if err != nil {
		return fmt.Errorf("replacing daily metric for repo %d: %w", m.RepoID, err)
	}
	return nil
}

// ReplaceWeeklyRanking replaces the ranking row for one
// (year, week, language) bucket.
func (s *Store) ReplaceWeeklyRanking(ctx context.Context, ranking *model.WeeklyRanking) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ranking_weekly (year, week_number, language, rank_data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (year, week_number, language) DO UPDATE SET
			rank_data  = EXCLUDED.rank_data,
			created_at = now()`,
		ranking.Year, ranking.WeekNumber, ranking.Language, ranking.Entries,
	)
	if err != nil {
		return fmt.Errorf("replacing weekly ranking %d-W%d %s: %w",
			ranking.Year, ranking.WeekNumber, ranking.Language, err)
	}
	return nil
}
