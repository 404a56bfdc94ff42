// internal/model/models.go
package model

import "time"

// Repository represents the metadata of a tracked GitHub repository.
// The pipeline keys everything on GithubRepoID; ID is the local surrogate key.
type Repository struct {
	ID              int64      `json:"-"`
	GithubRepoID    int64      `json:"repo_id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Owner           string     `json:"owner"`
	Language        *string    `json:"language"`
	Description     *string    `json:"description"`
	HTMLURL         string     `json:"html_url"`
	Homepage        *string    `json:"homepage"`
	Topics          []string   `json:"topics"`
	StarsCount      int        `json:"stars_count,omitempty"`
	ForksCount      int        `json:"forks_count,omitempty"`
	WatchersCount   int        `json:"watchers_count,omitempty"`
	OpenIssuesCount int        `json:"open_issues_count,omitempty"`
	RepoCreatedAt   time.Time  `json:"repo_created_at"`
	RepoUpdatedAt   time.Time  `json:"repo_updated_at"`
	RepoPushedAt    *time.Time `json:"repo_pushed_at"`
}

// Snapshot is one day's point-in-time counters for a repository.
// At most one row exists per (repo, date); rows are never revised once written.
type Snapshot struct {
	RepoID       int64     `json:"repo_id"`
	Stars        int       `json:"stars"`
	Forks        int       `json:"forks"`
	Watchers     int       `json:"watchers"`
	OpenIssues   int       `json:"open_issues"`
	SnapshotDate time.Time `json:"snapshot_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// DailyMetric holds the derived growth figures for one (repo, date).
// Rates are fractions (0.25 == 25%), rounded to 4 decimal places.
type DailyMetric struct {
	RepoID           int64     `json:"repo_id"`
	CalculatedDate   time.Time `json:"calculated_date"`
	Stars7dIncrease  int       `json:"stars_7d_increase"`
	Stars30dIncrease int       `json:"stars_30d_increase"`
	Stars7dRate      float64   `json:"stars_7d_rate"`
	Stars30dRate     float64   `json:"stars_30d_rate"`
}

// RankEntry is one position in a weekly ranking.
type RankEntry struct {
	Rank         int    `json:"rank"`
	RepoID       int64  `json:"repo_id"`
	RepoFullName string `json:"repo_full_name"`
	StarIncrease int    `json:"star_increase"`
}

// WeeklyRanking is the persisted top-N for one (ISO year, ISO week, language)
// bucket. Language is either a real language name or the sentinel "all".
type WeeklyRanking struct {
	Year       int         `json:"year"`
	WeekNumber int         `json:"week_number"`
	Language   string      `json:"language"`
	Entries    []RankEntry `json:"entries"`
	CreatedAt  time.Time   `json:"created_at"`
}

// RepoRef is the slim projection the weekly calculator works with.
type RepoRef struct {
	RepoID   int64
	FullName string
	Language *string
}

// WeekRef identifies one aggregated ISO week.
type WeekRef struct {
	Year       int `json:"year"`
	WeekNumber int `json:"week_number"`
}
