// internal/batch/weekly.go
package batch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github-trend-tracker/internal/model"
)

const (
	// rankingSize is the number of entries kept per language bucket.
	rankingSize = 10
	// LanguageAll is the sentinel bucket combining every language.
	LanguageAll = "all"
)

// WeeklySummary is the JSON-serializable result of one weekly ranking run.
type WeeklySummary struct {
	Message       string `json:"message"`
	TotalRankings int    `json:"total_rankings"`
	TotalRepos    int    `json:"total_repos"`
	Year          int    `json:"year"`
	WeekNumber    int    `json:"week_number"`
	DurationMs    int64  `json:"duration_ms"`
}

// ISOWeekInfo returns the ISO 8601 year and week number of the given date.
// Late-December dates can belong to week 1 of the next year, and early
// January dates to week 52/53 of the previous year.
func ISOWeekInfo(t time.Time) (year, week int) {
	return t.UTC().ISOWeek()
}

// ISOWeekRange returns the Monday and Sunday of the given ISO week.
// January 4th is always inside week 1 by the ISO definition, which anchors
// the computation.
func ISOWeekRange(year, week int) (monday, sunday time.Time) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	monday = week1Monday.AddDate(0, 0, (week-1)*7)
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

type repoGrowth struct {
	ref   model.RepoRef
	delta int
}

// RunWeeklyRankingCalculation computes the per-language top-10 star growth
// rankings for one ISO week and replaces the persisted rows for that week.
// With a nil target the last completed week (the ISO week containing the day
// seven days before the run) is aggregated.
//
// The star delta is taken between the latest snapshots at or before the
// week's Monday and Sunday. A repository with no snapshot at or before a
// boundary counts from a zero baseline, so a repository first observed
// mid-week reports its full star count as that week's delta.
func (s *Service) RunWeeklyRankingCalculation(ctx context.Context, target *time.Time) (*WeeklySummary, error) {
	start := s.now()

	base := start
	if target != nil {
		base = *target
	}
	year, week := ISOWeekInfo(base.AddDate(0, 0, -7))
	weekStart, weekEnd := ISOWeekRange(year, week)
	logger := s.logger.With("year", year, "week", week)

	repos, err := s.store.ListReposWithSnapshotBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("weekly ranking %d-W%d: %w", year, week, err)
	}

	growth := make([]repoGrowth, 0, len(repos))
	for _, ref := range repos {
		startSnap, err := s.store.GetLatestSnapshotAtOrBefore(ctx, ref.RepoID, weekStart)
		if err != nil {
			return nil, fmt.Errorf("weekly ranking %d-W%d: %w", year, week, err)
		}
		endSnap, err := s.store.GetLatestSnapshotAtOrBefore(ctx, ref.RepoID, weekEnd)
		if err != nil {
			return nil, fmt.Errorf("weekly ranking %d-W%d: %w", year, week, err)
		}

		var startStars, endStars int
		if startSnap != nil {
			startStars = startSnap.Stars
		}
		if endSnap != nil {
			endStars = endSnap.Stars
		}
		growth = append(growth, repoGrowth{ref: ref, delta: endStars - startStars})
	}

	written := 0
	for _, lang := range languageBuckets(growth) {
		entries := topEntries(growth, lang)
		if len(entries) == 0 {
			continue
		}
		ranking := &model.WeeklyRanking{
			Year:       year,
			WeekNumber: week,
			Language:   lang,
			Entries:    entries,
		}
		if err := s.store.ReplaceWeeklyRanking(ctx, ranking); err != nil {
			return nil, fmt.Errorf("weekly ranking %d-W%d: %w", year, week, err)
		}
		written++
	}

	summary := &WeeklySummary{
		Message:       "weekly ranking calculation completed",
		TotalRankings: written,
		TotalRepos:    len(growth),
		Year:          year,
		WeekNumber:    week,
		DurationMs:    s.now().Sub(start).Milliseconds(),
	}
	logger.Info("Weekly ranking calculation finished",
		"rankings", summary.TotalRankings, "repos", summary.TotalRepos,
		"duration_ms", summary.DurationMs)
	return summary, nil
}

// languageBuckets returns "all" followed by the distinct languages present,
// sorted for stable processing order.
func languageBuckets(growth []repoGrowth) []string {
	seen := make(map[string]bool)
	langs := make([]string, 0)
	for _, g := range growth {
		if g.ref.Language != nil && !seen[*g.ref.Language] {
			seen[*g.ref.Language] = true
			langs = append(langs, *g.ref.Language)
		}
	}
	sort.Strings(langs)
	return append([]string{LanguageAll}, langs...)
}

// topEntries filters growth to one language bucket, ranks by delta
// descending with repo ID ascending as the tie-break, and truncates to the
// ranking size.
func topEntries(growth []repoGrowth, lang string) []model.RankEntry {
	filtered := make([]repoGrowth, 0, len(growth))
	for _, g := range growth {
		if lang == LanguageAll || (g.ref.Language != nil && *g.ref.Language == lang) {
			filtered = append(filtered, g)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].delta != filtered[j].delta {
			return filtered[i].delta > filtered[j].delta
		}
		return filtered[i].ref.RepoID < filtered[j].ref.RepoID
	})
	if len(filtered) > rankingSize {
		filtered = filtered[:rankingSize]
	}

	entries := make([]model.RankEntry, len(filtered))
	for i, g := range filtered {
		entries[i] = model.RankEntry{
			Rank:         i + 1,
			RepoID:       g.ref.RepoID,
			RepoFullName: g.ref.FullName,
			StarIncrease: g.delta,
		}
	}
	return entries
}
