// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	apperrors "github-trend-tracker/internal/errors"
	"github-trend-tracker/internal/model"
)

const (
	// maxRetries bounds the attempts for transient failures (5xx, transport).
	maxRetries = 3
	// maxRateLimitWait caps how long a single call sleeps on an exhausted
	// rate limit, so a batch never stalls past its execution budget.
	maxRateLimitWait = 60 * time.Second
	minRateLimitWait = time.Second
)

// Client is a wrapper around the go-github client with retry and
// rate-limit-aware throttling for batch use.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	logger  *slog.Logger

	backoffBase time.Duration
	minRateWait time.Duration
	maxRateWait time.Duration
}

// NewClient creates and configures a new Client instance.
// The token is used to build an authenticated http.Client; requestsPerMinute
// sets the minimum spacing the limiter enforces between outbound calls.
func NewClient(token string, requestsPerMinute int, logger *slog.Logger) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		gh:          github.NewClient(tc),
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
		logger:      logger,
		backoffBase: time.Second,
		minRateWait: minRateLimitWait,
		maxRateWait: maxRateLimitWait,
	}
}

// SetBaseURL points the client at a non-default API endpoint
// (GitHub Enterprise, or an httptest server in tests).
func (c *Client) SetBaseURL(u string) error {
	ghc, err := c.gh.WithEnterpriseURLs(u, u)
	if err != nil {
		return err
	}
	c.gh = ghc
	return nil
}

// FetchRepository fetches the current metadata and counters for one
// repository identified as "owner/name".
//
// Failure policy, in order: 404 returns ErrRepoNotFound immediately; an
// exhausted rate limit sleeps until the reported reset (capped) and retries
// without consuming the retry budget; 5xx and transport errors retry with
// exponential backoff up to maxRetries; any other non-2xx fails immediately.
func (c *Client) FetchRepository(ctx context.Context, fullName string) (*model.Repository, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
		if err == nil {
			return toInternalRepository(repo), nil
		}

		var rateErr *github.RateLimitError
		if errors.As(err, &rateErr) {
			wait := time.Until(rateErr.Rate.Reset.Time)
			if wait < c.minRateWait {
				wait = c.minRateWait
			}
			if wait > c.maxRateWait {
				wait = c.maxRateWait
			}
			c.logger.Warn("GitHub rate limit exhausted, waiting for reset", "repo", fullName, "wait", wait.String())
			if serr := sleepCtx(ctx, wait); serr != nil {
				return nil, serr
			}
			// Rate-limit waits do not count against the retry budget.
			attempt--
			continue
		}

		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, &apperrors.ErrRepoNotFound{FullName: fullName}
		}

		if resp == nil || resp.StatusCode >= http.StatusInternalServerError {
			if attempt < maxRetries {
				backoff := c.backoffBase << attempt
				c.logger.Warn("GitHub API call failed, retrying",
					"repo", fullName, "attempt", attempt, "backoff", backoff.String(), "error", err)
				if serr := sleepCtx(ctx, backoff); serr != nil {
					return nil, serr
				}
				continue
			}
			return nil, fmt.Errorf("fetching %s: giving up after %d attempts: %w", fullName, maxRetries, err)
		}

		// Remaining non-2xx responses are not retryable.
		return nil, fmt.Errorf("fetching %s: %w", fullName, err)
	}

	return nil, fmt.Errorf("fetching %s: retry budget exhausted", fullName)
}

// FetchResult is the outcome of fetching a single repository.
type FetchResult struct {
	FullName string
	Repo     *model.Repository // non-nil only on success
	NotFound bool
	Err      error
}

// BatchSummary tallies the per-repository outcomes of a batch fetch.
type BatchSummary struct {
	Total    int
	Success  int
	NotFound int
	Errors   int
	Results  []FetchResult
}

// FetchBatch fetches each repository sequentially, throttled by the client's
// rate limiter. The GitHub rate limit is shared and low, so sequential calls
// are deliberate here; one repository's failure never aborts the batch.
func (c *Client) FetchBatch(ctx context.Context, fullNames []string) *BatchSummary {
	summary := &BatchSummary{Total: len(fullNames)}

	for _, fullName := range fullNames {
		if err := c.limiter.Wait(ctx); err != nil {
			summary.Errors++
			summary.Results = append(summary.Results, FetchResult{FullName: fullName, Err: err})
			continue
		}

		repo, err := c.FetchRepository(ctx, fullName)
		switch {
		case err == nil:
			summary.Success++
			summary.Results = append(summary.Results, FetchResult{FullName: fullName, Repo: repo})
		case apperrors.IsNotFound(err):
			c.logger.Warn("Repository not found on GitHub", "repo", fullName)
			summary.NotFound++
			summary.Results = append(summary.Results, FetchResult{FullName: fullName, NotFound: true, Err: err})
		default:
			c.logger.Error("Failed to fetch repository", "repo", fullName, "error", err)
			summary.Errors++
			summary.Results = append(summary.Results, FetchResult{FullName: fullName, Err: err})
		}
	}

	return summary
}

func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &apperrors.ErrInvalidRepoFormat{Repo: fullName}
	}
	return parts[0], parts[1], nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) *model.Repository {
	var pushedAt *time.Time
	if r.PushedAt != nil {
		t := r.PushedAt.Time
		pushedAt = &t
	}
	return &model.Repository{
		GithubRepoID:    r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Owner:           r.GetOwner().GetLogin(),
		Language:        r.Language,
		Description:     r.Description,
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        r.Homepage,
		Topics:          r.Topics,
		StarsCount:      r.GetStargazersCount(),
		ForksCount:      r.GetForksCount(),
		WatchersCount:   r.GetWatchersCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
		RepoPushedAt:    pushedAt,
	}
}
