// internal/api/handler.go
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-trend-tracker/internal/batch"
	"github-trend-tracker/internal/model"
)

// defaultCollectLimit bounds HTTP-triggered collection runs so they finish
// within a request timeout. Schedule-triggered runs pass no limit.
const defaultCollectLimit = 50

// Querier is the read-side store surface the handlers need.
type Querier interface {
	GetRepositoryByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	GetWeeklyRanking(ctx context.Context, year, week int, language string) (*model.WeeklyRanking, error)
	ListAvailableWeeks(ctx context.Context) ([]model.WeekRef, error)
	ListDailyMetrics(ctx context.Context, repoID int64, since time.Time) ([]model.DailyMetric, error)
	ListSnapshots(ctx context.Context, repoID int64, since time.Time) ([]model.Snapshot, error)
	ListLanguages(ctx context.Context) ([]string, error)
}

// BatchRunner triggers the batch jobs. *batch.Service satisfies it.
type BatchRunner interface {
	RunDailyCollection(ctx context.Context, limit int) (*batch.CollectionSummary, error)
	RunMetricsCalculation(ctx context.Context) (*batch.MetricsSummary, error)
	RunWeeklyRankingCalculation(ctx context.Context, target *time.Time) (*batch.WeeklySummary, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db            Querier
	jobs          BatchRunner
	internalToken string
	logger        *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db Querier, jobs BatchRunner, internalToken string, logger *slog.Logger) http.Handler {
	h := &Handler{
		db:            db,
		jobs:          jobs,
		internalToken: internalToken,
		logger:        logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// API Routes
	r.Get("/health", h.healthCheck)

	r.Route("/internal/batch", func(r chi.Router) {
		r.Use(h.internalAuth)
		// Batch jobs can run for minutes; no request timeout here.
		r.Post("/collect-daily", h.collectDaily)
		r.Post("/calculate-metrics", h.calculateMetrics)
		r.Post("/calculate-weekly", h.calculateWeekly)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Get("/trends/weekly", h.getWeeklyTrends)
		r.Get("/trends/weekly/available", h.getAvailableWeeks)
		r.Get("/trends/daily/{owner}/{name}", h.getDailyTrends)
		r.Get("/repos/{owner}/{name}", h.getRepository)
		r.Get("/languages", h.getLanguages)
	})

	return r
}

// internalAuth guards the batch trigger routes with a shared secret header.
func (h *Handler) internalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Internal-Token") != h.internalToken {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// collectDaily triggers a daily collection run.
// POST /internal/batch/collect-daily?limit=N
func (h *Handler) collectDaily(w http.ResponseWriter, r *http.Request) {
	limit := defaultCollectLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 1000.")
			return
		}
		limit = n
	}

	summary, err := h.jobs.RunDailyCollection(r.Context(), limit)
	if err != nil {
		h.logger.Error("Daily collection failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Batch collection failed")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// calculateMetrics triggers a metrics recalculation for today's snapshots.
// POST /internal/batch/calculate-metrics
func (h *Handler) calculateMetrics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.jobs.RunMetricsCalculation(r.Context())
	if err != nil {
		h.logger.Error("Metrics calculation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Metrics calculation failed")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// calculateWeekly triggers a weekly ranking calculation.
// POST /internal/batch/calculate-weekly?date=YYYY-MM-DD
func (h *Handler) calculateWeekly(w http.ResponseWriter, r *http.Request) {
	var target *time.Time
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'date' parameter. Must be YYYY-MM-DD.")
			return
		}
		target = &t
	}

	summary, err := h.jobs.RunWeeklyRankingCalculation(r.Context(), target)
	if err != nil {
		h.logger.Error("Weekly ranking calculation failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Weekly ranking calculation failed")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// getWeeklyTrends returns the persisted ranking for one week and language.
// GET /v1/trends/weekly?year=2026&week=5&language=Go
func (h *Handler) getWeeklyTrends(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 3000 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'year' parameter.")
		return
	}
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil || week < 1 || week > 53 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'week' parameter. Must be between 1 and 53.")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = batch.LanguageAll
	}

	ranking, err := h.db.GetWeeklyRanking(r.Context(), year, week, language)
	if err != nil {
		h.logger.Error("Failed to get weekly ranking", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if ranking == nil {
		respondWithError(w, http.StatusNotFound,
			fmt.Sprintf("No ranking data found for year=%d, week=%d, language=%s", year, week, language))
		return
	}
	respondWithJSON(w, http.StatusOK, ranking)
}

// getAvailableWeeks lists every aggregated (year, week) pair, newest first.
// GET /v1/trends/weekly/available
func (h *Handler) getAvailableWeeks(w http.ResponseWriter, r *http.Request) {
	weeks, err := h.db.ListAvailableWeeks(r.Context())
	if err != nil {
		h.logger.Error("Failed to list available weeks", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"weeks": weeks})
}

// getDailyTrends returns recent metrics and snapshots for one repository.
// GET /v1/trends/daily/{owner}/{name}?days=N
func (h *Handler) getDailyTrends(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'days' parameter. Must be an integer between 1 and 365.")
			return
		}
		days = n
	}

	repo, err := h.db.GetRepositoryByFullName(r.Context(), fullName)
	if err != nil {
		h.logger.Error("Failed to get repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if repo == nil {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	metrics, err := h.db.ListDailyMetrics(r.Context(), repo.GithubRepoID, since)
	if err != nil {
		h.logger.Error("Failed to list daily metrics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	snapshots, err := h.db.ListSnapshots(r.Context(), repo.GithubRepoID, since)
	if err != nil {
		h.logger.Error("Failed to list snapshots", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"repo_id":   repo.GithubRepoID,
		"full_name": repo.FullName,
		"metrics":   metrics,
		"snapshots": snapshots,
	})
}

// getRepository returns metadata for one tracked repository.
// GET /v1/repos/{owner}/{name}
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	repo, err := h.db.GetRepositoryByFullName(r.Context(), fullName)
	if err != nil {
		h.logger.Error("Failed to get repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if repo == nil {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}
	respondWithJSON(w, http.StatusOK, repo)
}

// getLanguages lists the distinct languages among tracked repositories.
// GET /v1/languages
func (h *Handler) getLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.db.ListLanguages(r.Context())
	if err != nil {
		h.logger.Error("Failed to list languages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"languages": langs})
}
