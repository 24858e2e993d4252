// Package server exposes the recommendation service over HTTP and the gRPC
// health protocol.
//
// Routes:
//
//	GET  /health                              → dependency checks
//	GET  /metrics                             → Prometheus exposition
//	GET  /recommendations/{userID}            → ranked first page
//	GET  /recommendations/{userID}/related    → queued overflow candidates
//	GET  /categories                          → job taxonomy
//	GET  /trusted-companies                   → trusted employer allow-list
//	POST /admin/cache/sweep                   → remove expired entries
//	POST /admin/cache/clear                   → wipe the cache
//	GET  /admin/cache/info                    → cache summary
//	GET  /admin/cache/stats                   → cached job breakdown
//	GET  /admin/cache/search                  → scan cached jobs
//	DELETE /admin/cache/queries/{key}         → drop one query entry and its jobs
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/recommend"
	"jobmate/recommendation-service/internal/retrieval"
)

const version = "1.0.0"

// ─── Dependencies ───────────────────────────────────────────────────────────

type Recommender interface {
	Recommend(ctx context.Context, userID string, opts recommend.Options) (recommend.Response, error)
}

type RelatedJobs interface {
	Peek(ctx context.Context, userID string) ([]model.RankedCandidate, error)
}

type CacheAdmin interface {
	SweepExpired(ctx context.Context) (listingcache.SweepReport, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearQuery(ctx context.Context, key string) error
	Info(ctx context.Context) (listingcache.Info, error)
	Stats(ctx context.Context) (listingcache.Stats, error)
	Search(ctx context.Context, c listingcache.Criteria) ([]model.JobRecord, error)
}

type Catalog interface {
	Categories() []string
	TrustedCompanies() []string
}

// Check probes one dependency for /health.
type Check func(ctx context.Context) error

// Handler holds shared dependencies.
type Handler struct {
	rec     Recommender
	related RelatedJobs
	cache   CacheAdmin
	catalog Catalog
	checks  map[string]Check
	metrics http.Handler
	timeout time.Duration
	log     *logging.Logger
}

type HandlerDeps struct {
	Recommender Recommender
	Related     RelatedJobs
	Cache       CacheAdmin
	Catalog     Catalog
	Checks      map[string]Check
	Metrics     http.Handler

	// RecommendTimeout bounds each recommendation request. Zero means no
	// deadline beyond the client's.
	RecommendTimeout time.Duration
	Logger           *logging.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	return &Handler{
		rec:     d.Recommender,
		related: d.Related,
		cache:   d.Cache,
		catalog: d.Catalog,
		checks:  d.Checks,
		metrics: d.Metrics,
		timeout: d.RecommendTimeout,
		log:     d.Logger,
	}
}

// Routes returns the service mux wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h.withRequestID(mux)
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	mux.HandleFunc("GET /recommendations/{userID}", h.recommendations)
	mux.HandleFunc("GET /recommendations/{userID}/related", h.relatedJobs)
	mux.HandleFunc("GET /categories", h.categories)
	mux.HandleFunc("GET /trusted-companies", h.trustedCompanies)

	mux.HandleFunc("POST /admin/cache/sweep", h.sweep)
	mux.HandleFunc("POST /admin/cache/clear", h.clear)
	mux.HandleFunc("GET /admin/cache/info", h.cacheInfo)
	mux.HandleFunc("GET /admin/cache/stats", h.cacheStats)
	mux.HandleFunc("GET /admin/cache/search", h.cacheSearch)
	mux.HandleFunc("DELETE /admin/cache/queries/{key}", h.clearQuery)
}

func (h *Handler) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug("http request", "request_id", id, "method", r.Method, "path", r.URL.Path,
			"duration", time.Since(start))
	})
}

// ─── Health ─────────────────────────────────────────────────────────────────

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			h.log.Warn("health check failed", "dependency", name, "error", err)
			deps[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}
	writeJSON(w, code, map[string]any{
		"status":       status,
		"service":      "recommendation-service",
		"version":      version,
		"dependencies": deps,
	})
}

// ─── Recommendations ────────────────────────────────────────────────────────

func (h *Handler) recommendations(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	opts, err := parseOptions(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.rec.Recommend(ctx, userID, opts)
	switch {
	case errors.Is(err, recommend.ErrUserNotFound):
		jsonError(w, "user not found", http.StatusNotFound)
		return
	case errors.Is(err, retrieval.ErrInvalidRequest):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error("recommendation failed", "user_id", userID, "error", err)
		jsonError(w, "recommendation failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, resp)
}

func (h *Handler) relatedJobs(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	if h.related == nil {
		jsonOK(w, map[string]any{"userId": userID, "jobs": []model.RankedCandidate{}})
		return
	}
	jobs, err := h.related.Peek(r.Context(), userID)
	if err != nil {
		h.log.Error("read related jobs failed", "user_id", userID, "error", err)
		jsonError(w, "cache error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"userId": userID, "jobs": jobs})
}

func parseOptions(r *http.Request) (recommend.Options, error) {
	q := r.URL.Query()
	var (
		opts recommend.Options
		err  error
	)
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		return opts, fmt.Errorf("invalid limit: %w", err)
	}
	if opts.PageSize, err = intParam(q.Get("page_size")); err != nil {
		return opts, fmt.Errorf("invalid page_size: %w", err)
	}
	if opts.Filters.TrustedOnly, err = boolParam(q.Get("trusted")); err != nil {
		return opts, fmt.Errorf("invalid trusted: %w", err)
	}
	if opts.ForceRefresh, err = boolParam(q.Get("refresh")); err != nil {
		return opts, fmt.Errorf("invalid refresh: %w", err)
	}
	opts.Keywords = q.Get("keywords")
	opts.Location = q.Get("location")
	opts.Filters.JobType = q.Get("type")
	opts.Filters.Category = q.Get("category")
	return opts, nil
}

// ─── Catalog ────────────────────────────────────────────────────────────────

func (h *Handler) categories(w http.ResponseWriter, _ *http.Request) {
	jsonOK(w, map[string]any{"categories": h.catalog.Categories()})
}

func (h *Handler) trustedCompanies(w http.ResponseWriter, _ *http.Request) {
	companies := h.catalog.TrustedCompanies()
	jsonOK(w, map[string]any{"companies": companies, "count": len(companies)})
}

// ─── Admin ──────────────────────────────────────────────────────────────────

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	rep, err := h.cache.SweepExpired(r.Context())
	if err != nil {
		h.log.Error("manual sweep failed", "error", err)
		jsonError(w, "sweep failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, rep)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.cache.ClearAll(r.Context())
	if err != nil {
		h.log.Error("cache clear failed", "error", err)
		jsonError(w, "clear failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"cleared": n})
}

func (h *Handler) clearQuery(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := h.cache.ClearQuery(r.Context(), key); err != nil {
		h.log.Error("query clear failed", "query_key", key, "error", err)
		jsonError(w, "clear failed", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"cleared": key})
}

func (h *Handler) cacheInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.cache.Info(r.Context())
	if err != nil {
		h.log.Error("cache info failed", "error", err)
		jsonError(w, "cache error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, info)
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.log.Error("cache stats failed", "error", err)
		jsonError(w, "cache error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, stats)
}

func (h *Handler) cacheSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := listingcache.Criteria{
		Title:    q.Get("title"),
		Company:  q.Get("company"),
		Location: q.Get("location"),
	}
	var err error
	if c.Limit, err = intParam(q.Get("limit")); err != nil {
		jsonError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	if c.RemoteOnly, err = boolParam(q.Get("remote")); err != nil {
		jsonError(w, "invalid remote", http.StatusBadRequest)
		return
	}
	if c.TrustedOnly, err = boolParam(q.Get("trusted")); err != nil {
		jsonError(w, "invalid trusted", http.StatusBadRequest)
		return
	}

	jobs, err := h.cache.Search(r.Context(), c)
	if err != nil {
		h.log.Error("cache search failed", "error", err)
		jsonError(w, "cache error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	return n, nil
}

func boolParam(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func jsonOK(w http.ResponseWriter, v any) {
	writeJSON(w, http.StatusOK, v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
