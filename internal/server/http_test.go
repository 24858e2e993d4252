package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/recommend"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakeRecommender struct {
	got  recommend.Options
	resp recommend.Response
	err  error
}

func (f *fakeRecommender) Recommend(_ context.Context, userID string, opts recommend.Options) (recommend.Response, error) {
	f.got = opts
	if f.err != nil {
		return recommend.Response{}, f.err
	}
	r := f.resp
	r.UserID = userID
	return r, nil
}

type fakeCache struct {
	swept, cleared int
	clearedKey     string
	criteria       listingcache.Criteria
	err            error
}

func (f *fakeCache) SweepExpired(context.Context) (listingcache.SweepReport, error) {
	f.swept++
	return listingcache.SweepReport{Queries: 1, Jobs: 2}, f.err
}

func (f *fakeCache) ClearAll(context.Context) (int64, error) {
	f.cleared++
	return 7, f.err
}

func (f *fakeCache) ClearQuery(_ context.Context, key string) error {
	f.clearedKey = key
	return f.err
}

func (f *fakeCache) Info(context.Context) (listingcache.Info, error) {
	return listingcache.Info{ActiveSearches: 3, CachedJobs: 9, CacheDurationHours: 72}, f.err
}

func (f *fakeCache) Stats(context.Context) (listingcache.Stats, error) {
	return listingcache.Stats{Total: 9, Trusted: 4}, f.err
}

func (f *fakeCache) Search(_ context.Context, c listingcache.Criteria) ([]model.JobRecord, error) {
	f.criteria = c
	return []model.JobRecord{{ID: "j1", Title: "Engineer"}}, f.err
}

type fakeCatalog struct{}

func (fakeCatalog) Categories() []string       { return []string{"Data Science", "Other"} }
func (fakeCatalog) TrustedCompanies() []string { return []string{"acme", "initech"} }

type fakeRelated struct{}

func (fakeRelated) Peek(context.Context, string) ([]model.RankedCandidate, error) {
	return []model.RankedCandidate{{Job: model.JobRecord{ID: "q1"}, Score: 0.4}}, nil
}

func newTestHandler(rec *fakeRecommender, cache *fakeCache, checks map[string]Check) http.Handler {
	return NewHandler(HandlerDeps{
		Recommender: rec,
		Related:     fakeRelated{},
		Cache:       cache,
		Catalog:     fakeCatalog{},
		Checks:      checks,
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics")) }),
	}).Routes()
}

func do(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if w.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

// ─── Tests ──────────────────────────────────────────────────────────────────

func TestRecommendations(t *testing.T) {
	rec := &fakeRecommender{resp: recommend.Response{
		Jobs:  []model.RankedCandidate{{Job: model.JobRecord{ID: "j1", Title: "Engineer"}, Score: 0.8}},
		Total: 1,
	}}
	h := newTestHandler(rec, &fakeCache{}, nil)

	w, body := do(t, h, http.MethodGet,
		"/recommendations/u1?limit=30&page_size=10&keywords=go&location=Austin&type=Contract&category=Design&trusted=true&refresh=1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "u1", body["userId"])

	assert.Equal(t, recommend.Options{
		Limit:        30,
		PageSize:     10,
		Keywords:     "go",
		Location:     "Austin",
		Filters:      model.Filters{JobType: "Contract", Category: "Design", TrustedOnly: true},
		ForceRefresh: true,
	}, rec.got)
}

// slowRecommender keeps gathering until its context ends, then answers with
// what it has.
type slowRecommender struct{}

func (slowRecommender) Recommend(ctx context.Context, userID string, _ recommend.Options) (recommend.Response, error) {
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	return recommend.Response{
		UserID: userID,
		Jobs:   []model.RankedCandidate{{Job: model.JobRecord{ID: "partial"}, Score: 0.5}},
		Total:  1,
	}, nil
}

func TestRecommendationsDeadline(t *testing.T) {
	h := NewHandler(HandlerDeps{
		Recommender:      slowRecommender{},
		RecommendTimeout: 50 * time.Millisecond,
	}).Routes()

	start := time.Now()
	w, body := do(t, h, http.MethodGet, "/recommendations/u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Less(t, time.Since(start), 2*time.Second)

	jobs := body["jobs"].([]any)
	require.Len(t, jobs, 1)
	assert.Equal(t, "partial", jobs[0].(map[string]any)["job"].(map[string]any)["id"])
}

func TestRecommendationsErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad limit", "/recommendations/u1?limit=abc", nil, http.StatusBadRequest},
		{"negative limit", "/recommendations/u1?limit=-1", nil, http.StatusBadRequest},
		{"bad flag", "/recommendations/u1?trusted=maybe", nil, http.StatusBadRequest},
		{"unknown user", "/recommendations/ghost", recommend.ErrUserNotFound, http.StatusNotFound},
		{"internal", "/recommendations/u1", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeRecommender{err: tt.err}, &fakeCache{}, nil)
			w, body := do(t, h, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRelatedJobs(t *testing.T) {
	h := newTestHandler(&fakeRecommender{}, &fakeCache{}, nil)
	w, body := do(t, h, http.MethodGet, "/recommendations/u1/related")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["jobs"], 1)
}

func TestAdminRoutes(t *testing.T) {
	cache := &fakeCache{}
	h := newTestHandler(&fakeRecommender{}, cache, nil)

	w, body := do(t, h, http.MethodPost, "/admin/cache/sweep")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["expiredJobs"])
	assert.Equal(t, 1, cache.swept)

	w, body = do(t, h, http.MethodPost, "/admin/cache/clear")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7.0, body["cleared"])

	w, body = do(t, h, http.MethodGet, "/admin/cache/info")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 9.0, body["cachedJobs"])

	w, body = do(t, h, http.MethodGet, "/admin/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4.0, body["trusted"])

	w, body = do(t, h, http.MethodGet, "/admin/cache/search?title=eng&remote=true&limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, listingcache.Criteria{Title: "eng", RemoteOnly: true, Limit: 5}, cache.criteria)

	w, body = do(t, h, http.MethodDelete, "/admin/cache/queries/abc123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", body["cleared"])
	assert.Equal(t, "abc123", cache.clearedKey)

	w, _ = do(t, h, http.MethodGet, "/admin/cache/sweep")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAdminFailure(t *testing.T) {
	h := newTestHandler(&fakeRecommender{}, &fakeCache{err: errors.New("redis down")}, nil)
	w, body := do(t, h, http.MethodPost, "/admin/cache/clear")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "clear failed", body["error"])
}

func TestCatalogRoutes(t *testing.T) {
	h := newTestHandler(&fakeRecommender{}, &fakeCache{}, nil)

	w, body := do(t, h, http.MethodGet, "/categories")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Data Science", "Other"}, body["categories"])

	w, body = do(t, h, http.MethodGet, "/trusted-companies")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, body["count"])
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	w, body := do(t, newTestHandler(&fakeRecommender{}, &fakeCache{}, map[string]Check{"redis": ok}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, body = do(t, newTestHandler(&fakeRecommender{}, &fakeCache{}, map[string]Check{"redis": ok, "postgres": down}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]any)
	assert.Equal(t, "ok", deps["redis"])
	assert.Equal(t, "connection refused", deps["postgres"])
}

func TestMetricsRoute(t *testing.T) {
	w, _ := do(t, newTestHandler(&fakeRecommender{}, &fakeCache{}, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestHealthReporter(t *testing.T) {
	ctx := context.Background()
	healthy := true
	r := NewHealthReporter(map[string]Check{"redis": func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("down")
	}}, nil)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, r.Refresh(ctx))
	resp, err := r.hs.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	healthy = false
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, r.Refresh(ctx))
	resp, err = r.hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
