package retrieval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/recommendation-service/internal/cachestore"
	"jobmate/recommendation-service/internal/cluster"
	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────────────

type fakePostings struct {
	jobs []model.JobRecord
	err  error
}

func (f *fakePostings) QueryActivePostings(_ context.Context, _ model.Filters, limit int) ([]model.JobRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.jobs[:min(limit, len(f.jobs))], nil
}

type fetchCall struct {
	keywords, location string
	maxItems           int
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	raws  []model.RawListing
	err   error
}

func (f *fakeFetcher) FetchListings(_ context.Context, keywords, location string, maxItems int, _ model.Filters) ([]model.RawListing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{keywords, location, maxItems})
	return f.raws[:min(maxItems, len(f.raws))], f.err
}

type env struct {
	store   cachestore.Store
	clock   *cachestore.ManualClock
	index   *cluster.Index
	cache   *listingcache.Manager
	fetcher *fakeFetcher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := cachestore.NewMemoryStore(nil)
	clock := cachestore.NewManualClock(time.Now().UTC())
	idx := cluster.NewIndex(store, nil, 0)
	cache := listingcache.New(store, idx, listingcache.Options{TTL: 72 * time.Hour, ChunkSize: 2, Clock: clock.Now})
	return &env{store: store, clock: clock, index: idx, cache: cache, fetcher: &fakeFetcher{}}
}

func (e *env) orchestrator(postings PostingSource, threshold int) *Orchestrator {
	return NewOrchestrator([]Tier{
		NewDurableTier(postings),
		NewCachedTier(e.cache, e.index),
		NewFreshTier(e.fetcher, e.cache, threshold, nil),
	}, nil, nil)
}

func (e *env) put(t *testing.T, j model.JobRecord) {
	t.Helper()
	_, err := e.cache.Put(context.Background(), j)
	require.NoError(t, err)
}

func record(id, title, location string) model.JobRecord {
	return model.JobRecord{
		ID:             id,
		Title:          title,
		Company:        "Acme",
		Location:       model.ParseLocation(location),
		EmploymentType: model.EmploymentFullTime,
		Category:       "Software Engineering",
	}
}

func jobIDs(jobs []model.JobRecord) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func raws(prefix string, n int, location string) []model.RawListing {
	out := make([]model.RawListing, n)
	for i := range out {
		out[i] = model.RawListing{
			ID:       fmt.Sprintf("%s%d", prefix, i+1),
			Title:    "Platform Engineer",
			Company:  "Initech",
			Location: location,
		}
	}
	return out
}

func assertDistinct(t *testing.T, jobs []model.JobRecord) {
	t.Helper()
	seen := make(map[string]bool)
	for _, j := range jobs {
		assert.False(t, seen[j.ID], "duplicate id %s", j.ID)
		seen[j.ID] = true
	}
}

func assertSorted(t *testing.T, jobs []model.JobRecord) {
	t.Helper()
	for i := 1; i < len(jobs); i++ {
		assert.GreaterOrEqual(t, jobs[i-1].Priority, jobs[i].Priority)
	}
}

// ─── Scenarios ──────────────────────────────────────────────────────────────

func TestCachedShortfallTriggersFetch(t *testing.T) {
	e := newEnv(t)

	e.put(t, record("x1", "Old Listing", "Austin, TX"))
	e.put(t, record("x2", "Old Listing", "Boston, MA"))
	e.clock.Advance(73 * time.Hour)
	for i := 1; i <= 5; i++ {
		e.put(t, record(fmt.Sprintf("c%d", i), "Go Developer", "Seattle, WA"))
	}
	e.fetcher.raws = raws("f", 10, "Denver, CO")

	res, err := e.orchestrator(&fakePostings{}, 20).FetchCandidates(context.Background(), Request{
		Limit:    10,
		Keywords: "go",
		Location: "USA",
	})
	require.NoError(t, err)

	require.Len(t, e.fetcher.calls, 1)
	assert.Equal(t, 5, e.fetcher.calls[0].maxItems)
	assert.Equal(t, "USA", e.fetcher.calls[0].location)

	require.Len(t, res.Jobs, 10)
	assertDistinct(t, res.Jobs)
	assertSorted(t, res.Jobs)

	var cached, fresh int
	for _, j := range res.Jobs {
		switch j.Source {
		case model.SourceCached:
			cached++
			assert.NotEqual(t, "x1", j.ID)
			assert.NotEqual(t, "x2", j.ID)
		case model.SourceFresh:
			fresh++
		}
	}
	assert.Equal(t, 5, cached)
	assert.Equal(t, 5, fresh)
	assert.Equal(t, []string{TierCached, TierFresh}, res.Diagnostics.Contributed())

	// fetched jobs were written back
	_, ok, err := e.cache.Get(context.Background(), "f1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDurableSatisfiesRequest(t *testing.T) {
	e := newEnv(t)
	e.put(t, record("c1", "Cached", "Austin, TX"))

	postings := &fakePostings{jobs: []model.JobRecord{
		record("d1", "A", "Austin, TX"),
		record("d2", "B", "Austin, TX"),
		record("d3", "C", "Austin, TX"),
	}}
	res, err := e.orchestrator(postings, 20).FetchCandidates(context.Background(), Request{Limit: 3})
	require.NoError(t, err)

	require.Len(t, res.Jobs, 3)
	for _, j := range res.Jobs {
		assert.Equal(t, model.SourceDurable, j.Source)
		assert.Equal(t, model.PriorityDurable, j.Priority)
	}
	assert.Empty(t, e.fetcher.calls)
	require.Len(t, res.Diagnostics.Tiers, 3)
	assert.True(t, res.Diagnostics.Tiers[1].Skipped)
	assert.True(t, res.Diagnostics.Tiers[2].Skipped)
}

func TestTierFailureDegrades(t *testing.T) {
	e := newEnv(t)
	e.put(t, record("c1", "Cached", "Austin, TX"))
	e.fetcher.err = errors.New("upstream down")

	res, err := e.orchestrator(&fakePostings{err: errors.New("connection refused")}, 20).
		FetchCandidates(context.Background(), Request{Limit: 5})
	require.NoError(t, err)

	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "c1", res.Jobs[0].ID)

	tiers := res.Diagnostics.Tiers
	require.Len(t, tiers, 3)
	assert.Contains(t, tiers[0].Error, "connection refused")
	assert.Contains(t, tiers[0].Error, ErrSourceUnavailable.Error())
	assert.Equal(t, 1, tiers[1].Jobs)
	assert.Contains(t, tiers[2].Error, "upstream down")
}

func TestAllTiersFailIsEmptySuccess(t *testing.T) {
	e := newEnv(t)
	e.fetcher.err = errors.New("upstream down")

	res, err := e.orchestrator(&fakePostings{err: errors.New("db down")}, 20).
		FetchCandidates(context.Background(), Request{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
}

func TestFetchPartialResultsKept(t *testing.T) {
	e := newEnv(t)
	e.fetcher.raws = raws("f", 2, "Remote")
	e.fetcher.err = errors.New("page 2 failed")

	res, err := e.orchestrator(nil, 20).FetchCandidates(context.Background(), Request{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 2)
	assert.Contains(t, res.Diagnostics.Tiers[2].Error, "page 2 failed")
	assert.True(t, res.Diagnostics.Tiers[0].Skipped)
}

func TestInvalidLimit(t *testing.T) {
	e := newEnv(t)
	_, err := e.orchestrator(nil, 20).FetchCandidates(context.Background(), Request{Limit: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestExpiredDeadlineSkipsTiers(t *testing.T) {
	e := newEnv(t)
	e.put(t, record("c1", "Cached", "Austin, TX"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.orchestrator(&fakePostings{}, 20).FetchCandidates(ctx, Request{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
	require.Len(t, res.Diagnostics.Tiers, 3)
	for _, tr := range res.Diagnostics.Tiers {
		assert.True(t, tr.Skipped)
	}
	assert.Empty(t, e.fetcher.calls)
}

func TestThresholdGatesFetch(t *testing.T) {
	e := newEnv(t)
	for i := 1; i <= 3; i++ {
		e.put(t, record(fmt.Sprintf("c%d", i), "Cached", "Austin, TX"))
	}
	e.fetcher.raws = raws("f", 5, "Austin, TX")
	o := e.orchestrator(nil, 2)

	res, err := o.FetchCandidates(context.Background(), Request{Limit: 5})
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 3)
	assert.Empty(t, e.fetcher.calls)

	res, err = o.FetchCandidates(context.Background(), Request{Limit: 5, ForceRefresh: true})
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 5)
	require.Len(t, e.fetcher.calls, 1)
	assert.Equal(t, 2, e.fetcher.calls[0].maxItems)
}

func TestQueryResultServedWithoutFetch(t *testing.T) {
	e := newEnv(t)
	e.fetcher.raws = raws("f", 3, "Remote")
	o := e.orchestrator(nil, 20)
	req := Request{Limit: 3, Keywords: "platform", Location: "Remote"}

	first, err := o.FetchCandidates(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Jobs, 3)

	// drop the cluster sets so only the query entry can serve the jobs
	_, err = e.index.Clear(context.Background())
	require.NoError(t, err)

	second, err := o.FetchCandidates(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, second.Jobs, 3)
	assert.Len(t, e.fetcher.calls, 1)
}

func TestCachedLocationRevalidated(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.put(t, record("in1", "Data Engineer", "Pune, India"))
	e.put(t, record("us1", "Data Engineer", "Austin, TX"))
	// stale membership: an Indian job listed under usa
	require.NoError(t, e.store.SAdd(ctx, "cluster:usa:jobs", "in1"))

	res, err := e.orchestrator(nil, 0).FetchCandidates(ctx, Request{Limit: 5, Location: "usa"})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "us1", res.Jobs[0].ID)
}

func TestGlobalBucketNeedsLocationText(t *testing.T) {
	e := newEnv(t)
	e.put(t, record("b1", "Engineer", "Berlin, Germany"))
	e.put(t, record("p1", "Engineer", "Paris, France"))
	e.put(t, record("r1", "Engineer", "Remote"))

	res, err := e.orchestrator(nil, 0).FetchCandidates(context.Background(), Request{Limit: 5, Location: "Berlin"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b1", "r1"}, jobIDs(res.Jobs))

	res, err = e.orchestrator(nil, 0).FetchCandidates(context.Background(), Request{Limit: 5, Location: "all"})
	require.NoError(t, err)
	assert.Len(t, res.Jobs, 3)
}

func TestRegionBucketNeedsLocationText(t *testing.T) {
	e := newEnv(t)
	e.put(t, record("sea", "Engineer", "Seattle, WA"))
	e.put(t, record("aus", "Engineer", "Austin, TX"))
	o := e.orchestrator(nil, 0)

	res, err := o.FetchCandidates(context.Background(), Request{Limit: 5, Location: "Austin, TX"})
	require.NoError(t, err)
	assert.Equal(t, []string{"aus"}, jobIDs(res.Jobs))

	// a whole-region query keeps every job in the bucket
	res, err = o.FetchCandidates(context.Background(), Request{Limit: 5, Location: "United States"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"aus", "sea"}, jobIDs(res.Jobs))
}

// reversedIndex returns bucket members in descending order, like an
// unordered Redis set might.
type reversedIndex struct{ BucketIndex }

func (x reversedIndex) Members(ctx context.Context, bucket string) ([]string, error) {
	out, err := x.BucketIndex.Members(ctx, bucket)
	slices.Reverse(out)
	return out, err
}

func TestCachedReadCapIgnoresSetOrder(t *testing.T) {
	e := newEnv(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		e.put(t, record(id, "Engineer", "Austin, TX"))
	}
	o := NewOrchestrator([]Tier{NewCachedTier(e.cache, reversedIndex{e.index})}, nil, nil)

	res, err := o.FetchCandidates(context.Background(), Request{Limit: 1, Location: "usa"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, jobIDs(res.Jobs))
}

func TestCachedLightFilters(t *testing.T) {
	e := newEnv(t)
	a := record("a", "Engineer", "Austin, TX")
	b := record("b", "Designer", "Austin, TX")
	b.Category = "Design"
	c := record("c", "Contractor", "Austin, TX")
	c.EmploymentType = model.EmploymentContract
	c.Trusted = true
	for _, j := range []model.JobRecord{a, b, c} {
		e.put(t, j)
	}
	o := e.orchestrator(nil, 0)

	res, err := o.FetchCandidates(context.Background(), Request{Limit: 5, Filters: model.Filters{Category: "design"}})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "b", res.Jobs[0].ID)

	res, err = o.FetchCandidates(context.Background(), Request{Limit: 5, Filters: model.Filters{JobType: "Contract"}})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "c", res.Jobs[0].ID)

	res, err = o.FetchCandidates(context.Background(), Request{Limit: 5, Filters: model.Filters{TrustedOnly: true}})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 1)
	assert.Equal(t, "c", res.Jobs[0].ID)
}

func TestMerge(t *testing.T) {
	fresh := func(id string) model.JobRecord { return record(id, "t", "").WithSource(model.SourceFresh) }
	cached := func(id string) model.JobRecord { return record(id, "t", "").WithSource(model.SourceCached) }
	durable := func(id string) model.JobRecord { return record(id, "t", "").WithSource(model.SourceDurable) }

	got := Merge(10, []model.JobRecord{fresh("a"), cached("b"), durable("a"), fresh("c"), cached("b"), durable("d")})

	ids := make([]string, len(got))
	for i, j := range got {
		ids[i] = j.ID
	}
	assert.Equal(t, []string{"a", "d", "b", "c"}, ids)
	assert.Equal(t, model.SourceDurable, got[0].Source)

	assert.Len(t, Merge(2, got), 2)
	assert.Empty(t, Merge(5, nil))
}
