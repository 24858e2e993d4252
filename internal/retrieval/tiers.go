package retrieval

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"jobmate/recommendation-service/internal/listingcache"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/scraper"
)

const (
	TierDurable = "durable"
	TierCached  = "cached"
	TierFresh   = "fresh"

	// maxCachedReads caps how many bucket members one request dereferences.
	maxCachedReads = 200
	maxFreshItems  = 100
)

// ─── Collaborators ──────────────────────────────────────────────────────────

// PostingSource is the durable store of employer postings.
type PostingSource interface {
	QueryActivePostings(ctx context.Context, filters model.Filters, limit int) ([]model.JobRecord, error)
}

// ListingCache is the subset of listingcache.Manager the tiers use.
type ListingCache interface {
	Put(ctx context.Context, job model.JobRecord) (string, error)
	GetMany(ctx context.Context, ids []string) ([]model.JobRecord, error)
	PutQueryResult(ctx context.Context, key string, jobIDs []string, metadata map[string]any) error
	GetQueryResult(ctx context.Context, key string) ([]model.JobRecord, bool, error)
}

// BucketIndex is the subset of cluster.Index the cached tier uses.
type BucketIndex interface {
	BucketsForQuery(location string) []string
	Wildcard(location string) bool
	RegionQuery(location string) bool
	Members(ctx context.Context, bucket string) ([]string, error)
	Matches(bucket, location string) bool
}

// ─── Durable ────────────────────────────────────────────────────────────────

type durableTier struct {
	src PostingSource
}

// NewDurableTier serves active employer postings at priority 1.0.
func NewDurableTier(src PostingSource) Tier { return &durableTier{src: src} }

func (t *durableTier) Name() string { return TierDurable }

func (t *durableTier) Fetch(ctx context.Context, st *State) ([]model.JobRecord, error) {
	if t.src == nil {
		return nil, errSkipped
	}
	jobs, err := t.src.QueryActivePostings(ctx, st.Request.Filters, st.Request.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		j = j.WithSource(model.SourceDurable)
		if !matchesLight(j, st.Request.Filters, false) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// ─── Cached ─────────────────────────────────────────────────────────────────

type cachedTier struct {
	cache ListingCache
	index BucketIndex
}

// NewCachedTier serves region-bucketed cached listings at priority 0.7.
func NewCachedTier(cache ListingCache, index BucketIndex) Tier {
	return &cachedTier{cache: cache, index: index}
}

func (t *cachedTier) Name() string { return TierCached }

func (t *cachedTier) Fetch(ctx context.Context, st *State) ([]model.JobRecord, error) {
	if t.cache == nil || t.index == nil {
		return nil, errSkipped
	}
	req := st.Request
	buckets := t.index.BucketsForQuery(req.Location)

	members := make([][]string, len(buckets))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range buckets {
		g.Go(func() error {
			ids, err := t.index.Members(gctx, b)
			if err != nil {
				return fmt.Errorf("bucket %s: %w", b, err)
			}
			// set order is unspecified; sort so the read cap picks a stable subset
			slices.Sort(ids)
			members[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// first bucket wins for ids listed under several
	shortfall := st.Shortfall()
	limit := min(3*shortfall, maxCachedReads)
	var ids []string
	origin := make(map[string]string)
	for i, b := range buckets {
		for _, id := range members[i] {
			if len(ids) >= limit {
				break
			}
			if _, dup := origin[id]; dup || st.Seen(id) {
				continue
			}
			origin[id] = b
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	jobs, err := t.cache.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	broad := t.index.Wildcard(req.Location) || t.index.RegionQuery(req.Location)
	out := make([]model.JobRecord, 0, shortfall)
	for _, j := range jobs {
		if len(out) >= shortfall {
			break
		}
		if !t.locationMatches(origin[j.ID], j, req.Location, broad) {
			continue
		}
		if !matchesLight(j, req.Filters, true) {
			continue
		}
		out = append(out, j.WithSource(model.SourceCached))
	}
	return out, nil
}

// locationMatches re-checks bucket membership, which is advisory. Unless the
// query is a wildcard or a whole region, the job's location must also contain
// the query text or be remote.
func (t *cachedTier) locationMatches(bucket string, j model.JobRecord, query string, broad bool) bool {
	loc := strings.ToLower(j.Location.String())
	if !t.index.Matches(bucket, loc) {
		return false
	}
	if broad {
		return true
	}
	if j.Location.Remote || strings.Contains(loc, "remote") {
		return true
	}
	return strings.Contains(loc, strings.ToLower(strings.TrimSpace(query)))
}

// ─── Fresh ──────────────────────────────────────────────────────────────────

type freshTier struct {
	fetcher   scraper.Fetcher
	cache     ListingCache
	threshold int
	now       func() time.Time
	log       *logging.Logger
}

// NewFreshTier fetches live listings at priority 0.5 when fewer than
// threshold jobs were gathered, or when the request forces a refresh. Every
// fetched job is written back to the cache.
func NewFreshTier(f scraper.Fetcher, cache ListingCache, threshold int, log *logging.Logger) Tier {
	if log == nil {
		log = logging.NewNop()
	}
	return &freshTier{fetcher: f, cache: cache, threshold: threshold, now: time.Now, log: log}
}

func (t *freshTier) Name() string { return TierFresh }

func (t *freshTier) Fetch(ctx context.Context, st *State) ([]model.JobRecord, error) {
	req := st.Request
	shortfall := st.Shortfall()
	if t.fetcher == nil || shortfall == 0 || (st.Count() >= t.threshold && !req.ForceRefresh) {
		return nil, errSkipped
	}

	key := listingcache.QueryKey(listingcache.QuerySpec{
		Keywords:    req.Keywords,
		Location:    req.Location,
		Limit:       req.Limit,
		JobType:     req.Filters.JobType,
		Category:    req.Filters.Category,
		TrustedOnly: req.Filters.TrustedOnly,
	})

	if t.cache != nil && !req.ForceRefresh {
		jobs, ok, err := t.cache.GetQueryResult(ctx, key)
		if err != nil {
			t.log.Warn("query cache read failed", "query_key", key, "error", err)
		}
		if ok {
			return unseen(st, jobs, shortfall), nil
		}
	}

	raws, fetchErr := t.fetcher.FetchListings(ctx, req.Keywords, req.Location, min(shortfall, maxFreshItems), req.Filters)
	if fetchErr != nil && len(raws) == 0 {
		return nil, fetchErr
	}

	jobs := make([]model.JobRecord, 0, len(raws))
	for _, raw := range raws {
		j, err := model.FromRaw(raw)
		if err != nil {
			t.log.Warn("skipping malformed listing", "title", raw.Title, "error", err)
			continue
		}
		jobs = append(jobs, j)
	}
	jobs = t.writeBack(ctx, key, req, jobs)
	return unseen(st, jobs, shortfall), fetchErr
}

// writeBack caches each job and records the query result. Cache failures
// only cost the next request a refetch.
func (t *freshTier) writeBack(ctx context.Context, key string, req Request, jobs []model.JobRecord) []model.JobRecord {
	if t.cache == nil {
		return jobs
	}
	// write-back must outlive a request deadline that fired mid-fetch
	ctx = context.WithoutCancel(ctx)

	ids := make([]string, 0, len(jobs))
	for i := range jobs {
		id, err := t.cache.Put(ctx, jobs[i])
		if err != nil {
			t.log.Warn("cache write failed", "job_id", jobs[i].ID, "error", err)
			continue
		}
		jobs[i].ID = id
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return jobs
	}

	meta := map[string]any{
		"keywords":     req.Keywords,
		"location":     req.Location,
		"limit":        req.Limit,
		"job_type":     req.Filters.JobType,
		"category":     req.Filters.Category,
		"trusted_only": req.Filters.TrustedOnly,
		"fetched_at":   model.FormatTime(t.now()),
	}
	if err := t.cache.PutQueryResult(ctx, key, ids, meta); err != nil {
		t.log.Warn("query cache write failed", "query_key", key, "error", err)
	}
	return jobs
}

// ─── Filters ────────────────────────────────────────────────────────────────

// matchesLight applies the type, category and trust filters. Durable
// postings carry no taxonomy category, so withCategory is false for them.
func matchesLight(j model.JobRecord, f model.Filters, withCategory bool) bool {
	if strings.TrimSpace(f.JobType) != "" && j.EmploymentType != model.NormalizeEmploymentType(f.JobType) {
		return false
	}
	if withCategory && strings.TrimSpace(f.Category) != "" && !strings.EqualFold(j.Category, strings.TrimSpace(f.Category)) {
		return false
	}
	if f.TrustedOnly && !j.Trusted {
		return false
	}
	return true
}

func unseen(st *State, jobs []model.JobRecord, limit int) []model.JobRecord {
	out := make([]model.JobRecord, 0, min(len(jobs), limit))
	for _, j := range jobs {
		if len(out) >= limit {
			break
		}
		if st.Seen(j.ID) {
			continue
		}
		out = append(out, j)
	}
	return out
}
