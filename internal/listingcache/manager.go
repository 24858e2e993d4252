// Package listingcache owns the cache schema: per-job hashes, per-query
// result sets, the active-query index and expiry sweeping.
package listingcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"jobmate/recommendation-service/internal/cachestore"
	"jobmate/recommendation-service/internal/cluster"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/metrics"
	"jobmate/recommendation-service/internal/model"
)

const (
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldJobIDs    = "job_ids"
	fieldJobCount  = "job_count"
	fieldMetadata  = "metadata"

	defaultChunkSize = 25
)

// Options tune a Manager. Zero values take defaults.
type Options struct {
	TTL       time.Duration
	ChunkSize int
	Clock     cachestore.Clock
	Logger    *logging.Logger
	Metrics   *metrics.Collector
}

// Manager reads and writes cached listings. Writes are upserts, so
// concurrent writers of the same id need no locking.
type Manager struct {
	store   cachestore.Store
	index   *cluster.Index
	ttl     time.Duration
	chunk   int
	now     cachestore.Clock
	log     *logging.Logger
	metrics *metrics.Collector
}

// New builds a Manager over store. index may be nil when region clustering
// is not wanted.
func New(store cachestore.Store, index *cluster.Index, opts Options) *Manager {
	m := &Manager{
		store:   store,
		index:   index,
		ttl:     opts.TTL,
		chunk:   opts.ChunkSize,
		now:     opts.Clock,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
	if m.ttl <= 0 {
		m.ttl = 72 * time.Hour
	}
	if m.chunk <= 0 {
		m.chunk = defaultChunkSize
	}
	if m.now == nil {
		m.now = cachestore.SystemClock
	}
	if m.log == nil {
		m.log = logging.NewNop()
	}
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// ─── Jobs ───────────────────────────────────────────────────────────────────

// Put writes job under job:{id} with a fresh TTL and registers it in its
// region bucket. A missing id is derived from title, company and location.
func (m *Manager) Put(ctx context.Context, job model.JobRecord) (string, error) {
	if job.ID == "" {
		job.ID = model.StableID(job.Title, job.Company, job.Location.String())
	}

	now := m.now()
	fields := model.ToCacheFields(job)
	fields[fieldCreatedAt] = model.FormatTime(now)
	fields[fieldExpiresAt] = model.FormatTime(now.Add(m.ttl))

	key := jobKey(job.ID)
	if err := m.store.HSet(ctx, key, fields); err != nil {
		return "", fmt.Errorf("cache job %s: %w", job.ID, err)
	}
	if err := m.store.Expire(ctx, key, m.ttl); err != nil {
		return "", fmt.Errorf("expire job %s: %w", job.ID, err)
	}

	if m.index != nil {
		if _, err := m.index.Assign(ctx, job.ID, job.Location.String()); err != nil {
			m.log.Warn("cluster assignment failed", "job_id", job.ID, "error", err)
		}
	}
	return job.ID, nil
}

// Get returns the cached job. A missing hash, a past expires_at or a
// closed posting is a miss.
func (m *Manager) Get(ctx context.Context, id string) (model.JobRecord, bool, error) {
	fields, err := m.store.HGetAll(ctx, jobKey(id))
	if err != nil {
		return model.JobRecord{}, false, fmt.Errorf("read job %s: %w", id, err)
	}
	job, ok, err := m.decodeJob(fields)
	m.metrics.RecordCacheLookup(ok)
	return job, ok, err
}

// GetMany reads ids in concurrent chunks. Output keeps input order; missing,
// expired, closed and malformed entries are skipped.
func (m *Manager) GetMany(ctx context.Context, ids []string) ([]model.JobRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	chunks := make([][]map[string]string, (len(ids)+m.chunk-1)/m.chunk)
	g, gctx := errgroup.WithContext(ctx)
	for i := range chunks {
		lo := i * m.chunk
		hi := min(lo+m.chunk, len(ids))
		keys := make([]string, 0, hi-lo)
		for _, id := range ids[lo:hi] {
			keys = append(keys, jobKey(id))
		}
		g.Go(func() error {
			res, err := m.store.HGetAllBatch(gctx, keys)
			if err != nil {
				return err
			}
			chunks[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch read %d jobs: %w", len(ids), err)
	}

	out := make([]model.JobRecord, 0, len(ids))
	for _, chunk := range chunks {
		for _, fields := range chunk {
			job, ok, err := m.decodeJob(fields)
			m.metrics.RecordCacheLookup(ok)
			if err != nil {
				m.log.Warn("skipping malformed cached job", "job_id", fields[model.FieldID], "error", err)
				continue
			}
			if ok {
				out = append(out, job)
			}
		}
	}
	return out, nil
}

func (m *Manager) decodeJob(fields map[string]string) (model.JobRecord, bool, error) {
	if len(fields) == 0 {
		return model.JobRecord{}, false, nil
	}
	if m.expired(fields[fieldExpiresAt]) {
		return model.JobRecord{}, false, nil
	}
	job, err := model.FromCache(fields)
	if err != nil {
		return model.JobRecord{}, false, err
	}
	if job.IsExpired(m.now()) {
		return model.JobRecord{}, false, nil
	}
	return job, true, nil
}

// expired treats an unreadable expires_at as expired.
func (m *Manager) expired(expiresAt string) bool {
	t := model.ParseTime(expiresAt)
	return t.IsZero() || m.now().After(t)
}

// ─── Queries ────────────────────────────────────────────────────────────────

// QueryEntry is the stored form of one query result set.
type QueryEntry struct {
	Key       string         `json:"key"`
	JobIDs    []string       `json:"jobIds"`
	JobCount  int            `json:"jobCount"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// PutQueryResult stores the ordered ids a query resolved to and registers
// the key as active. metadata must be JSON-representable.
func (m *Manager) PutQueryResult(ctx context.Context, key string, jobIDs []string, metadata map[string]any) error {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	ids, err := json.Marshal(jobIDs)
	if err != nil {
		return fmt.Errorf("encode job ids: %w", err)
	}

	now := m.now()
	sk := searchKey(key)
	if err := m.store.HSet(ctx, sk, map[string]string{
		fieldJobIDs:    string(ids),
		fieldJobCount:  strconv.Itoa(len(jobIDs)),
		fieldMetadata:  meta,
		fieldCreatedAt: model.FormatTime(now),
		fieldExpiresAt: model.FormatTime(now.Add(m.ttl)),
	}); err != nil {
		return fmt.Errorf("cache query %s: %w", key, err)
	}
	if err := m.store.Expire(ctx, sk, m.ttl); err != nil {
		return fmt.Errorf("expire query %s: %w", key, err)
	}
	if err := m.store.SAdd(ctx, activeSearches, key); err != nil {
		return fmt.Errorf("register query %s: %w", key, err)
	}
	return nil
}

// GetQueryResult dereferences a live query entry. Jobs that expired on their
// own are skipped.
func (m *Manager) GetQueryResult(ctx context.Context, key string) ([]model.JobRecord, bool, error) {
	entry, ok, err := m.queryEntry(ctx, key)
	if err != nil || !ok {
		m.metrics.RecordCacheLookup(false)
		return nil, false, err
	}
	m.metrics.RecordCacheLookup(true)

	jobs, err := m.GetMany(ctx, entry.JobIDs)
	if err != nil {
		return nil, false, err
	}
	return jobs, true, nil
}

// queryEntry reads and decodes search:{key}, reporting a miss when absent or expired.
func (m *Manager) queryEntry(ctx context.Context, key string) (QueryEntry, bool, error) {
	fields, err := m.store.HGetAll(ctx, searchKey(key))
	if err != nil {
		return QueryEntry{}, false, fmt.Errorf("read query %s: %w", key, err)
	}
	if len(fields) == 0 || m.expired(fields[fieldExpiresAt]) {
		return QueryEntry{}, false, nil
	}
	entry, err := decodeQueryEntry(key, fields)
	if err != nil {
		return QueryEntry{}, false, err
	}
	return entry, true, nil
}

func decodeQueryEntry(key string, fields map[string]string) (QueryEntry, error) {
	e := QueryEntry{
		Key:       key,
		CreatedAt: model.ParseTime(fields[fieldCreatedAt]),
		ExpiresAt: model.ParseTime(fields[fieldExpiresAt]),
	}
	if raw := fields[fieldJobIDs]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.JobIDs); err != nil {
			return QueryEntry{}, fmt.Errorf("%w: query %s job_ids: %v", model.ErrMalformedRecord, key, err)
		}
	}
	e.JobCount = len(e.JobIDs)
	if n, err := strconv.Atoi(fields[fieldJobCount]); err == nil {
		e.JobCount = n
	}
	meta, err := decodeMetadata(fields[fieldMetadata])
	if err != nil {
		return QueryEntry{}, fmt.Errorf("%w: query %s metadata: %v", model.ErrMalformedRecord, key, err)
	}
	e.Metadata = meta
	return e, nil
}

func encodeMetadata(md map[string]any) (string, error) {
	if len(md) == 0 {
		return "{}", nil
	}
	s, err := structpb.NewStruct(md)
	if err != nil {
		return "", fmt.Errorf("%w: metadata: %v", model.ErrMalformedRecord, err)
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%w: metadata: %v", model.ErrMalformedRecord, err)
	}
	return string(b), nil
}

func decodeMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var s structpb.Struct
	if err := protojson.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}
