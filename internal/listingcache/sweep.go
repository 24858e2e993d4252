package listingcache

import (
	"context"
	"fmt"
)

// SweepReport counts what a sweep removed.
type SweepReport struct {
	Queries int `json:"expiredSearches"`
	Jobs    int `json:"expiredJobs"`
}

// SweepExpired removes query entries and job hashes past expires_at, and
// drops active-set members whose entry is gone. Running it concurrently or
// repeatedly is safe.
func (m *Manager) SweepExpired(ctx context.Context) (SweepReport, error) {
	var rep SweepReport

	active, err := m.store.SMembers(ctx, activeSearches)
	if err != nil {
		return rep, fmt.Errorf("list active searches: %w", err)
	}
	for _, key := range active {
		expiresAt, ok, err := m.store.HGet(ctx, searchKey(key), fieldExpiresAt)
		if err != nil {
			return rep, fmt.Errorf("read query %s: %w", key, err)
		}
		if ok && !m.expired(expiresAt) {
			continue
		}
		if _, err := m.store.Del(ctx, searchKey(key)); err != nil {
			return rep, fmt.Errorf("delete query %s: %w", key, err)
		}
		if err := m.store.SRem(ctx, activeSearches, key); err != nil {
			return rep, fmt.Errorf("deactivate query %s: %w", key, err)
		}
		rep.Queries++
	}

	keys, err := m.store.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return rep, fmt.Errorf("list job keys: %w", err)
	}
	for lo := 0; lo < len(keys); lo += m.chunk {
		batch := keys[lo:min(lo+m.chunk, len(keys))]
		hashes, err := m.store.HGetAllBatch(ctx, batch)
		if err != nil {
			return rep, fmt.Errorf("read job batch: %w", err)
		}

		var stale, staleIDs []string
		for i, h := range hashes {
			// a hash gone between SCAN and read was already removed
			if len(h) == 0 || !m.expired(h[fieldExpiresAt]) {
				continue
			}
			stale = append(stale, batch[i])
			staleIDs = append(staleIDs, idFromJobKey(batch[i]))
		}
		if len(stale) == 0 {
			continue
		}
		if _, err := m.store.Del(ctx, stale...); err != nil {
			return rep, fmt.Errorf("delete expired jobs: %w", err)
		}
		if m.index != nil {
			if err := m.index.Remove(ctx, staleIDs...); err != nil {
				m.log.Warn("cluster cleanup failed", "jobs", len(staleIDs), "error", err)
			}
		}
		rep.Jobs += len(stale)
	}

	m.metrics.RecordSweep("query", rep.Queries)
	m.metrics.RecordSweep("job", rep.Jobs)
	m.log.Info("cache sweep complete", "expired_searches", rep.Queries, "expired_jobs", rep.Jobs)
	return rep, nil
}

// ClearAll deletes every job hash, query entry, the active set and the
// cluster sets. It returns the number of job and query entries removed.
func (m *Manager) ClearAll(ctx context.Context) (int64, error) {
	jobs, err := m.store.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("list job keys: %w", err)
	}
	searches, err := m.store.Keys(ctx, searchKeyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("list search keys: %w", err)
	}

	n, err := m.store.Del(ctx, append(jobs, searches...)...)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	if _, err := m.store.Del(ctx, activeSearches); err != nil {
		return n, fmt.Errorf("delete active searches: %w", err)
	}
	if m.index != nil {
		if _, err := m.index.Clear(ctx); err != nil {
			return n, fmt.Errorf("clear cluster index: %w", err)
		}
	}

	m.log.Info("cache cleared", "entries", n)
	return n, nil
}

// ClearQuery removes one query entry along with the job hashes it references.
func (m *Manager) ClearQuery(ctx context.Context, key string) error {
	fields, err := m.store.HGetAll(ctx, searchKey(key))
	if err != nil {
		return fmt.Errorf("read query %s: %w", key, err)
	}
	if len(fields) > 0 {
		entry, err := decodeQueryEntry(key, fields)
		if err != nil {
			return err
		}
		jobKeys := make([]string, 0, len(entry.JobIDs))
		for _, id := range entry.JobIDs {
			jobKeys = append(jobKeys, jobKey(id))
		}
		if _, err := m.store.Del(ctx, jobKeys...); err != nil {
			return fmt.Errorf("delete jobs of query %s: %w", key, err)
		}
	}
	if _, err := m.store.Del(ctx, searchKey(key)); err != nil {
		return fmt.Errorf("delete query %s: %w", key, err)
	}
	if err := m.store.SRem(ctx, activeSearches, key); err != nil {
		return fmt.Errorf("deactivate query %s: %w", key, err)
	}
	return nil
}
