// Package queue keeps a per-user list of ranked candidates that did not make
// the first page.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jobmate/recommendation-service/internal/cachestore"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/model"
)

const DefaultTTL = 48 * time.Hour

func key(userID string) string { return "queue:recommendations:" + userID }

// Overflow is a write-through queue over the cache store.
type Overflow struct {
	store cachestore.Store
	ttl   time.Duration
	log   *logging.Logger
}

func New(store cachestore.Store, ttl time.Duration, log *logging.Logger) *Overflow {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Overflow{store: store, ttl: ttl, log: log}
}

// Enqueue appends candidates whose job id is not already queued, in order,
// and restarts the retention window. It returns how many were added.
func (q *Overflow) Enqueue(ctx context.Context, userID string, items []model.RankedCandidate) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	k := key(userID)

	queued, err := q.read(ctx, k)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(queued)+len(items))
	for _, c := range queued {
		seen[c.Job.ID] = struct{}{}
	}

	var push []string
	for _, c := range items {
		if c.Job.ID == "" {
			continue
		}
		if _, dup := seen[c.Job.ID]; dup {
			continue
		}
		seen[c.Job.ID] = struct{}{}
		b, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("encode candidate %s: %w", c.Job.ID, err)
		}
		push = append(push, string(b))
	}
	if len(push) == 0 {
		return 0, nil
	}

	if err := q.store.RPush(ctx, k, push...); err != nil {
		return 0, fmt.Errorf("enqueue for %s: %w", userID, err)
	}
	if err := q.store.Expire(ctx, k, q.ttl); err != nil {
		return 0, fmt.Errorf("expire queue for %s: %w", userID, err)
	}
	return len(push), nil
}

// Peek returns the queued candidates without consuming them.
func (q *Overflow) Peek(ctx context.Context, userID string) ([]model.RankedCandidate, error) {
	return q.read(ctx, key(userID))
}

func (q *Overflow) read(ctx context.Context, k string) ([]model.RankedCandidate, error) {
	raw, err := q.store.LRange(ctx, k, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", k, err)
	}
	out := make([]model.RankedCandidate, 0, len(raw))
	for _, s := range raw {
		var c model.RankedCandidate
		if err := json.Unmarshal([]byte(s), &c); err != nil {
			q.log.Warn("skipping malformed queue entry", "key", k, "error", err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
