package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/recommendation-service/internal/cachestore"
	"jobmate/recommendation-service/internal/model"
)

func ranked(id string, score float64) model.RankedCandidate {
	return model.RankedCandidate{
		Job:   model.JobRecord{ID: id, Title: "Engineer " + id}.WithSource(model.SourceCached),
		Score: score,
	}
}

func TestEnqueueDedupes(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemoryStore(nil)
	q := New(store, 0, nil)

	n, err := q.Enqueue(ctx, "u1", []model.RankedCandidate{ranked("a", 0.9), ranked("b", 0.8), ranked("a", 0.1)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = q.Enqueue(ctx, "u1", []model.RankedCandidate{ranked("b", 0.5), ranked("c", 0.4), ranked("", 0.3)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Peek(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Job.ID)
	assert.Equal(t, 0.9, got[0].Score)
	assert.Equal(t, "c", got[2].Job.ID)
	assert.Equal(t, model.SourceCached, got[2].Job.Source)

	ttl, err := store.TTL(ctx, "queue:recommendations:u1")
	require.NoError(t, err)
	assert.InDelta(t, DefaultTTL.Seconds(), ttl.Seconds(), 5)

	other, err := q.Peek(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEnqueueNothing(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemoryStore(nil)
	q := New(store, time.Hour, nil)

	n, err := q.Enqueue(ctx, "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	keys, err := store.Keys(ctx, "queue:*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestQueueExpires(t *testing.T) {
	ctx := context.Background()
	clock := cachestore.NewManualClock(time.Now())
	q := New(cachestore.NewMemoryStore(clock.Now), time.Hour, nil)

	_, err := q.Enqueue(ctx, "u1", []model.RankedCandidate{ranked("a", 1)})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	got, err := q.Peek(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPeekSkipsMalformed(t *testing.T) {
	ctx := context.Background()
	store := cachestore.NewMemoryStore(nil)
	require.NoError(t, store.RPush(ctx, "queue:recommendations:u1", "{not json"))
	q := New(store, 0, nil)

	_, err := q.Enqueue(ctx, "u1", []model.RankedCandidate{ranked("a", 1)})
	require.NoError(t, err)

	got, err := q.Peek(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Job.ID)
}
