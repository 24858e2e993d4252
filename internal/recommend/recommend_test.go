package recommend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/recommendation-service/internal/durable"
	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/ranking"
	"jobmate/recommendation-service/internal/retrieval"
)

type fakeProfiles struct {
	profile model.UserProfile
	err     error
}

func (f fakeProfiles) GetProfile(_ context.Context, userID string) (model.UserProfile, error) {
	if f.err != nil {
		return model.UserProfile{}, f.err
	}
	p := f.profile
	p.ID = userID
	return p, nil
}

type fakeHistory struct {
	actions map[string][]model.Action
	err     error
	gotIDs  []string
}

func (f *fakeHistory) GetInteractions(_ context.Context, _ string, ids []string) (map[string][]model.Action, error) {
	f.gotIDs = ids
	return f.actions, f.err
}

type fakeRetriever struct {
	jobs []model.JobRecord
	got  retrieval.Request
}

func (f *fakeRetriever) FetchCandidates(_ context.Context, req retrieval.Request) (retrieval.Result, error) {
	f.got = req
	return retrieval.Result{
		Jobs:        f.jobs[:min(req.Limit, len(f.jobs))],
		Diagnostics: retrieval.Diagnostics{Tiers: []retrieval.TierReport{{Tier: retrieval.TierCached, Jobs: len(f.jobs)}}},
	}, nil
}

type fakeQueue struct {
	items []model.RankedCandidate
	err   error
}

func (f *fakeQueue) Enqueue(ctx context.Context, _ string, items []model.RankedCandidate) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	f.items = append(f.items, items...)
	return len(items), nil
}

func jobs(n int) []model.JobRecord {
	out := make([]model.JobRecord, n)
	for i := range out {
		out[i] = model.JobRecord{
			ID:     fmt.Sprintf("j%d", i+1),
			Title:  "Engineer",
			Skills: []string{"go"},
		}.WithSource(model.SourceCached)
	}
	return out
}

func newService(h *fakeHistory, r *fakeRetriever, q *fakeQueue) *Service {
	return NewService(
		fakeProfiles{profile: model.UserProfile{Skills: []string{"go"}}},
		h, r,
		ranking.NewEngine(ranking.DefaultWeights(), nil, nil, nil),
		q, nil,
	)
}

func TestRecommendPagesAndQueues(t *testing.T) {
	h := &fakeHistory{actions: map[string][]model.Action{"j5": {model.ActionSuperLike}}}
	r := &fakeRetriever{jobs: jobs(8)}
	q := &fakeQueue{}

	resp, err := newService(h, r, q).Recommend(context.Background(), "u1", Options{
		Limit: 8, PageSize: 3, Keywords: "go", Location: "Austin",
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, 8, resp.Total)
	require.Len(t, resp.Jobs, 3)
	assert.Equal(t, "j5", resp.Jobs[0].Job.ID)
	assert.Equal(t, 5, resp.Queued)
	assert.Len(t, q.items, 5)
	assert.Len(t, h.gotIDs, 8)
	assert.Equal(t, "Austin", r.got.Location)
	assert.Equal(t, "go", r.got.Keywords)
	assert.Equal(t, []string{retrieval.TierCached}, resp.Diagnostics.Contributed())
}

func TestRecommendUserNotFound(t *testing.T) {
	s := NewService(
		fakeProfiles{err: fmt.Errorf("query: %w", durable.ErrNotFound)},
		&fakeHistory{}, &fakeRetriever{}, ranking.NewEngine(ranking.DefaultWeights(), nil, nil, nil), nil, nil,
	)
	_, err := s.Recommend(context.Background(), "ghost", Options{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecommendProfileError(t *testing.T) {
	s := NewService(
		fakeProfiles{err: errors.New("db down")},
		&fakeHistory{}, &fakeRetriever{}, ranking.NewEngine(ranking.DefaultWeights(), nil, nil, nil), nil, nil,
	)
	_, err := s.Recommend(context.Background(), "u1", Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestRecommendHistoryFailureDegrades(t *testing.T) {
	h := &fakeHistory{err: errors.New("timeout")}
	resp, err := newService(h, &fakeRetriever{jobs: jobs(3)}, &fakeQueue{}).
		Recommend(context.Background(), "u1", Options{Limit: 3, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, resp.Jobs, 3)
	assert.Equal(t, "j1", resp.Jobs[0].Job.ID)
	assert.Zero(t, resp.Queued)
}

func TestRecommendQueueFailureDegrades(t *testing.T) {
	resp, err := newService(&fakeHistory{}, &fakeRetriever{jobs: jobs(4)}, &fakeQueue{err: errors.New("redis down")}).
		Recommend(context.Background(), "u1", Options{Limit: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Jobs, 2)
	assert.Zero(t, resp.Queued)
}

func TestRecommendEmpty(t *testing.T) {
	resp, err := newService(&fakeHistory{}, &fakeRetriever{}, &fakeQueue{}).
		Recommend(context.Background(), "u1", Options{})
	require.NoError(t, err)
	assert.Empty(t, resp.Jobs)
	assert.Zero(t, resp.Total)
}

func TestOptionsNormalized(t *testing.T) {
	o := Options{}.normalized()
	assert.Equal(t, DefaultLimit, o.Limit)
	assert.Equal(t, DefaultPageSize, o.PageSize)

	o = Options{Limit: 1000, PageSize: 500}.normalized()
	assert.Equal(t, MaxLimit, o.Limit)
	assert.Equal(t, MaxLimit, o.PageSize)

	o = Options{Limit: 5}.normalized()
	assert.Equal(t, 5, o.PageSize)
}

func TestRecommendQueuesAfterDeadline(t *testing.T) {
	q := &fakeQueue{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := newService(&fakeHistory{}, &fakeRetriever{jobs: jobs(5)}, q).Recommend(ctx, "u1", Options{Limit: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Jobs, 2)
	assert.Equal(t, 3, resp.Queued)
	assert.Len(t, q.items, 3)
}
