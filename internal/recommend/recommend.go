// Package recommend answers "what should this user see next": it retrieves
// candidates, ranks them against the user's profile and history, returns the
// first page and queues the rest.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"jobmate/recommendation-service/internal/durable"
	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/model"
	"jobmate/recommendation-service/internal/retrieval"
)

var ErrUserNotFound = errors.New("recommend: user not found")

const (
	DefaultLimit    = 50
	DefaultPageSize = 20
	MaxLimit        = 200
)

type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (model.UserProfile, error)
}

type HistorySource interface {
	GetInteractions(ctx context.Context, userID string, jobIDs []string) (map[string][]model.Action, error)
}

type Retriever interface {
	FetchCandidates(ctx context.Context, req retrieval.Request) (retrieval.Result, error)
}

type Ranker interface {
	Rank(ctx context.Context, user model.UserProfile, candidates []model.JobRecord, history map[string][]model.Action) []model.RankedCandidate
}

type Queue interface {
	Enqueue(ctx context.Context, userID string, items []model.RankedCandidate) (int, error)
}

// Options shape one request. Limit is how many candidates are ranked,
// PageSize how many are returned; the remainder goes to the overflow queue.
type Options struct {
	Limit        int
	PageSize     int
	Keywords     string
	Location     string
	Filters      model.Filters
	ForceRefresh bool
}

func (o Options) normalized() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	o.Limit = min(o.Limit, MaxLimit)
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	o.PageSize = min(o.PageSize, o.Limit)
	return o
}

type Response struct {
	UserID      string                  `json:"userId"`
	Jobs        []model.RankedCandidate `json:"jobs"`
	Total       int                     `json:"total"`
	Queued      int                     `json:"queued"`
	Diagnostics retrieval.Diagnostics   `json:"diagnostics"`
}

type Service struct {
	profiles  ProfileSource
	history   HistorySource
	retriever Retriever
	ranker    Ranker
	queue     Queue
	log       *logging.Logger
}

func NewService(p ProfileSource, h HistorySource, r Retriever, rk Ranker, q Queue, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{profiles: p, history: h, retriever: r, ranker: rk, queue: q, log: log}
}

// Recommend ranks candidates for userID. A missing user is ErrUserNotFound;
// history and queue failures only degrade the response.
func (s *Service) Recommend(ctx context.Context, userID string, opts Options) (Response, error) {
	opts = opts.normalized()

	user, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, durable.ErrNotFound) {
		return Response{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return Response{}, fmt.Errorf("load profile %s: %w", userID, err)
	}

	res, err := s.retriever.FetchCandidates(ctx, retrieval.Request{
		Limit:        opts.Limit,
		Keywords:     opts.Keywords,
		Location:     opts.Location,
		Filters:      opts.Filters,
		ForceRefresh: opts.ForceRefresh,
	})
	if err != nil {
		return Response{}, err
	}

	ids := make([]string, len(res.Jobs))
	for i, j := range res.Jobs {
		ids[i] = j.ID
	}
	history, err := s.history.GetInteractions(ctx, userID, ids)
	if err != nil {
		s.log.Warn("history unavailable, ranking without it", "user_id", userID, "error", err)
		history = nil
	}

	ranked := s.ranker.Rank(ctx, user, res.Jobs, history)
	page := ranked[:min(opts.PageSize, len(ranked))]
	rest := ranked[len(page):]

	queued := 0
	if len(rest) > 0 && s.queue != nil {
		// the overflow outlives the request deadline, like the cache write-back
		queued, err = s.queue.Enqueue(context.WithoutCancel(ctx), userID, rest)
		if err != nil {
			s.log.Warn("overflow enqueue failed", "user_id", userID, "items", len(rest), "error", err)
		}
	}

	s.log.Info("recommendations served",
		"user_id", userID, "candidates", len(ranked), "page", len(page), "queued", queued,
		"tiers", res.Diagnostics.Contributed())
	return Response{
		UserID:      userID,
		Jobs:        page,
		Total:       len(ranked),
		Queued:      queued,
		Diagnostics: res.Diagnostics,
	}, nil
}
