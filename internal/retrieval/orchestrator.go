// Package retrieval gathers candidate jobs from the durable store, the
// listing cache and the live fetcher, in that order, until the request is
// satisfied.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/metrics"
	"jobmate/recommendation-service/internal/model"
)

var (
	// ErrSourceUnavailable marks a tier whose backing service failed. It is
	// reported in diagnostics and never returned from FetchCandidates.
	ErrSourceUnavailable = errors.New("retrieval: source unavailable")

	ErrInvalidRequest = errors.New("retrieval: invalid request")

	errSkipped = errors.New("retrieval: tier skipped")
)

// Request describes one candidate search.
type Request struct {
	Limit        int
	Keywords     string
	Location     string
	Filters      model.Filters
	ForceRefresh bool
}

// TierReport is one tier's contribution to a result.
type TierReport struct {
	Tier    string `json:"tier"`
	Jobs    int    `json:"jobs"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

type Diagnostics struct {
	Tiers    []TierReport  `json:"tiers"`
	Duration time.Duration `json:"duration"`
}

// Contributed lists the tiers that returned at least one job.
func (d Diagnostics) Contributed() []string {
	var out []string
	for _, t := range d.Tiers {
		if t.Jobs > 0 {
			out = append(out, t.Tier)
		}
	}
	return out
}

type Result struct {
	Jobs        []model.JobRecord `json:"jobs"`
	Diagnostics Diagnostics       `json:"diagnostics"`
}

// Tier is one retrieval strategy. Fetch sees the jobs gathered so far and
// returns only what it adds.
type Tier interface {
	Name() string
	Fetch(ctx context.Context, st *State) ([]model.JobRecord, error)
}

// State is the running view of a request shared across tiers.
type State struct {
	Request Request
	jobs    []model.JobRecord
	seen    map[string]struct{}
}

func newState(req Request) *State {
	return &State{Request: req, seen: make(map[string]struct{})}
}

// Count is the number of distinct jobs gathered so far.
func (s *State) Count() int { return len(s.seen) }

// Shortfall is how many more jobs the request needs.
func (s *State) Shortfall() int { return max(s.Request.Limit-s.Count(), 0) }

// Seen reports whether id was already contributed by an earlier tier.
func (s *State) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *State) add(jobs []model.JobRecord) {
	for _, j := range jobs {
		s.jobs = append(s.jobs, j)
		s.seen[j.ID] = struct{}{}
	}
}

// Orchestrator runs tiers in order until the request is satisfied.
type Orchestrator struct {
	tiers   []Tier
	log     *logging.Logger
	metrics *metrics.Collector
}

func NewOrchestrator(tiers []Tier, log *logging.Logger, m *metrics.Collector) *Orchestrator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Orchestrator{tiers: tiers, log: log, metrics: m}
}

// FetchCandidates returns up to req.Limit distinct jobs sorted by source
// priority. Tier failures are logged and reported in Diagnostics; the only
// error is an invalid request.
func (o *Orchestrator) FetchCandidates(ctx context.Context, req Request) (Result, error) {
	if req.Limit <= 0 {
		return Result{}, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidRequest, req.Limit)
	}

	start := time.Now()
	st := newState(req)
	var diag Diagnostics

	for i, tier := range o.tiers {
		if err := ctx.Err(); err != nil {
			o.log.Warn("deadline reached, returning partial candidates",
				"skipped_from", tier.Name(), "have", st.Count(), "error", err)
			for _, rest := range o.tiers[i:] {
				diag.Tiers = append(diag.Tiers, TierReport{Tier: rest.Name(), Skipped: true, Error: err.Error()})
			}
			break
		}
		if i > 0 && st.Shortfall() == 0 {
			diag.Tiers = append(diag.Tiers, TierReport{Tier: tier.Name(), Skipped: true})
			continue
		}

		report := o.runTier(ctx, tier, st)
		diag.Tiers = append(diag.Tiers, report)
	}

	jobs := Merge(req.Limit, st.jobs)
	diag.Duration = time.Since(start)
	o.metrics.ObserveRetrieval(diag.Duration)
	o.log.Debug("candidates gathered", "limit", req.Limit, "jobs", len(jobs), "tiers", diag.Contributed())
	return Result{Jobs: jobs, Diagnostics: diag}, nil
}

func (o *Orchestrator) runTier(ctx context.Context, tier Tier, st *State) TierReport {
	report := TierReport{Tier: tier.Name()}

	jobs, err := tier.Fetch(ctx, st)
	switch {
	case errors.Is(err, errSkipped):
		report.Skipped = true
		return report
	case err != nil:
		err = fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, tier.Name(), err)
		report.Error = err.Error()
		o.log.Warn("tier failed", "tier", tier.Name(), "partial", len(jobs), "error", err)
	}

	st.add(jobs)
	report.Jobs = len(jobs)
	o.metrics.RecordTier(tier.Name(), len(jobs), err != nil)
	return report
}

// Merge drops duplicate ids, keeping the highest-priority occurrence (the
// first on ties), sorts by priority descending with input order as
// tie-break, and truncates to limit.
func Merge(limit int, jobs []model.JobRecord) []model.JobRecord {
	pos := make(map[string]int, len(jobs))
	out := make([]model.JobRecord, 0, len(jobs))
	for _, j := range jobs {
		if i, ok := pos[j.ID]; ok {
			if j.Priority > out[i].Priority {
				out[i] = j
			}
			continue
		}
		pos[j.ID] = len(out)
		out = append(out, j)
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Priority > out[b].Priority })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
