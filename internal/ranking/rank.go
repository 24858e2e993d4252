// Package ranking scores candidate jobs for one user from content
// similarity, skill overlap, interaction history and source priority.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/metrics"
	"jobmate/recommendation-service/internal/model"
)

// Weights combine the signals as
// Content*content + Skill*skill + History*history + Priority*priority.
type Weights struct {
	Content  float64
	Skill    float64
	History  float64
	Priority float64
}

func DefaultWeights() Weights {
	return Weights{Content: 0.4, Skill: 0.3, History: 0.3, Priority: 0.2}
}

// resumeSections are the parsed resume fields folded into the profile text.
var resumeSections = []string{
	"summary", "objective", "skills", "experience", "projects",
	"education", "certifications", "technologies",
}

type Engine struct {
	weights  Weights
	embedder Embedder
	log      *logging.Logger
	metrics  *metrics.Collector
}

func NewEngine(w Weights, emb Embedder, log *logging.Logger, m *metrics.Collector) *Engine {
	if emb == nil {
		emb = NewHashEmbedder(DefaultDimensions)
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{weights: w, embedder: emb, log: log, metrics: m}
}

// Rank scores candidates and sorts them by score descending. Equal scores
// keep candidate order. An embedding failure zeroes content similarity for
// every candidate instead of failing.
func (e *Engine) Rank(ctx context.Context, user model.UserProfile, candidates []model.JobRecord, history map[string][]model.Action) []model.RankedCandidate {
	if len(candidates) == 0 {
		return []model.RankedCandidate{}
	}
	start := time.Now()
	defer func() { e.metrics.ObserveRank(time.Since(start)) }()

	content, err := e.contentScores(ctx, user, candidates)
	if err != nil {
		e.log.Warn("embedding failed, ranking without content similarity",
			"user_id", user.ID, "candidates", len(candidates), "error", err)
		content = make([]float64, len(candidates))
	}

	out := make([]model.RankedCandidate, len(candidates))
	for i, job := range candidates {
		out[i] = model.RankedCandidate{
			Job: job,
			Score: e.score(
				content[i],
				SkillOverlap(user.Skills, job.Skills),
				HistoryAffinity(history[job.ID]),
				job.Priority,
			),
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

func (e *Engine) score(content, skill, history, priority float64) float64 {
	w := e.weights
	return w.Content*content + w.Skill*skill + w.History*history + w.Priority*priority
}

func (e *Engine) contentScores(ctx context.Context, user model.UserProfile, jobs []model.JobRecord) ([]float64, error) {
	userVec, err := e.embedder.Embed(ctx, ProfileText(user))
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}

	texts := make([]string, len(jobs))
	for i, j := range jobs {
		texts[i] = JobText(j)
	}
	jobVecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed jobs: %w", err)
	}
	if len(jobVecs) != len(jobs) {
		return nil, fmt.Errorf("embed jobs: got %d vectors for %d jobs", len(jobVecs), len(jobs))
	}

	out := make([]float64, len(jobs))
	for i, v := range jobVecs {
		out[i] = Cosine(userVec, v)
	}
	return out, nil
}

// ─── Signals ────────────────────────────────────────────────────────────────

// SkillOverlap is exact/n + 0.5*(partial-exact)/n over the n job skills,
// clamped to [0,1] and rounded to three places. A user skill counts as a
// partial match when it contains, or is contained in, any job skill.
func SkillOverlap(userSkills, jobSkills []string) float64 {
	us := lowerAll(userSkills)
	js := lowerAll(jobSkills)
	if len(us) == 0 || len(js) == 0 {
		return 0
	}

	jobSet := make(map[string]struct{}, len(js))
	for _, s := range js {
		jobSet[s] = struct{}{}
	}
	exactSet := make(map[string]struct{})
	for _, s := range us {
		if _, ok := jobSet[s]; ok {
			exactSet[s] = struct{}{}
		}
	}

	partial := 0
	for _, u := range us {
		for _, j := range js {
			if strings.Contains(j, u) || strings.Contains(u, j) {
				partial++
				break
			}
		}
	}

	n := float64(len(js))
	exact := float64(len(exactSet))
	s := exact/n + 0.5*(float64(partial)-exact)/n
	s = math.Max(0, math.Min(1, s))
	return math.Round(s*1000) / 1000
}

// HistoryAffinity is the signed sum of the action weights.
func HistoryAffinity(actions []model.Action) float64 {
	var sum float64
	for _, a := range actions {
		sum += a.Weight()
	}
	return sum
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ─── Text ───────────────────────────────────────────────────────────────────

// ProfileText joins skills, past titles, location and resume sections.
func ProfileText(u model.UserProfile) string {
	parts := []string{
		strings.Join(u.Skills, " "),
		strings.Join(u.ExperienceTitles, " "),
		u.Location,
	}
	for _, key := range resumeSections {
		if s := flatten(u.Resume[key]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// JobText is title, required skills and city.
func JobText(j model.JobRecord) string {
	return strings.Join([]string{j.Title, strings.Join(j.Skills, " "), j.Location.City}, " ")
}

// flatten renders a decoded JSON resume value as plain text. Object keys are
// sorted so the text is deterministic.
func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, x := range t {
			if s := flatten(x); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := flatten(t[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(t)
	}
}
