package listingcache

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobmate/recommendation-service/internal/model"
)

const infoSearchLimit = 10

// Info summarises cache contents for operators.
type Info struct {
	ActiveSearches     int          `json:"activeSearches"`
	CachedJobs         int          `json:"cachedJobs"`
	CacheDurationHours int          `json:"cacheDurationHours"`
	Searches           []QueryEntry `json:"searches"`
}

// Info reports counts and the first few live query entries, sorted by key.
func (m *Manager) Info(ctx context.Context) (Info, error) {
	active, err := m.store.SMembers(ctx, activeSearches)
	if err != nil {
		return Info{}, fmt.Errorf("list active searches: %w", err)
	}
	jobs, err := m.store.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return Info{}, fmt.Errorf("list job keys: %w", err)
	}

	sort.Strings(active)
	info := Info{
		ActiveSearches:     len(active),
		CachedJobs:         len(jobs),
		CacheDurationHours: int(m.ttl.Hours()),
		Searches:           []QueryEntry{},
	}
	for _, key := range active {
		if len(info.Searches) == infoSearchLimit {
			break
		}
		entry, ok, err := m.queryEntry(ctx, key)
		if err != nil {
			m.log.Warn("skipping unreadable query entry", "key", key, "error", err)
			continue
		}
		if ok {
			info.Searches = append(info.Searches, entry)
		}
	}
	return info, nil
}

// Stats is a breakdown of the live cached jobs.
type Stats struct {
	Total            int            `json:"total"`
	Trusted          int            `json:"trusted"`
	ByCompany        map[string]int `json:"byCompany"`
	ByLocation       map[string]int `json:"byLocation"`
	ByEmploymentType map[string]int `json:"byEmploymentType"`
	ByCategory       map[string]int `json:"byCategory"`
	ByExperience     map[string]int `json:"byExperience"`
	ByRemote         map[string]int `json:"byRemote"`
}

// Stats scans every live job hash.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	jobs, err := m.all(ctx)
	if err != nil {
		return Stats{}, err
	}

	s := Stats{
		Total:            len(jobs),
		ByCompany:        map[string]int{},
		ByLocation:       map[string]int{},
		ByEmploymentType: map[string]int{},
		ByCategory:       map[string]int{},
		ByExperience:     map[string]int{},
		ByRemote:         map[string]int{},
	}
	for _, j := range jobs {
		s.ByCompany[orUnknown(j.Company)]++
		s.ByLocation[orUnknown(j.Location.String())]++
		s.ByEmploymentType[orUnknown(string(j.EmploymentType))]++
		s.ByCategory[orUnknown(j.Category)]++
		s.ByExperience[orUnknown(j.ExperienceLevel)]++
		s.ByRemote[orUnknown(j.RemoteWork)]++
		if j.Trusted {
			s.Trusted++
		}
	}
	return s, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// Criteria filter a scan over cached jobs. Text fields are case-insensitive
// substring matches; empty fields match everything.
type Criteria struct {
	Title       string
	Company     string
	Location    string
	RemoteOnly  bool
	TrustedOnly bool
	Limit       int
}

// Search scans live cached jobs and returns up to Limit matches ordered by id.
func (m *Manager) Search(ctx context.Context, c Criteria) ([]model.JobRecord, error) {
	jobs, err := m.all(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.ToLower(c.Title)
	company := strings.ToLower(c.Company)
	location := strings.ToLower(c.Location)

	var out []model.JobRecord
	for _, j := range jobs {
		if title != "" && !strings.Contains(strings.ToLower(j.Title), title) {
			continue
		}
		if company != "" && !strings.Contains(strings.ToLower(j.Company), company) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(j.Location.String()), location) {
			continue
		}
		if c.RemoteOnly && !j.Location.Remote && j.RemoteWork != "Yes" {
			continue
		}
		if c.TrustedOnly && !j.Trusted {
			continue
		}
		out = append(out, j)
		if c.Limit > 0 && len(out) == c.Limit {
			break
		}
	}
	return out, nil
}

// all returns every live cached job, ordered by id.
func (m *Manager) all(ctx context.Context) ([]model.JobRecord, error) {
	keys, err := m.store.Keys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("list job keys: %w", err)
	}
	sort.Strings(keys)
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = idFromJobKey(k)
	}
	return m.GetMany(ctx, ids)
}
