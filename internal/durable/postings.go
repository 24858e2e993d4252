package durable

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobmate/recommendation-service/internal/logging"
	"jobmate/recommendation-service/internal/model"
)

// PostingStore serves active employer postings.
type PostingStore struct {
	db  DB
	log *logging.Logger
}

func NewPostingStore(db DB, log *logging.Logger) *PostingStore {
	if log == nil {
		log = logging.NewNop()
	}
	return &PostingStore{db: db, log: log}
}

const activePostingsSQL = `
SELECT p.id, p.title, COALESCE(p.company_name, ''), COALESCE(p.description, ''),
       COALESCE(p.requirements, '{}'), COALESCE(p.employment_type, ''),
       COALESCE(p.salary_min, 0), COALESCE(p.salary_max, 0),
       COALESCE(p.salary_currency, 'USD'), COALESCE(p.salary_public, true),
       COALESCE(p.city, ''), COALESCE(p.state, ''), COALESCE(p.country, ''),
       COALESCE(p.remote, false), COALESCE(p.skills_required, '{}'),
       p.posted_at, p.expires_at
FROM job_postings p
WHERE p.is_active = true
  AND (p.expires_at IS NULL OR p.expires_at > now())
  AND ($1 = '' OR p.employment_type = $1)
ORDER BY p.posted_at DESC
LIMIT $2`

// QueryActivePostings returns up to limit active, unexpired postings
// matching the employment-type filter, newest first. Rows that fail
// validation are skipped.
func (s *PostingStore) QueryActivePostings(ctx context.Context, filters model.Filters, limit int) ([]model.JobRecord, error) {
	empType := ""
	if strings.TrimSpace(filters.JobType) != "" {
		empType = string(model.NormalizeEmploymentType(filters.JobType))
	}

	rows, err := s.db.Query(ctx, activePostingsSQL, empType, limit)
	if err != nil {
		return nil, fmt.Errorf("query job_postings: %w", err)
	}
	defer rows.Close()

	var jobs []model.JobRecord
	for rows.Next() {
		var (
			j                 model.JobRecord
			empTypeRaw        string
			postedAt, expires *time.Time
		)
		if err := rows.Scan(
			&j.ID, &j.Title, &j.Company, &j.Description,
			&j.Requirements, &empTypeRaw,
			&j.Salary.Min, &j.Salary.Max,
			&j.Salary.Currency, &j.Salary.Public,
			&j.Location.City, &j.Location.State, &j.Location.Country,
			&j.Location.Remote, &j.Skills,
			&postedAt, &expires,
		); err != nil {
			return nil, fmt.Errorf("scan job_postings: %w", err)
		}

		j.EmploymentType = model.NormalizeEmploymentType(empTypeRaw)
		if postedAt != nil {
			j.PostedAt = postedAt.UTC()
		}
		if expires != nil {
			j.ExpiresAt = expires.UTC()
		}
		// employer-submitted postings are vetted at creation
		j.Trusted = true
		j.RemoteWork = remoteWork(j.Location.Remote)
		j = j.WithSource(model.SourceDurable)

		if err := j.Validate(); err != nil {
			s.log.Warn("skipping malformed posting", "job_id", j.ID, "error", err)
			continue
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job_postings: %w", err)
	}
	return jobs, nil
}

func remoteWork(remote bool) string {
	if remote {
		return "Yes"
	}
	return "No"
}
