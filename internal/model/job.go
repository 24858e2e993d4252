// Package model defines the data structures shared by every retrieval tier
// and the ranking stage.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedRecord is returned when a record from any tier cannot be turned
// into a valid JobRecord. Callers skip the record and continue.
var ErrMalformedRecord = errors.New("malformed job record")

// Source tags where a JobRecord came from.
type Source string

const (
	SourceDurable Source = "durable"
	SourceCached  Source = "cached"
	SourceFresh   Source = "fresh"
)

// Source priorities. Assigned by the orchestrator, never by the source itself.
const (
	PriorityDurable = 1.0
	PriorityCached  = 0.7
	PriorityFresh   = 0.5
)

// Priority returns the trust weight of the tier.
func (s Source) Priority() float64 {
	switch s {
	case SourceDurable:
		return PriorityDurable
	case SourceCached:
		return PriorityCached
	case SourceFresh:
		return PriorityFresh
	}
	return 0
}

// EmploymentType mirrors the employment_type enum of the postings table.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// Location is the structured form of a posting's place of work.
type Location struct {
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	Remote  bool   `json:"remote"`
}

// String joins the non-empty parts as "city, state, country".
func (l Location) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.State, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	s := strings.Join(parts, ", ")
	if s == "" && l.Remote {
		return "Remote"
	}
	return s
}

// SalaryRange is a normalised compensation band.
type SalaryRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
	Public   bool   `json:"isPublic"`
}

// JobRecord is the canonical representation of one posting.
type JobRecord struct {
	ID              string         `json:"id" validate:"required"`
	Title           string         `json:"title" validate:"required"`
	Company         string         `json:"company,omitempty"`
	Description     string         `json:"description,omitempty"`
	Requirements    []string       `json:"requirements,omitempty"`
	Location        Location       `json:"location"`
	EmploymentType  EmploymentType `json:"employmentType" validate:"omitempty,oneof=full_time part_time contract internship"`
	Skills          []string       `json:"skills,omitempty"`
	Salary          SalaryRange    `json:"salary"`
	Category        string         `json:"category,omitempty"`
	ExperienceLevel string         `json:"experienceLevel,omitempty"`
	Trusted         bool           `json:"isTrustedCompany"`
	RemoteWork      string         `json:"remoteWork,omitempty"`
	URL             string         `json:"url,omitempty"`
	PostedAt        time.Time      `json:"postedAt"`
	ExpiresAt       time.Time      `json:"expiresAt"`
	Source          Source         `json:"source" validate:"omitempty,oneof=durable cached fresh"`
	Priority        float64        `json:"priority" validate:"min=0,max=1"`
}

var validate = validator.New()

// Validate reports ErrMalformedRecord when required fields are missing or the
// priority falls outside [0,1].
func (j *JobRecord) Validate() error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedRecord, j.ID, err)
	}
	return nil
}

// WithSource returns a copy tagged with the tier and its priority.
func (j JobRecord) WithSource(s Source) JobRecord {
	j.Source = s
	j.Priority = s.Priority()
	return j
}

// RankedCandidate pairs a job with its per-request score.
type RankedCandidate struct {
	Job   JobRecord `json:"job"`
	Score float64   `json:"matchScore"`
}

// Filters are the light filters shared by every tier.
type Filters struct {
	JobType     string `json:"jobType,omitempty"`
	Category    string `json:"category,omitempty"`
	TrustedOnly bool   `json:"trustedOnly"`
}
