package model

import "time"

// RawListing is one listing as extracted by the network fetcher, before
// normalization.
type RawListing struct {
	ID              string   `json:"jobId,omitempty"`
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location"`
	Description     string   `json:"description,omitempty"`
	Requirements    []string `json:"requirements,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Salary          string   `json:"salary,omitempty"`
	PostedDate      string   `json:"postedDate,omitempty"`
	URL             string   `json:"jobUrl,omitempty"`
	JobType         string   `json:"jobType,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	EmploymentType  string   `json:"employmentType,omitempty"`
	Category        string   `json:"category,omitempty"`
	Trusted         bool     `json:"isTrustedCompany"`
}

// FromRaw converts fetcher output into a JobRecord tagged as fresh.
// A missing ID is derived with StableID.
func FromRaw(raw RawListing) (JobRecord, error) {
	id := raw.ID
	if id == "" {
		id = StableID(raw.Title, raw.Company, raw.Location)
	}

	empType := raw.EmploymentType
	if empType == "" {
		empType = raw.JobType
	}

	job := JobRecord{
		ID:              id,
		Title:           raw.Title,
		Company:         raw.Company,
		Description:     raw.Description,
		Requirements:    raw.Requirements,
		Location:        ParseLocation(raw.Location),
		EmploymentType:  NormalizeEmploymentType(empType),
		Skills:          raw.Skills,
		Salary:          ParseSalary(raw.Salary),
		Category:        raw.Category,
		ExperienceLevel: raw.ExperienceLevel,
		Trusted:         raw.Trusted,
		RemoteWork:      DetectRemote(raw.Location, raw.Description, raw.Title),
		URL:             raw.URL,
		PostedAt:        ParseTime(raw.PostedDate),
	}
	job = job.WithSource(SourceFresh)

	if err := job.Validate(); err != nil {
		return JobRecord{}, err
	}
	return job, nil
}

// IsExpired reports whether a posting-level expiry has passed. A zero expiry
// never expires.
func (j JobRecord) IsExpired(now time.Time) bool {
	return !j.ExpiresAt.IsZero() && now.After(j.ExpiresAt)
}
