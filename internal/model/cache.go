package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Hash field names of a cached job.
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldCompany         = "company"
	FieldDescription     = "description"
	FieldRequirements    = "requirements"
	FieldCity            = "city"
	FieldState           = "state"
	FieldCountry         = "country"
	FieldRemote          = "remote"
	FieldLocation        = "location"
	FieldEmploymentType  = "employment_type"
	FieldSkills          = "skills"
	FieldSalaryMin       = "salary_min"
	FieldSalaryMax       = "salary_max"
	FieldSalaryCurrency  = "salary_currency"
	FieldSalaryPublic    = "salary_public"
	FieldCategory        = "category"
	FieldExperienceLevel = "experience_level"
	FieldTrusted         = "is_trusted_company"
	FieldRemoteWork      = "remote_work"
	FieldURL             = "url"
	FieldPostedAt        = "posted_at"
	FieldJobExpiresAt    = "job_expires_at"
	FieldOrigin          = "origin"
)

// ToCacheFields flattens a job into string hash fields. Lists are JSON
// encoded; timestamps are RFC3339Nano UTC.
func ToCacheFields(j JobRecord) map[string]string {
	f := map[string]string{
		FieldID:              j.ID,
		FieldTitle:           j.Title,
		FieldCompany:         j.Company,
		FieldDescription:     j.Description,
		FieldRequirements:    encodeList(j.Requirements),
		FieldCity:            j.Location.City,
		FieldState:           j.Location.State,
		FieldCountry:         j.Location.Country,
		FieldRemote:          strconv.FormatBool(j.Location.Remote),
		FieldLocation:        j.Location.String(),
		FieldEmploymentType:  string(j.EmploymentType),
		FieldSkills:          encodeList(j.Skills),
		FieldSalaryMin:       strconv.Itoa(j.Salary.Min),
		FieldSalaryMax:       strconv.Itoa(j.Salary.Max),
		FieldSalaryCurrency:  j.Salary.Currency,
		FieldSalaryPublic:    strconv.FormatBool(j.Salary.Public),
		FieldCategory:        j.Category,
		FieldExperienceLevel: j.ExperienceLevel,
		FieldTrusted:         strconv.FormatBool(j.Trusted),
		FieldRemoteWork:      j.RemoteWork,
		FieldURL:             j.URL,
		FieldPostedAt:        FormatTime(j.PostedAt),
		FieldJobExpiresAt:    FormatTime(j.ExpiresAt),
		FieldOrigin:          string(j.Source),
	}
	return f
}

// FromCache rebuilds a job from hash fields and tags it as cached. Missing
// optional fields take zero values; broken list or number fields make the
// record malformed.
func FromCache(f map[string]string) (JobRecord, error) {
	id := f[FieldID]

	reqs, err := decodeList(f[FieldRequirements])
	if err != nil {
		return JobRecord{}, fmt.Errorf("%w: %s: requirements: %v", ErrMalformedRecord, id, err)
	}
	skills, err := decodeList(f[FieldSkills])
	if err != nil {
		return JobRecord{}, fmt.Errorf("%w: %s: skills: %v", ErrMalformedRecord, id, err)
	}
	salMin, err := atoiOrZero(f[FieldSalaryMin])
	if err != nil {
		return JobRecord{}, fmt.Errorf("%w: %s: salary_min: %v", ErrMalformedRecord, id, err)
	}
	salMax, err := atoiOrZero(f[FieldSalaryMax])
	if err != nil {
		return JobRecord{}, fmt.Errorf("%w: %s: salary_max: %v", ErrMalformedRecord, id, err)
	}

	job := JobRecord{
		ID:           id,
		Title:        f[FieldTitle],
		Company:      f[FieldCompany],
		Description:  f[FieldDescription],
		Requirements: reqs,
		Location: Location{
			City:    f[FieldCity],
			State:   f[FieldState],
			Country: f[FieldCountry],
			Remote:  f[FieldRemote] == "true",
		},
		EmploymentType: NormalizeEmploymentType(f[FieldEmploymentType]),
		Skills:         skills,
		Salary: SalaryRange{
			Min:      salMin,
			Max:      salMax,
			Currency: f[FieldSalaryCurrency],
			Public:   f[FieldSalaryPublic] == "true",
		},
		Category:        f[FieldCategory],
		ExperienceLevel: f[FieldExperienceLevel],
		Trusted:         f[FieldTrusted] == "true",
		RemoteWork:      f[FieldRemoteWork],
		URL:             f[FieldURL],
		PostedAt:        ParseTime(f[FieldPostedAt]),
		ExpiresAt:       ParseTime(f[FieldJobExpiresAt]),
	}
	job = job.WithSource(SourceCached)

	if err := job.Validate(); err != nil {
		return JobRecord{}, err
	}
	return job, nil
}

// FormatTime renders t as RFC3339Nano UTC, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func encodeList(l []string) string {
	if len(l) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(l)
	return string(b)
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var l []string
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, nil
	}
	return l, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
