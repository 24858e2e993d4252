package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// jobNamespace scopes derived job ids so they never collide with ids minted
// by other services.
var jobNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("jobmate/recommendation-service/job"))

// StableID derives a deterministic id from the identifying fields of a
// listing. The same posting seen twice gets the same id.
func StableID(title, company, location string) string {
	key := strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.ToLower(strings.TrimSpace(company)) + "|" +
		strings.ToLower(strings.TrimSpace(location))
	return uuid.NewSHA1(jobNamespace, []byte(key)).String()
}

var employmentTypes = map[string]EmploymentType{
	"full-time":  EmploymentFullTime,
	"full time":  EmploymentFullTime,
	"fulltime":   EmploymentFullTime,
	"full_time":  EmploymentFullTime,
	"permanent":  EmploymentFullTime,
	"part-time":  EmploymentPartTime,
	"part time":  EmploymentPartTime,
	"part_time":  EmploymentPartTime,
	"contract":   EmploymentContract,
	"contractor": EmploymentContract,
	"freelance":  EmploymentContract,
	"temporary":  EmploymentContract,
	"temp":       EmploymentContract,
	"intern":     EmploymentInternship,
	"internship": EmploymentInternship,
	"graduate":   EmploymentInternship,
}

// NormalizeEmploymentType maps free-form employment text onto the enum.
// Unknown or empty input is treated as full time.
func NormalizeEmploymentType(s string) EmploymentType {
	if t, ok := employmentTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return EmploymentFullTime
}

var (
	salaryNumberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	salaryThousandRe = regexp.MustCompile(`(?i)\d\s*k\b`)
)

// ParseSalary turns text like "$120k - $150k" into a SalaryRange. Text
// without any number yields a non-public range.
func ParseSalary(s string) SalaryRange {
	if strings.TrimSpace(s) == "" {
		return SalaryRange{Currency: "USD"}
	}
	lower := strings.ToLower(s)

	currency := "USD"
	switch {
	case strings.Contains(lower, "lakh"), strings.Contains(lower, "lpa"),
		strings.Contains(s, "₹"), strings.Contains(lower, "inr"):
		currency = "INR"
	case strings.Contains(s, "€"), strings.Contains(lower, "eur"):
		currency = "EUR"
	case strings.Contains(s, "£"), strings.Contains(lower, "gbp"):
		currency = "GBP"
	}

	nums := salaryNumberRe.FindAllString(strings.ReplaceAll(s, ",", ""), -1)
	if len(nums) == 0 {
		return SalaryRange{Currency: currency}
	}

	mult := 1.0
	if salaryThousandRe.MatchString(s) {
		mult = 1000
	}
	parse := func(n string) int {
		f, _ := strconv.ParseFloat(n, 64)
		return int(f * mult)
	}

	lo := parse(nums[0])
	hi := lo
	if len(nums) >= 2 {
		hi = parse(nums[1])
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return SalaryRange{Min: lo, Max: hi, Currency: currency, Public: true}
}

// ParseLocation splits "city, state, country". A two-letter second part is
// read as a US state; any other second part is read as the country.
func ParseLocation(s string) Location {
	lower := strings.ToLower(s)
	loc := Location{
		Remote: strings.Contains(lower, "remote") || strings.Contains(lower, "hybrid"),
	}

	var parts []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if lp := strings.ToLower(p); lp == "remote" || lp == "hybrid" {
			continue
		}
		parts = append(parts, p)
	}

	switch len(parts) {
	case 0:
	case 1:
		loc.City = parts[0]
	case 2:
		loc.City = parts[0]
		if isStateCode(parts[1]) {
			loc.State = parts[1]
			loc.Country = "USA"
		} else {
			loc.Country = parts[1]
		}
	default:
		loc.City = parts[0]
		loc.State = parts[1]
		loc.Country = parts[len(parts)-1]
	}
	return loc
}

func isStateCode(s string) bool {
	return len(s) == 2 && strings.ToUpper(s) == s && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z'
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes seen across tiers. Unparseable input
// returns the zero time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// DetectRemote classifies the work arrangement as Yes, Hybrid or No.
func DetectRemote(location, description, title string) string {
	text := strings.ToLower(location + " " + description + " " + title)
	switch {
	case strings.Contains(text, "hybrid"):
		return "Hybrid"
	case strings.Contains(text, "remote"), strings.Contains(text, "work from home"), strings.Contains(text, "wfh"):
		return "Yes"
	}
	return "No"
}
