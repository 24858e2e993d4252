package scraper

import "strings"

// RedFlags are exclusion terms. A listing whose title, company or
// description contains any of them is dropped before it counts toward
// maxItems.
type RedFlags []string

// Match returns the first term found (case-insensitive) in the combined
// title + company + description text.
func (r RedFlags) Match(title, company, description string) (string, bool) {
	if len(r) == 0 {
		return "", false
	}
	combined := strings.ToLower(title + " " + company + " " + description)
	for _, flag := range r {
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return flag, true
		}
	}
	return "", false
}
