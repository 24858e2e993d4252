package scraper

import (
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxRequirements = 8
	maxSkills       = 12
)

// card is the summary parsed from one search result.
type card struct {
	Title      string
	Company    string
	Location   string
	URL        string
	PostedDate string
	Metadata   string
}

// detail is what the per-listing page adds.
type detail struct {
	Description  string
	Requirements []string
	Skills       []string
	Salary       string
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

// parseCards reads the result cards of one search page.
func parseCards(r io.Reader) ([]card, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var cards []card
	doc.Find("div.base-card, div.job-search-card").Each(func(_ int, s *goquery.Selection) {
		c := card{
			Title:    text(s.Find("h3.base-search-card__title")),
			Location: text(s.Find("span.job-search-card__location")),
			Metadata: text(s.Find("div.base-search-card__metadata")),
		}
		link := s.Find("a.base-card__full-link").First()
		if c.Title == "" {
			c.Title = text(link)
		}
		c.URL, _ = link.Attr("href")

		sub := s.Find("h4.base-search-card__subtitle").First()
		if a := sub.Find("a"); a.Length() > 0 {
			c.Company = text(a)
		} else {
			c.Company = text(sub)
		}

		tm := s.Find("time.job-search-card__listdate")
		if tm.Length() == 0 {
			tm = s.Find("time")
		}
		if dt, ok := tm.First().Attr("datetime"); ok {
			c.PostedDate = dt
		} else {
			c.PostedDate = text(tm)
		}

		if c.Title != "" {
			cards = append(cards, c)
		}
	})
	return cards, nil
}

var salarySelectors = []string{
	".salary",
	".compensation-text",
	`[data-automation-id="salary"]`,
	".jobs-unified-top-card__job-insight",
}

// parseDetail reads description, requirements, skills and salary from a
// listing page.
func parseDetail(r io.Reader) (detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return detail{}, err
	}

	desc := doc.Find("div.show-more-less-html__markup")
	if desc.Length() == 0 {
		desc = doc.Find("div.description__text")
	}

	d := detail{Description: text(desc)}
	d.Requirements = extractRequirements(d.Description)
	d.Skills = extractSkills(d.Description)

	for _, sel := range salarySelectors {
		t := text(doc.Find(sel))
		if t != "" && hasDigit(t) && (strings.Contains(t, "$") || strings.Contains(t, "USD")) {
			d.Salary = t
			break
		}
	}
	return d, nil
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

var skillKeywords = []string{
	// languages
	"python", "java", "javascript", "typescript", "c++", "c#", ".net",
	"php", "ruby", "go", "rust", "swift", "kotlin", "scala", "r",
	"matlab", "perl", "objective-c", "dart", "elixir",
	// web
	"react", "angular", "vue.js", "node.js", "express", "django",
	"flask", "spring", "laravel", "rails", "asp.net", "html",
	"css", "sass", "webpack", "babel", "jquery",
	// databases
	"sql", "mysql", "postgresql", "mongodb", "redis", "elasticsearch",
	"oracle", "sql server", "sqlite", "cassandra", "dynamodb",
	"neo4j", "influxdb", "mariadb",
	// cloud and devops
	"aws", "azure", "gcp", "docker", "kubernetes", "terraform",
	"ansible", "jenkins", "git", "github", "gitlab", "bitbucket",
	"ci/cd", "linux", "ubuntu", "centos", "nginx", "apache",
	// data
	"machine learning", "deep learning", "artificial intelligence",
	"ai", "data science", "pandas", "numpy", "scikit-learn",
	"tensorflow", "pytorch", "keras", "tableau", "power bi",
	"spark", "hadoop", "kafka", "airflow",
	// mobile
	"ios", "android", "react native", "flutter", "xamarin",
	"cordova", "ionic",
}

// extractSkills finds known skills in the description. Keywords match at
// word boundaries so "go" does not hit "good".
func extractSkills(description string) []string {
	lower := strings.ToLower(description)
	seen := make(map[string]struct{})
	var skills []string
	for _, kw := range skillKeywords {
		if _, dup := seen[kw]; dup {
			continue
		}
		if containsWord(lower, kw) {
			seen[kw] = struct{}{}
			skills = append(skills, kw)
		}
	}
	sort.Strings(skills)
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return skills
}

func containsWord(s, w string) bool {
	for from := 0; ; {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(w)
		leftOK := start == 0 || !isWordRune(s[start-1])
		rightOK := end == len(s) || !isWordRune(s[end])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
}

func isWordRune(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '+' || b == '#'
}

var requirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(?:required|must have|essential|mandatory)[:\s]([^.!?]{10,100})`),
	regexp.MustCompile(`(?is)(?:minimum|at least)\s+(\d+\s*(?:years?|yrs?)\s*(?:of)?\s*experience)`),
	regexp.MustCompile(`(?is)(?:bachelor|master|phd|degree)[^.!?]{0,50}`),
	regexp.MustCompile(`(?is)(?:experience with|proficiency in|knowledge of)[^.!?]{10,80}`),
	regexp.MustCompile(`(?is)(?:strong|excellent|solid)\s+(?:knowledge|understanding|experience)[^.!?]{10,80}`),
}

var (
	sentenceSplit         = regexp.MustCompile(`[.!?•·‣▪▫-]\s*`)
	requirementIndicators = []string{
		"required", "must have", "essential", "mandatory", "minimum",
		"years of experience", "degree", "certification", "preferred",
	}
)

// extractRequirements pulls requirement-like phrases out of a description,
// unique and capped.
func extractRequirements(description string) []string {
	var reqs []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		reqs = append(reqs, s)
	}

	for _, re := range requirementPatterns {
		for _, m := range re.FindAllString(description, -1) {
			m = strings.TrimSpace(m)
			if len(m) > 15 && len(m) < 200 {
				add(m)
			}
		}
	}
	for _, s := range sentenceSplit.Split(description, -1) {
		s = strings.TrimSpace(s)
		if len(s) < 20 || len(s) > 150 {
			continue
		}
		if containsAny(strings.ToLower(s), requirementIndicators...) {
			add(s)
		}
	}

	if len(reqs) > maxRequirements {
		reqs = reqs[:maxRequirements]
	}
	return reqs
}
