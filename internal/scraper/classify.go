package scraper

import (
	"sort"
	"strings"

	"jobmate/recommendation-service/internal/config"
)

// Category is one taxonomy entry.
type Category struct {
	Name     string
	Keywords []string
}

// CategoryOther is assigned when no taxonomy keyword matches.
const CategoryOther = "Other"

// DefaultCategories is the built-in taxonomy. Order breaks score ties.
var DefaultCategories = []Category{
	{"Software Engineering", []string{
		"software engineer", "software developer", "full stack developer",
		"frontend developer", "backend developer", "web developer",
		"mobile developer", "ios developer", "android developer",
		"python developer", "java developer", "javascript developer",
		"react developer", "node.js developer", ".net developer",
	}},
	{"Data Science & Analytics", []string{
		"data scientist", "data analyst", "data engineer", "ml engineer",
		"machine learning engineer", "ai engineer", "research scientist",
		"business analyst", "business intelligence", "data visualization",
		"statistician", "quantitative analyst", "analytics engineer",
	}},
	{"DevOps & Infrastructure", []string{
		"devops engineer", "cloud engineer", "infrastructure engineer",
		"site reliability engineer", "platform engineer", "systems engineer",
		"network engineer", "security engineer", "aws engineer",
		"kubernetes engineer", "docker", "terraform",
	}},
	{"Product & Design", []string{
		"product manager", "product owner", "ux designer", "ui designer",
		"product designer", "user experience", "user interface",
		"design lead", "creative director", "graphic designer",
	}},
	{"Cybersecurity", []string{
		"security engineer", "cybersecurity analyst", "security architect",
		"penetration tester", "security consultant", "incident response",
		"vulnerability assessment", "compliance analyst",
	}},
	{"Project Management", []string{
		"project manager", "program manager", "scrum master",
		"agile coach", "delivery manager", "technical program manager",
		"pmp", "project coordinator",
	}},
	{"Sales & Marketing", []string{
		"sales representative", "account manager", "business development",
		"marketing manager", "digital marketing", "growth marketing",
		"content marketing", "social media manager", "seo specialist",
	}},
	{"Finance & Accounting", []string{
		"financial analyst", "accountant", "controller", "cfo",
		"investment analyst", "risk analyst", "auditor",
		"financial planner", "treasury analyst",
	}},
	{"Human Resources", []string{
		"hr manager", "recruiter", "talent acquisition", "hr business partner",
		"compensation analyst", "learning and development", "hr generalist",
	}},
	{"Operations", []string{
		"operations manager", "supply chain", "logistics coordinator",
		"business operations", "process improvement", "quality assurance",
	}},
}

// DefaultTrustedCompanies is the built-in employer allow-list.
var DefaultTrustedCompanies = []string{
	// tech
	"google", "microsoft", "amazon", "apple", "meta", "facebook", "tesla", "netflix",
	"salesforce", "oracle", "adobe", "nvidia", "intel", "ibm", "cisco", "vmware",
	"spotify", "uber", "airbnb", "twitter", "linkedin", "dropbox", "slack", "zoom",
	"shopify", "square", "stripe", "paypal", "ebay", "reddit", "pinterest", "snap",
	"twilio", "okta", "snowflake", "databricks", "palantir", "cloudflare", "mongodb",
	// finance
	"jpmorgan", "goldman sachs", "morgan stanley", "bank of america", "wells fargo",
	"citigroup", "american express", "visa", "mastercard", "blackrock", "fidelity",
	"charles schwab", "robinhood", "coinbase",
	// consulting
	"mckinsey", "bain", "bcg", "deloitte", "pwc", "kpmg", "ey", "accenture",
	"ibm consulting", "tcs", "infosys", "wipro", "cognizant", "capgemini",
	// fortune 500
	"walmart", "exxon mobil", "berkshire hathaway", "unitedhealth", "mckesson",
	"cvs health", "at&t", "general motors", "ford", "verizon",
	"chevron", "kroger", "general electric", "walgreens", "phillips 66",
	"marathon petroleum", "costco", "cardinal health", "express scripts",
	// healthcare
	"johnson & johnson", "pfizer", "merck", "abbott", "bristol myers squibb",
	"eli lilly", "gilead", "amgen", "biogen", "regeneron", "moderna",
	"kaiser permanente", "anthem", "humana", "centene",
	// startups
	"openai", "anthropic", "canva", "figma", "notion", "discord", "github",
	"gitlab", "atlassian", "asana", "monday.com", "miro", "airtable",
}

// Classifier derives category, trust, job type and experience level.
type Classifier struct {
	categories []Category
	trusted    map[string]struct{}
}

// NewClassifier builds a classifier. Nil arguments use the defaults.
func NewClassifier(categories []Category, trusted []string) *Classifier {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if len(trusted) == 0 {
		trusted = DefaultTrustedCompanies
	}
	c := &Classifier{trusted: make(map[string]struct{}, len(trusted))}
	for _, cat := range categories {
		kws := make([]string, len(cat.Keywords))
		for i, k := range cat.Keywords {
			kws[i] = strings.ToLower(k)
		}
		c.categories = append(c.categories, Category{Name: cat.Name, Keywords: kws})
	}
	for _, t := range trusted {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			c.trusted[t] = struct{}{}
		}
	}
	return c
}

// ClassifierFromKeywords applies the taxonomy and allow-list overrides of a
// keyword file.
func ClassifierFromKeywords(kw *config.Keywords) *Classifier {
	if kw == nil {
		return NewClassifier(nil, nil)
	}
	cats := make([]Category, 0, len(kw.Categories))
	for _, c := range kw.Categories {
		cats = append(cats, Category{Name: c.Name, Keywords: c.Keywords})
	}
	return NewClassifier(cats, kw.TrustedCompanies)
}

// Category scores each taxonomy entry: a keyword in the title adds 3, else
// a keyword in the description adds 1. The highest score wins; ties go to
// the earlier entry.
func (c *Classifier) Category(title, description string) string {
	t := strings.ToLower(title)
	d := strings.ToLower(description)

	best, bestScore := CategoryOther, 0
	for _, cat := range c.categories {
		score := 0
		for _, kw := range cat.Keywords {
			switch {
			case strings.Contains(t, kw):
				score += 3
			case strings.Contains(d, kw):
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cat.Name, score
		}
	}
	return best
}

// Categories lists the taxonomy names in order.
func (c *Classifier) Categories() []string {
	out := make([]string, len(c.categories))
	for i, cat := range c.categories {
		out[i] = cat.Name
	}
	return out
}

// minSubstringMatch keeps short names like "ey" to exact matches.
const minSubstringMatch = 4

// IsTrusted matches the allow-list exactly or by substring in either
// direction.
func (c *Classifier) IsTrusted(company string) bool {
	name := strings.ToLower(strings.TrimSpace(company))
	if name == "" {
		return false
	}
	if _, ok := c.trusted[name]; ok {
		return true
	}
	for t := range c.trusted {
		if len(t) >= minSubstringMatch && strings.Contains(name, t) {
			return true
		}
		if len(name) >= minSubstringMatch && strings.Contains(t, name) {
			return true
		}
	}
	return false
}

// TrustedCompanies returns the allow-list sorted.
func (c *Classifier) TrustedCompanies() []string {
	out := make([]string, 0, len(c.trusted))
	for t := range c.trusted {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// JobType reads the arrangement from the title.
func JobType(title string) string {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, "intern", "internship"):
		return "Internship"
	case containsAny(t, "contract", "contractor", "freelance", "temporary"):
		return "Contract"
	case containsAny(t, "part-time", "part time"):
		return "Part-time"
	}
	return "Full-time"
}

// ExperienceLevel reads seniority from the title, defaulting to Mid Level.
func ExperienceLevel(title string) string {
	t := strings.ToLower(title)
	switch {
	case containsAny(t, "senior", "sr.", "lead", "principal", "staff"):
		return "Senior"
	case containsAny(t, "junior", "jr.", "entry", "associate", "intern"):
		return "Entry Level"
	}
	return "Mid Level"
}

// EmploymentType reads the arrangement from card metadata text.
func EmploymentType(metadata string) string {
	m := strings.ToLower(metadata)
	switch {
	case strings.Contains(m, "full-time"):
		return "Full-time"
	case strings.Contains(m, "part-time"):
		return "Part-time"
	case strings.Contains(m, "contract"):
		return "Contract"
	case strings.Contains(m, "internship"):
		return "Internship"
	}
	return "Full-time"
}

// jobTypeCodes maps job-type filters to the upstream f_JT codes.
var jobTypeCodes = map[string]string{
	"full-time":  "F",
	"full_time":  "F",
	"part-time":  "P",
	"part_time":  "P",
	"contract":   "C",
	"temporary":  "T",
	"internship": "I",
	"volunteer":  "V",
}

func jobTypeCode(filter string) string {
	return jobTypeCodes[strings.ToLower(strings.TrimSpace(filter))]
}
