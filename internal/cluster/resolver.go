// Package cluster keeps region → job-id sets so cache lookups only touch the
// regions a query can match.
package cluster

import (
	"strings"

	"jobmate/recommendation-service/internal/config"
)

// Bucket names.
const (
	BucketUSA    = "usa"
	BucketIndia  = "india"
	BucketGlobal = "global"
)

// Region is a bucket and the location tokens that select it.
type Region struct {
	Bucket string
	Tokens []string
}

// DefaultRegions are the built-in keyword lists.
var DefaultRegions = []Region{
	{
		Bucket: BucketUSA,
		Tokens: []string{
			"united states", "usa", "us", "california", "new york", "texas",
			"washington", "massachusetts", "illinois", "colorado",
			", ca", ", ny", ", tx", ", wa", ", ma", ", il", ", co",
			"san francisco", "los angeles", "seattle", "austin", "boston", "chicago",
		},
	},
	{
		Bucket: BucketIndia,
		Tokens: []string{
			"india", "mumbai", "delhi", "bangalore", "bengaluru", "hyderabad",
			"chennai", "pune", "kolkata", "ahmedabad", "gurgaon", "gurugram", "noida",
		},
	},
}

// Resolver maps free-form locations onto buckets.
type Resolver struct {
	regions []Region
}

// NewResolver builds a resolver from regions. An empty list uses DefaultRegions.
func NewResolver(regions []Region) *Resolver {
	if len(regions) == 0 {
		regions = DefaultRegions
	}
	norm := make([]Region, 0, len(regions))
	for _, r := range regions {
		toks := make([]string, 0, len(r.Tokens))
		for _, t := range r.Tokens {
			if t = strings.ToLower(t); strings.TrimSpace(t) != "" {
				toks = append(toks, t)
			}
		}
		norm = append(norm, Region{Bucket: strings.ToLower(r.Bucket), Tokens: toks})
	}
	return &Resolver{regions: norm}
}

// ResolverFromKeywords uses the region lists of a keyword file, falling back
// to the defaults when the file has none.
func ResolverFromKeywords(kw *config.Keywords) *Resolver {
	if kw == nil || len(kw.Regions) == 0 {
		return NewResolver(nil)
	}
	regions := make([]Region, 0, len(kw.Regions))
	for _, r := range kw.Regions {
		regions = append(regions, Region{Bucket: r.Bucket, Tokens: r.Tokens})
	}
	return NewResolver(regions)
}

// Buckets resolves the bucket of a job location. A location matching no
// region, or more than one, lands in global only.
func (r *Resolver) Buckets(location string) []string {
	loc := strings.ToLower(location)
	var matched []string
	for _, reg := range r.regions {
		for _, tok := range reg.Tokens {
			if containsToken(loc, tok) {
				matched = append(matched, reg.Bucket)
				break
			}
		}
	}
	if len(matched) != 1 {
		return []string{BucketGlobal}
	}
	return matched
}

// All returns every bucket, regions first and global last.
func (r *Resolver) All() []string {
	out := make([]string, 0, len(r.regions)+1)
	for _, reg := range r.regions {
		out = append(out, reg.Bucket)
	}
	return append(out, BucketGlobal)
}

// Wildcard reports whether location asks for every bucket.
func (r *Resolver) Wildcard(location string) bool {
	switch strings.ToLower(strings.TrimSpace(location)) {
	case "", "all", "all locations", "anywhere":
		return true
	}
	return false
}

// BucketsForQuery resolves the buckets a search should read. Empty or "all"
// locations fan out to every bucket.
func (r *Resolver) BucketsForQuery(location string) []string {
	if r.Wildcard(location) {
		return r.All()
	}
	if b, ok := r.regionQuery(location); ok {
		return []string{b}
	}
	return r.Buckets(location)
}

// RegionQuery reports whether location names a whole region, like "usa",
// "united states" or "india", rather than a place inside one.
func (r *Resolver) RegionQuery(location string) bool {
	_, ok := r.regionQuery(location)
	return ok
}

func (r *Resolver) regionQuery(location string) (string, bool) {
	loc := strings.ToLower(strings.TrimSpace(location))
	for _, reg := range r.regions {
		if loc == reg.Bucket {
			return reg.Bucket, true
		}
	}
	if loc == "united states" {
		return BucketUSA, true
	}
	return "", false
}

// Matches re-checks that a job's location still belongs to bucket. Global
// admits everything.
func (r *Resolver) Matches(bucket, location string) bool {
	if bucket == BucketGlobal {
		return true
	}
	for _, b := range r.Buckets(location) {
		if b == bucket {
			return true
		}
	}
	return false
}

// containsToken reports whether tok occurs in s at word boundaries. A token
// edge that is punctuation or space needs no boundary.
func containsToken(s, tok string) bool {
	for from := 0; from <= len(s)-len(tok); {
		i := strings.Index(s[from:], tok)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(tok)
		okLeft := !isWordByte(tok[0]) || start == 0 || !isWordByte(s[start-1])
		okRight := !isWordByte(tok[len(tok)-1]) || end == len(s) || !isWordByte(s[end])
		if okLeft && okRight {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 0x80
}
