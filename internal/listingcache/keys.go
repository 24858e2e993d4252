package listingcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const (
	jobKeyPrefix    = "job:"
	searchKeyPrefix = "search:"
	activeSearches  = "active_searches"
)

func jobKey(id string) string { return jobKeyPrefix + id }
func searchKey(key string) string { return searchKeyPrefix + key }
func idFromJobKey(key string) string { return strings.TrimPrefix(key, jobKeyPrefix) }

// QuerySpec is the normalized identity of a search.
type QuerySpec struct {
	Keywords    string
	Location    string
	Limit       int
	JobType     string
	Category    string
	TrustedOnly bool
}

// QueryKey hashes the normalized tuple with SHA-256. Case and surrounding
// whitespace do not change the key. Each field is length-prefixed so no
// separator inside a value can make two tuples collide.
func QueryKey(q QuerySpec) string {
	h := sha256.New()
	for _, f := range []string{
		strings.ToLower(strings.TrimSpace(q.Keywords)),
		strings.ToLower(strings.TrimSpace(q.Location)),
		strconv.Itoa(q.Limit),
		strings.ToLower(strings.TrimSpace(q.JobType)),
		strings.ToLower(strings.TrimSpace(q.Category)),
		strconv.FormatBool(q.TrustedOnly),
	} {
		h.Write([]byte(strconv.Itoa(len(f)) + ":" + f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
