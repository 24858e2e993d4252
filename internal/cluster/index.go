package cluster

import (
	"context"
	"fmt"
	"time"

	"jobmate/recommendation-service/internal/cachestore"
)

func bucketKey(bucket string) string {
	return "cluster:" + bucket + ":jobs"
}

// Index stores bucket membership in the cache store. Membership is advisory:
// ids whose job hash has expired stay until the set itself expires.
type Index struct {
	store    cachestore.Store
	resolver *Resolver
	ttl      time.Duration
}

// NewIndex returns an Index whose bucket sets are refreshed to ttl on every
// assignment. A zero ttl leaves the sets without expiry.
func NewIndex(store cachestore.Store, resolver *Resolver, ttl time.Duration) *Index {
	if resolver == nil {
		resolver = NewResolver(nil)
	}
	return &Index{store: store, resolver: resolver, ttl: ttl}
}

func (x *Index) Resolver() *Resolver { return x.resolver }

// Assign adds jobID to the bucket of location and returns that bucket list.
func (x *Index) Assign(ctx context.Context, jobID, location string) ([]string, error) {
	buckets := x.resolver.Buckets(location)
	for _, b := range buckets {
		key := bucketKey(b)
		if err := x.store.SAdd(ctx, key, jobID); err != nil {
			return nil, fmt.Errorf("assign %s to %s: %w", jobID, b, err)
		}
		if x.ttl > 0 {
			if err := x.store.Expire(ctx, key, x.ttl); err != nil {
				return nil, fmt.Errorf("refresh ttl of %s: %w", key, err)
			}
		}
	}
	return buckets, nil
}

// Members lists the job ids in bucket. An unknown bucket is empty.
func (x *Index) Members(ctx context.Context, bucket string) ([]string, error) {
	ids, err := x.store.SMembers(ctx, bucketKey(bucket))
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", bucket, err)
	}
	return ids, nil
}

// Remove drops ids from every bucket.
func (x *Index) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	for _, b := range x.resolver.All() {
		if err := x.store.SRem(ctx, bucketKey(b), ids...); err != nil {
			return fmt.Errorf("remove from %s: %w", b, err)
		}
	}
	return nil
}

// Clear deletes every bucket set and returns the number removed.
func (x *Index) Clear(ctx context.Context) (int64, error) {
	keys := make([]string, 0, len(x.resolver.All()))
	for _, b := range x.resolver.All() {
		keys = append(keys, bucketKey(b))
	}
	return x.store.Del(ctx, keys...)
}

func (x *Index) Buckets(location string) []string { return x.resolver.Buckets(location) }

func (x *Index) BucketsForQuery(location string) []string {
	return x.resolver.BucketsForQuery(location)
}

func (x *Index) Wildcard(location string) bool { return x.resolver.Wildcard(location) }

func (x *Index) RegionQuery(location string) bool { return x.resolver.RegionQuery(location) }

func (x *Index) Matches(bucket, location string) bool { return x.resolver.Matches(bucket, location) }
