// Package cachestore is the key/value layer under the listing cache: hashes,
// sets, lists, TTLs and pipelined batch reads.
package cachestore

import (
	"context"
	"errors"
	"time"
)

// Special values returned by TTL, matching Redis.
const (
	TTLNone    time.Duration = -1
	TTLMissing time.Duration = -2
)

// ErrWrongType is returned when a key holds a different kind of value.
var ErrWrongType = errors.New("cachestore: operation against a key holding the wrong kind of value")

// Store is the cache contract. A missing key is never an error: reads return
// empty results.
type Store interface {
	Ping(ctx context.Context) error

	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HGetAllBatch reads many hashes in one round trip. The result is
	// index-aligned with keys.
	HGetAllBatch(ctx context.Context, keys []string) ([]map[string]string, error)

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error

	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	// Keys enumerates keys matching a glob pattern without blocking the server.
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Clock returns the current time. Injected wherever TTL decisions are made.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
