package cachestore

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

type kind int

const (
	kindHash kind = iota
	kindSet
	kindList
)

type memEntry struct {
	kind     kind
	hash     map[string]string
	set      map[string]struct{}
	list     []string
	expireAt time.Time
}

// MemoryStore is an in-process Store with a pluggable clock. Expired keys
// disappear lazily on access, as they would in Redis.
type MemoryStore struct {
	mu    sync.Mutex
	now   Clock
	items map[string]*memEntry
}

// NewMemoryStore returns an empty store. A nil clock uses SystemClock.
func NewMemoryStore(clock Clock) *MemoryStore {
	if clock == nil {
		clock = SystemClock
	}
	return &MemoryStore{now: clock, items: make(map[string]*memEntry)}
}

// lookup returns the live entry for key, evicting it if expired. Callers hold mu.
func (m *MemoryStore) lookup(key string) *memEntry {
	e, ok := m.items[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(m.items, key)
		return nil
	}
	return e
}

// lookupOrCreate returns the entry for key, creating it with kind k if absent.
func (m *MemoryStore) lookupOrCreate(key string, k kind) (*memEntry, error) {
	e := m.lookup(key)
	if e == nil {
		e = &memEntry{kind: k}
		switch k {
		case kindHash:
			e.hash = make(map[string]string)
		case kindSet:
			e.set = make(map[string]struct{})
		}
		m.items[key] = e
		return e, nil
	}
	if e.kind != k {
		return nil, ErrWrongType
	}
	return e, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookupOrCreate(key, kindHash)
	if err != nil {
		return err
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

func (m *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return "", false, nil
	}
	if e.kind != kindHash {
		return "", false, ErrWrongType
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (m *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hgetall(key)
}

func (m *MemoryStore) hgetall(key string) (map[string]string, error) {
	out := make(map[string]string)
	e := m.lookup(key)
	if e == nil {
		return out, nil
	}
	if e.kind != kindHash {
		return nil, ErrWrongType
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) HGetAllBatch(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		h, err := m.hgetall(k)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func (m *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookupOrCreate(key, kindSet)
	if err != nil {
		return err
	}
	for _, mem := range members {
		e.set[mem] = struct{}{}
	}
	return nil
}

// SMembers returns members sorted, so tests and callers see a stable order.
func (m *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	if e.kind != kindSet {
		return nil, ErrWrongType
	}
	out := make([]string, 0, len(e.set))
	for mem := range e.set {
		out = append(out, mem)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil
	}
	if e.kind != kindSet {
		return ErrWrongType
	}
	for _, mem := range members {
		delete(e.set, mem)
	}
	if len(e.set) == 0 {
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryStore) RPush(_ context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookupOrCreate(key, kindList)
	if err != nil {
		return err
	}
	e.list = append(e.list, values...)
	return nil
}

func (m *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return []string{}, nil
	}
	if e.kind != kindList {
		return nil, ErrWrongType
	}

	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

func (m *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	if e == nil {
		return nil
	}
	if ttl <= 0 {
		delete(m.items, key)
		return nil
	}
	e.expireAt = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.lookup(key)
	switch {
	case e == nil:
		return TTLMissing, nil
	case e.expireAt.IsZero():
		return TTLNone, nil
	}
	return e.expireAt.Sub(m.now()), nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, k := range keys {
		if m.lookup(k) != nil {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for k := range m.items {
		if m.lookup(k) == nil {
			continue
		}
		if ok, err := path.Match(pattern, k); err != nil {
			return nil, err
		} else if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
