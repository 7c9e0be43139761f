package store

import (
	"slices"
	"sync"
	"time"

	"memory-loop/internal/logs"
	"memory-loop/internal/metrics"

	"github.com/samber/mo"
)

const (
	DefaultTTL      = 300 * time.Second
	DefaultCapacity = 1024
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	// TTL is how long an entry stays readable after its last write.
	TTL time.Duration
	// Capacity is the maximum number of entries kept after a Put.
	Capacity int

	Metrics *metrics.Registry
	Logger  *logs.Logger

	// Now is the clock used for timestamps and expiry checks.
	Now func() time.Time
}

// Store is a bounded, time-expiring key-value store.
//
// Design principles:
//   - Keys are normalized to a SHA-256 digest before use
//   - Expiry is lazy: a stale entry is only removed when it is read
//     (or by an explicit RemoveExpired sweep)
//   - Capacity is a hard ceiling enforced on every Put by evicting the
//     oldest writes, whether or not they are still fresh
//   - A single RWMutex guards the whole map; Get takes the write lock
//     because it may delete
type Store struct {
	mu       sync.RWMutex
	data     map[string]Entry
	ttl      time.Duration
	capacity int
	now      func() time.Time
	metrics  *metrics.Registry
	logger   *logs.Logger
}

// New initializes and returns an empty Store.
func New(opts Options) *Store {
	s := &Store{
		data:     make(map[string]Entry),
		ttl:      opts.TTL,
		capacity: opts.Capacity,
		now:      opts.Now,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.capacity <= 0 {
		s.capacity = DefaultCapacity
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.logger == nil {
		s.logger = logs.NewLogger(100, logs.INFO)
	}
	return s
}

// Put writes value under key with the current time, overwriting any
// previous entry. If the store then holds more than its capacity, the
// oldest entries are evicted until it is exactly at capacity.
func (s *Store) Put(key string, value any) {
	digest := Digest(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.StorePutsTotal)

	if _, exists := s.data[digest]; !exists {
		s.metrics.Inc(metrics.StoreKeysTotal)
	}

	s.data[digest] = Entry{
		Digest:    digest,
		Timestamp: s.now(),
		Value:     value,
	}

	s.evictLocked()
}

// Get retrieves the value stored under key.
//
// Behavior:
// - Returns (value, true) if the entry exists and is not older than the TTL
// - A stale entry is deleted and reported as missing
// - A stored nil is returned as (nil, true)
func (s *Store) Get(key string) (any, bool) {
	digest := Digest(key)
	s.metrics.Inc(metrics.StoreGetsTotal)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.data[digest]
	if !exists {
		s.metrics.Inc(metrics.StoreMissesTotal)
		return nil, false
	}

	if entry.IsExpired(s.now(), s.ttl) {
		delete(s.data, digest)

		s.metrics.Inc(metrics.StoreExpiredTotal)
		s.metrics.Inc(metrics.StoreExpiredReadsTotal)
		s.metrics.Add(metrics.StoreKeysTotal, -1)
		s.logger.Debug("entry expired on read", "digest", digest)

		return nil, false
	}

	s.metrics.Inc(metrics.StoreHitsTotal)
	return entry.Value, true
}

// Lookup is Get with the result wrapped in an Option.
func (s *Store) Lookup(key string) mo.Option[any] {
	if value, ok := s.Get(key); ok {
		return mo.Some(value)
	}
	return mo.None[any]()
}

// Delete removes a key from the store.
func (s *Store) Delete(key string) {
	digest := Digest(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[digest]; ok {
		delete(s.data, digest)
		s.metrics.Add(metrics.StoreKeysTotal, -1)
	}
}

// Len returns the number of entries held, including expired entries
// that have not been read since they went stale.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured time-to-live.
func (s *Store) TTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl
}

// Capacity returns the configured maximum entry count.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// Configure replaces the TTL and capacity. Non-positive values select the
// defaults. A smaller capacity takes effect immediately.
func (s *Store) Configure(ttl time.Duration, capacity int) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ttl = ttl
	s.capacity = capacity
	s.logger.Info("store limits updated", "ttl", ttl.String(), "capacity", capacity)

	s.evictLocked()
}

// RemoveExpired removes every entry older than the TTL and returns how
// many were removed.
//
// This is used by the background TTL cleaner.
func (s *Store) RemoveExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for digest, entry := range s.data {
		if entry.IsExpired(now, s.ttl) {
			delete(s.data, digest)
			removed++
		}
	}

	if removed > 0 {
		s.metrics.Add(metrics.StoreExpiredTotal, int64(removed))
		s.metrics.Add(metrics.StoreKeysTotal, -int64(removed))
	}

	return removed
}

// evictLocked drops the oldest entries until the store is within
// capacity. Callers must hold the write lock.
func (s *Store) evictLocked() {
	excess := len(s.data) - s.capacity
	if excess <= 0 {
		return
	}

	byAge := make([]Entry, 0, len(s.data))
	for _, entry := range s.data {
		byAge = append(byAge, entry)
	}
	slices.SortFunc(byAge, olderThan)

	for _, entry := range byAge[:excess] {
		delete(s.data, entry.Digest)
	}

	s.metrics.Add(metrics.StoreEvictedTotal, int64(excess))
	s.metrics.Add(metrics.StoreKeysTotal, -int64(excess))
	s.logger.Debug("evicted oldest entries", "count", excess, "capacity", s.capacity)
}
