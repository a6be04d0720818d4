package cache

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Clock returns the current time. Tests swap it to step over expiry windows.
type Clock func() time.Time

// Entry is a cached value with its absolute expiry. Entries are replaced
// wholesale on refresh, never mutated in place.
type Entry struct {
	Value     interface{}
	ExpiresAt time.Time
}

func (e *Entry) valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Store is a process-local key/value map with per-entry expiry.
// Expired entries are treated as absent and removed lazily on access;
// StartJanitor adds a periodic sweep for keys nobody reads again.
type Store struct {
	mu      sync.RWMutex
	data    map[string]*Entry
	gen     uint64
	now     Clock
	metrics Metrics
	logger  logrus.FieldLogger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides time.Now.
func WithClock(clock Clock) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// WithStoreMetrics reports evictions to m.
func WithStoreMetrics(m Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithStoreLogger sets the logger used by the janitor.
func WithStoreLogger(logger logrus.FieldLogger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		data:    make(map[string]*Entry),
		now:     time.Now,
		metrics: NoopMetrics{},
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key if it has not expired.
func (s *Store) Get(key Key) (interface{}, bool) {
	return s.get(key.String())
}

func (s *Store) get(k string) (interface{}, bool) {
	now := s.now()

	s.mu.RLock()
	entry, exists := s.data[k]
	s.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if entry.valid(now) {
		return entry.Value, true
	}

	// Lazy eviction. Only drop the entry we saw; a concurrent Set may have
	// replaced it already.
	s.mu.Lock()
	if cur, ok := s.data[k]; ok && cur == entry {
		delete(s.data, k)
		s.metrics.Evicted(1)
	}
	s.mu.Unlock()
	return nil, false
}

// Set stores value under key until now+ttl, replacing any previous entry.
// A non-positive ttl means the value must not be cached, so any existing
// entry is dropped instead.
func (s *Store) Set(key Key, value interface{}, ttl time.Duration) {
	s.set(key.String(), value, ttl)
}

func (s *Store) set(k string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(k, value, ttl)
}

// setIfGeneration stores value only if no invalidation has happened since
// gen was read, so a computation that started before a write cannot put its
// stale result back.
func (s *Store) setIfGeneration(k string, value interface{}, ttl time.Duration, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	s.setLocked(k, value, ttl)
	return true
}

func (s *Store) setLocked(k string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		delete(s.data, k)
		return
	}
	s.data[k] = &Entry{
		Value:     value,
		ExpiresAt: s.now().Add(ttl),
	}
}

// generation is bumped by every invalidation, whether or not it removed
// anything.
func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Invalidate removes the entry for key. It reports whether one existed.
func (s *Store) Invalidate(key Key) bool {
	k := key.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.data[k]
	delete(s.data, k)
	s.gen++
	return exists
}

// InvalidatePrefix removes prefix itself and every entry whose key extends
// prefix's parts, e.g. NewKey("carbon-usage").With("org123") drops all periods
// and scopes cached for org123 but leaves org1234 alone.
func (s *Store) InvalidatePrefix(prefix Key) int {
	return s.invalidatePrefix(prefix.String())
}

func (s *Store) invalidatePrefix(base string) int {
	extended := base + keySeparator

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	removed := 0
	for k := range s.data {
		if k == base || strings.HasPrefix(k, extended) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

// Sweep removes all expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, entry := range s.data {
		if !entry.valid(now) {
			delete(s.data, k)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.Evicted(removed)
	}
	return removed
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					s.logger.WithField("removed", n).Debug("Swept expired cache entries")
				}
			}
		}
	}()
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*Entry)
	s.gen++
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
