// Package cache provides the expiring cache behind the prepared
// statement pool.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/satishbabariya/strata/internal/debug"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
)

// Cache stores values under string keys with a TTL.
type Cache interface {
	// Get retrieves a value from the cache
	Get(key string) (interface{}, bool)
	// Set stores a value in the cache. A zero ttl uses the default.
	Set(key string, value interface{}, ttl time.Duration)
	// Invalidate removes a specific key from the cache
	Invalidate(key string)
	// InvalidatePattern removes all keys matching a pattern (e.g., "users:*")
	InvalidatePattern(pattern string)
	// Clear removes all entries from the cache
	Clear()
	// GetStats returns cache statistics
	GetStats() Stats
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	Evictions int64
	HitRate   float64
}

// Store is a Cache on top of go-cache.
type Store struct {
	mu        sync.Mutex
	cache     *gocache.Cache
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	onEvict   func(key string, value interface{})
}

// Option configures a Store.
type Option func(*Store)

// OnEvicted registers fn to run whenever an entry leaves the cache,
// by expiry or removal.
func OnEvicted(fn func(key string, value interface{})) Option {
	return func(s *Store) { s.onEvict = fn }
}

// New creates a store. Zero durations use the package defaults.
func New(defaultExpiration, cleanupInterval time.Duration, opts ...Option) *Store {
	if defaultExpiration == 0 {
		defaultExpiration = DefaultExpiration
	}
	if cleanupInterval == 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	s := &Store{cache: gocache.New(defaultExpiration, cleanupInterval)}
	for _, opt := range opts {
		opt(s)
	}

	s.cache.OnEvicted(func(key string, value interface{}) {
		s.evictions.Add(1)
		if s.onEvict != nil {
			s.onEvict(key, value)
		}
	})
	return s
}

// Get retrieves a value from the cache
func (s *Store) Get(key string) (interface{}, bool) {
	value, found := s.cache.Get(key)
	if !found {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	debug.Debug("cache", "cache hit", "key", key)
	return value, true
}

// Set stores a value in the cache. A value already under key, expired
// or not, passes through the eviction callback first; go-cache would
// otherwise overwrite it silently.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(key, value, ttl)
}

// Add stores value unless key holds an unexpired value. It returns the
// value now cached and whether it was value.
func (s *Store) Add(key string, value interface{}, ttl time.Duration) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, found := s.cache.Get(key); found {
		return current, false
	}
	s.replace(key, value, ttl)
	return value, true
}

func (s *Store) replace(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	// Delete hands expired entries to OnEvicted too.
	s.cache.Delete(key)
	s.cache.Set(key, value, ttl)
}

// Invalidate removes a specific key from the cache
func (s *Store) Invalidate(key string) {
	s.cache.Delete(key)
}

// InvalidatePattern removes all keys matching a pattern
// Pattern format: "prefix:*" or "*:suffix" or "*:middle:*"
func (s *Store) InvalidatePattern(pattern string) {
	for key := range s.cache.Items() {
		if matchesPattern(key, pattern) {
			s.cache.Delete(key)
		}
	}
}

// Clear removes all entries from the cache. Every entry passes through
// the eviction callback.
func (s *Store) Clear() {
	for key := range s.cache.Items() {
		s.cache.Delete(key)
	}
	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
}

// GetStats returns cache statistics
func (s *Store) GetStats() Stats {
	stats := Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Size:      s.cache.ItemCount(),
		Evictions: s.evictions.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}
	return stats
}

// matchesPattern checks if a key matches a colon separated pattern
func matchesPattern(key, pattern string) bool {
	if pattern == "*" {
		return true
	}

	parts := strings.Split(pattern, ":")
	keyParts := strings.Split(key, ":")
	if len(parts) != len(keyParts) {
		return false
	}

	for i, part := range parts {
		if part != "*" && part != keyParts[i] {
			return false
		}
	}
	return true
}

// StatementKey builds the cache key of a statement: scope:hash.
func StatementKey(scope, sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return fmt.Sprintf("%s:%s", scope, hex.EncodeToString(sum[:8]))
}
