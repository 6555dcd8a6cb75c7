package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/strata/query/cache"
)

func TestStoreGetSet(t *testing.T) {
	s := cache.New(time.Minute, time.Minute)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("k", 42, 0)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	stats := s.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)
	assert.InDelta(t, 50.0, stats.HitRate, 0.001)
}

func TestStoreExpiry(t *testing.T) {
	s := cache.New(time.Minute, time.Minute)
	s.Set("k", "v", time.Millisecond)

	assert.Eventually(t, func() bool {
		_, ok := s.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateRunsEvictionCallback(t *testing.T) {
	var evicted []string
	s := cache.New(time.Minute, time.Minute, cache.OnEvicted(func(key string, _ interface{}) {
		evicted = append(evicted, key)
	}))

	s.Set("users:a", 1, 0)
	s.Set("users:b", 2, 0)
	s.Set("posts:a", 3, 0)

	s.InvalidatePattern("users:*")
	assert.ElementsMatch(t, []string{"users:a", "users:b"}, evicted)
	assert.Equal(t, 1, s.GetStats().Size)

	s.Invalidate("posts:a")
	assert.Len(t, evicted, 3)

	s.Set("x", 1, 0)
	s.Clear()
	assert.Zero(t, s.GetStats().Size)
	assert.Len(t, evicted, 4)
}

func TestSetEvictsExpiredValue(t *testing.T) {
	var evicted []interface{}
	s := cache.New(10*time.Millisecond, time.Hour, cache.OnEvicted(func(_ string, value interface{}) {
		evicted = append(evicted, value)
	}))

	s.Set("k", "stmt1", 0)
	require.Eventually(t, func() bool {
		_, ok := s.Get("k")
		return !ok
	}, time.Second, 5*time.Millisecond)

	s.Set("k", "stmt2", 0)
	assert.Equal(t, []interface{}{"stmt1"}, evicted)

	s.Clear()
	assert.Equal(t, []interface{}{"stmt1", "stmt2"}, evicted)
}

func TestAdd(t *testing.T) {
	var evicted []interface{}
	s := cache.New(time.Minute, time.Hour, cache.OnEvicted(func(_ string, value interface{}) {
		evicted = append(evicted, value)
	}))

	v, added := s.Add("k", "first", 0)
	assert.True(t, added)
	assert.Equal(t, "first", v)

	v, added = s.Add("k", "second", 0)
	assert.False(t, added)
	assert.Equal(t, "first", v)
	assert.Empty(t, evicted)

	s.Set("e", "old", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	v, added = s.Add("e", "new", 0)
	assert.True(t, added)
	assert.Equal(t, "new", v)
	assert.Equal(t, []interface{}{"old"}, evicted)
}

func TestStatementKey(t *testing.T) {
	a := cache.StatementKey("postgres", "SELECT 1;")
	b := cache.StatementKey("postgres", "SELECT 2;")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, cache.StatementKey("postgres", "SELECT 1;"))
	assert.Regexp(t, `^postgres:[0-9a-f]{16}$`, a)
}
