package store_test

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yago-123/punch-relay/pkg/peer"
	"github.com/yago-123/punch-relay/pkg/rendez/store"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestUpsertIsLastWriteWins(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore[netip.Addr, peer.Server]()
	key := netip.MustParseAddr("203.0.113.5")

	s.Upsert(key, peer.Server{Token: "first"}, t0)
	s.Upsert(key, peer.Server{Token: "second"}, t0.Add(time.Second))

	rec, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "second", rec.Value.Token)
	assert.Equal(t, t0.Add(time.Second), rec.LastSeen)
	assert.Equal(t, 1, s.Len())
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore[string, int]()
	assert.False(t, s.Refresh("missing", t0))
	assert.Equal(t, 0, s.Len())

	s.Upsert("a", 7, t0)
	assert.True(t, s.Refresh("a", t0.Add(3*time.Second)))

	rec, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 7, rec.Value)
	assert.Equal(t, t0.Add(3*time.Second), rec.LastSeen)
}

func TestSweepBoundary(t *testing.T) {
	t.Parallel()

	const ttl = 10 * time.Second
	s := store.NewMemoryStore[string, int]()
	s.Upsert("at-ttl", 1, t0)
	s.Upsert("past-ttl", 2, t0.Add(-time.Nanosecond))
	s.Upsert("fresh", 3, t0.Add(5*time.Second))

	evicted := s.Sweep(t0.Add(ttl), ttl)

	assert.Equal(t, []string{"past-ttl"}, evicted)
	_, ok := s.Get("at-ttl")
	assert.True(t, ok)
	_, ok = s.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestSweepSparesSameTickRefresh(t *testing.T) {
	t.Parallel()

	const ttl = 6 * time.Second
	s := store.NewMemoryStore[string, int]()
	s.Upsert("k", 1, t0)

	now := t0.Add(time.Minute)
	s.Refresh("k", now)

	assert.Empty(t, s.Sweep(now, ttl))
	assert.Equal(t, 1, s.Len())
}

func TestRemoveAndRange(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore[string, int]()
	s.Upsert("a", 1, t0)
	s.Upsert("b", 2, t0)

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))

	seen := map[string]int{}
	s.Range(func(key string, rec store.Record[int]) bool {
		seen[key] = rec.Value
		return true
	})
	assert.Equal(t, map[string]int{"b": 2}, seen)
}
