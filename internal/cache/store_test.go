package cache

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveCache(_ string, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[result]++
}

var testKey = Key{Name: "things", ExpName: "thingsExp", TTL: time.Hour}

func TestGetOrCacheComputesOnceWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	obs := &countingObserver{}
	s := New(NewMemoryKV(), WithClock(clock.Now), WithObserver(obs))

	var calls atomic.Int64
	compute := func(context.Context) ([]string, error) {
		calls.Add(1)
		return []string{"a", "b"}, nil
	}

	first, err := GetOrCache(context.Background(), s, testKey, compute, nil)
	require.NoError(t, err)
	clock.Advance(30 * time.Minute)
	second, err := GetOrCache(context.Background(), s, testKey, compute, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, 1, obs.counts[ResultMiss])
	assert.Equal(t, 1, obs.counts[ResultHit])
}

func TestGetOrCacheRecomputesAfterExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(NewMemoryKV(), WithClock(clock.Now))

	var calls atomic.Int64
	compute := func(context.Context) ([]int, error) {
		n := calls.Add(1)
		return []int{int(n)}, nil
	}

	got, err := GetOrCache(context.Background(), s, testKey, compute, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)

	clock.Advance(time.Hour)
	got, err = GetOrCache(context.Background(), s, testKey, compute, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	raw, ok, err := s.KV().Get(context.Background(), testKey.ExpName)
	require.NoError(t, err)
	require.True(t, ok)
	exp, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), exp)
}

func TestGetOrCacheFallsBackToStaleValue(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := New(NewMemoryKV(), WithClock(clock.Now))

	_, err := GetOrCache(context.Background(), s, testKey, func(context.Context) ([]string, error) {
		return []string{"kept"}, nil
	}, nil)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	got, err := GetOrCache(context.Background(), s, testKey, func(context.Context) ([]string, error) {
		return nil, nil
	}, []string{"fallback"})
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, got)
}

func TestGetOrCacheReturnsFallbackWhenNothingStored(t *testing.T) {
	s := New(NewMemoryKV())
	got, err := GetOrCache(context.Background(), s, testKey, func(context.Context) ([]string, error) {
		return []string{}, nil
	}, []string{"fallback"})
	require.NoError(t, err)
	assert.Equal(t, []string{"fallback"}, got)

	_, ok, _ := s.KV().Get(context.Background(), testKey.Name)
	assert.False(t, ok, "empty results must not be persisted")
}

func TestGetOrCacheTreatsCorruptEntryAsMiss(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, testKey.Name, "{not json"))
	require.NoError(t, kv.Set(ctx, testKey.ExpName, strconv.FormatInt(time.Now().Add(time.Hour).UnixMilli(), 10)))

	s := New(kv)
	got, err := GetOrCache(ctx, s, testKey, func(context.Context) ([]string, error) {
		return []string{"fresh"}, nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestGetOrCachePropagatesComputeError(t *testing.T) {
	s := New(NewMemoryKV())
	boom := errors.New("boom")
	_, err := GetOrCache(context.Background(), s, testKey, func(context.Context) ([]string, error) {
		return nil, boom
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestIsPresent(t *testing.T) {
	type record struct {
		Name string
		n    int
	}
	var nilSlice []string
	cases := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"blank string", "  ", false},
		{"string", "x", true},
		{"empty slice", []int{}, false},
		{"nil slice", nilSlice, false},
		{"slice", []int{1}, true},
		{"empty map", map[string]int{}, false},
		{"map", map[string]int{"a": 1}, true},
		{"nan", math.NaN(), false},
		{"zero number", 0, true},
		{"zero time", time.Time{}, false},
		{"time", time.Now(), true},
		{"empty struct", record{}, false},
		{"unexported only", record{n: 3}, false},
		{"struct", record{Name: "a"}, true},
		{"nil pointer", (*record)(nil), false},
		{"pointer", &record{Name: "a"}, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsPresent(tc.v), tc.name)
	}
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Ping())

	s := New(kv)
	_, err = GetOrCache(ctx, s, OriginData, func(context.Context) ([]string, error) {
		return []string{"origin"}, nil
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetPref(ctx, PrefLocale, "pt-BR"))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	version, err := sqliteUserVersion(ctx, kv.RawDB())
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	s = New(kv)
	got, err := GetOrCache(ctx, s, OriginData, func(context.Context) ([]string, error) {
		t.Fatal("compute should not run for a fresh persisted value")
		return nil, nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"origin"}, got)

	locale, err := s.Pref(ctx, PrefLocale)
	require.NoError(t, err)
	assert.Equal(t, "pt-BR", locale)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"originData", "originDataExp", "locale"}, keys)

	require.NoError(t, s.Purge(ctx, OriginData))
	_, ok, err := kv.Get(ctx, "originData")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrateDropsOrphanedExpirations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "legacy.db")

	kv, err := OpenSQLite(path)
	require.NoError(t, err)
	db := kv.RawDB()
	_, err = db.Exec(`PRAGMA user_version = 0;`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO kv (key, value) VALUES ('globalBadgesExp', '1'), ('globalEmotes', '[1]'), ('globalEmotesExp', '2');`)
	require.NoError(t, err)

	require.NoError(t, migrateSQLite(ctx, db))

	_, ok, err := kv.Get(ctx, "globalBadgesExp")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = kv.Get(ctx, "globalEmotesExp")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, kv.Close())
}

func TestSQLiteTuning(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), "tuned.db"), WithTuning(true))
	require.NoError(t, err)
	defer kv.Close()

	applied := tuneSQLite(context.Background(), kv.RawDB())
	assert.Contains(t, applied, "PRAGMA temp_store=MEMORY;")
}
