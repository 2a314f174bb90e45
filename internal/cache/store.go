package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Key names a cache slot: the value key, its paired expiration key and the
// window a freshly computed value stays valid for.
type Key struct {
	Name    string
	ExpName string
	TTL     time.Duration
}

var (
	GlobalEmotes = Key{Name: "globalEmotes", ExpName: "globalEmotesExp", TTL: time.Hour}
	GlobalBadges = Key{Name: "globalBadges", ExpName: "globalBadgesExp", TTL: time.Hour}
	OriginData   = Key{Name: "originData", ExpName: "originDataExp", TTL: 24 * time.Hour}
)

// WithTTL returns a copy of k valid for ttl; non-positive values keep k.TTL.
func (k Key) WithTTL(ttl time.Duration) Key {
	if ttl > 0 {
		k.TTL = ttl
	}
	return k
}

// Lookup outcomes reported to an Observer.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultStale    = "stale"
	ResultFallback = "fallback"
)

// Observer receives one call per GetOrCache outcome.
type Observer interface {
	ObserveCache(key, result string)
}

// Store is the cache-aside layer over a KV backend.
type Store struct {
	kv       KV
	now      func() time.Time
	observer Observer
	group    singleflight.Group
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) KV() KV { return s.kv }

func (s *Store) observe(key, result string) {
	if s.observer != nil {
		s.observer.ObserveCache(key, result)
	}
}

// GetOrCache returns the cached value under key while it is unexpired and
// present. Otherwise compute runs; a present result is persisted with a new
// expiration. An empty result falls back to the stale persisted value, then
// to fallback. Errors from compute propagate unchanged; storage errors and
// corrupt entries are treated as misses. Concurrent callers for the same key
// share one compute.
func GetOrCache[T any](ctx context.Context, s *Store, key Key, compute func(context.Context) (T, error), fallback T) (T, error) {
	now := s.now()

	if cached, ok := load[T](ctx, s, key.Name); ok && s.fresh(ctx, key, now) {
		s.observe(key.Name, ResultHit)
		return cached, nil
	}

	v, err, _ := s.group.Do(key.Name, func() (any, error) {
		fetched, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if IsPresent(fetched) {
			s.persist(ctx, key, fetched, now)
			s.observe(key.Name, ResultMiss)
			return fetched, nil
		}
		if stale, ok := load[T](ctx, s, key.Name); ok {
			s.observe(key.Name, ResultStale)
			return stale, nil
		}
		s.observe(key.Name, ResultFallback)
		return fallback, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return fallback, nil
	}
	return out, nil
}

func load[T any](ctx context.Context, s *Store, name string) (T, bool) {
	var zero T
	raw, ok, err := s.kv.Get(ctx, name)
	if err != nil {
		slog.Warn("cache: read failed", "key", name, "err", err)
		return zero, false
	}
	if !ok || raw == "" {
		return zero, false
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Debug("cache: corrupt entry", "key", name, "err", err)
		return zero, false
	}
	if !IsPresent(out) {
		return zero, false
	}
	return out, true
}

func (s *Store) fresh(ctx context.Context, key Key, now time.Time) bool {
	raw, ok, err := s.kv.Get(ctx, key.ExpName)
	if err != nil || !ok {
		return false
	}
	exp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return now.UnixMilli() < exp
}

func (s *Store) persist(ctx context.Context, key Key, value any, now time.Time) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache: encode failed", "key", key.Name, "err", err)
		return
	}
	if err := s.kv.Set(ctx, key.Name, string(data)); err != nil {
		slog.Warn("cache: write failed", "key", key.Name, "err", err)
		return
	}
	exp := now.Add(key.TTL).UnixMilli()
	if err := s.kv.Set(ctx, key.ExpName, strconv.FormatInt(exp, 10)); err != nil {
		slog.Warn("cache: write expiration failed", "key", key.ExpName, "err", err)
	}
}

// Purge drops the value and expiration slots of each key.
func (s *Store) Purge(ctx context.Context, keys ...Key) error {
	names := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		names = append(names, k.Name, k.ExpName)
	}
	return errors.Wrap(s.kv.Delete(ctx, names...), "purge")
}

// Preference slots persisted alongside the cache.
const (
	PrefLocale = "locale"
	PrefTheme  = "theme"
)

// Pref reads a JSON-encoded string preference.
func (s *Store) Pref(ctx context.Context, name string) (string, error) {
	raw, ok, err := s.kv.Get(ctx, name)
	if err != nil {
		return "", errors.Wrap(err, "read preference")
	}
	if !ok {
		return "", nil
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil
	}
	return v, nil
}

// SetPref stores a JSON-encoded string preference.
func (s *Store) SetPref(ctx context.Context, name, value string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode preference")
	}
	return errors.Wrap(s.kv.Set(ctx, name, string(data)), "write preference")
}
