// Package globals maintains the combined list of platform-wide emotes and
// badges across every provider, cached for an hour.
package globals

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
)

type Index struct {
	store     *cache.Store
	emoteKey  cache.Key
	badgeKey  cache.Key
	mu        sync.RWMutex
	emoteSrcs []emoteSource
	badgeSrcs []badgeSource
}

type emoteSource struct {
	provider core.Provider
	src      providers.Emotes
}

type badgeSource struct {
	provider core.Provider
	src      providers.Badges
}

func New(store *cache.Store, ttl time.Duration) *Index {
	return &Index{
		store:    store,
		emoteKey: cache.GlobalEmotes.WithTTL(ttl),
		badgeKey: cache.GlobalBadges.WithTTL(ttl),
	}
}

// Register adds an adapter's global lists to the fan-out. Either capability
// may be nil. Registration order is list order.
func (x *Index) Register(p core.Provider, emotes providers.Emotes, badges providers.Badges) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if emotes != nil {
		x.emoteSrcs = append(x.emoteSrcs, emoteSource{p, emotes})
	}
	if badges != nil {
		x.badgeSrcs = append(x.badgeSrcs, badgeSource{p, badges})
	}
}

// Emotes returns every provider's global emotes in registration order.
// Providers that fail are logged and left out.
func (x *Index) Emotes(ctx context.Context) ([]core.Emotes, error) {
	return cache.GetOrCache(ctx, x.store, x.emoteKey, x.fetchEmotes, []core.Emotes{})
}

// Badges is Emotes for global badges.
func (x *Index) Badges(ctx context.Context) ([]core.Badges, error) {
	return cache.GetOrCache(ctx, x.store, x.badgeKey, x.fetchBadges, []core.Badges{})
}

func (x *Index) fetchEmotes(ctx context.Context) ([]core.Emotes, error) {
	x.mu.RLock()
	srcs := append([]emoteSource(nil), x.emoteSrcs...)
	x.mu.RUnlock()

	parts := make([][]core.Emotes, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range srcs {
		g.Go(func() error {
			list, err := s.src.GlobalEmotes(gctx)
			if err != nil {
				slog.Warn("globals: provider failed", "component", "globals", "kind", "emotes", "provider", s.provider, "err", err)
				return nil
			}
			parts[i] = list
			return nil
		})
	}
	_ = g.Wait()
	return flatten(parts), nil
}

func (x *Index) fetchBadges(ctx context.Context) ([]core.Badges, error) {
	x.mu.RLock()
	srcs := append([]badgeSource(nil), x.badgeSrcs...)
	x.mu.RUnlock()

	parts := make([][]core.Badges, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range srcs {
		g.Go(func() error {
			list, err := s.src.GlobalBadges(gctx)
			if err != nil {
				slog.Warn("globals: provider failed", "component", "globals", "kind", "badges", "provider", s.provider, "err", err)
				return nil
			}
			parts[i] = list
			return nil
		})
	}
	_ = g.Wait()
	return flatten(parts), nil
}

func flatten[T any](parts [][]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// GlobalEmote reports whether id is a global emote of p. Index failures
// count as a miss.
func (x *Index) GlobalEmote(ctx context.Context, p core.Provider, id string) (core.Emotes, bool) {
	all, err := x.Emotes(ctx)
	if err != nil {
		return core.Emotes{}, false
	}
	for _, e := range all {
		if e.ID == id && e.Provider == p {
			return e, true
		}
	}
	return core.Emotes{}, false
}

// GlobalBadgeVersions returns every global badge of p with the given id.
func (x *Index) GlobalBadgeVersions(ctx context.Context, p core.Provider, id string) []core.Badges {
	all, err := x.Badges(ctx)
	if err != nil {
		return nil
	}
	var out []core.Badges
	for _, b := range all {
		if b.ID == id && b.Provider == p {
			out = append(out, b)
		}
	}
	return out
}

// Purge drops both cached lists.
func (x *Index) Purge(ctx context.Context) error {
	return x.store.Purge(ctx, x.emoteKey, x.badgeKey)
}

var _ providers.GlobalIndex = (*Index)(nil)
