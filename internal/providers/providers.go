// Package providers declares the capability interfaces implemented by the
// per-platform adapters in its subpackages, and the global index the adapters
// consult to flag platform-wide emotes and badges.
package providers

import (
	"context"

	"github.com/you/chatvault/internal/core"
)

// Emotes resolves single emotes and the platform-wide emote list.
type Emotes interface {
	Emote(ctx context.Context, id string) (core.Emote, error)
	GlobalEmotes(ctx context.Context) ([]core.Emotes, error)
}

// Badges resolves single badges and the platform-wide badge list.
type Badges interface {
	Badge(ctx context.Context, id string) (core.Badge, error)
	GlobalBadges(ctx context.Context) ([]core.Badges, error)
}

// Channels resolves channel profile pages.
type Channels interface {
	Channel(ctx context.Context, login string) (core.ChannelData, error)
}

// Sets resolves emote sets.
type Sets interface {
	Set(ctx context.Context, id string) (core.Set, error)
}

// Usage lists the channels that have an emote enabled. Providers paginate
// either by page number or by an opaque before cursor; each ignores the
// other argument.
type Usage interface {
	Usage(ctx context.Context, emoteID string, page int, before string) (core.Channels, error)
}

// ChannelEmotes lists the emote sets a third-party provider serves for a
// channel identified by its platform id.
type ChannelEmotes interface {
	ChannelEmotes(ctx context.Context, channelID string, platform core.Provider) (core.ChannelProvider, error)
}

// Search finds channels by name.
type Search interface {
	Search(ctx context.Context, query string, limit int) ([]core.User, error)
}

// GlobalIndex answers whether an id belongs to a provider's global list.
// Implementations cache the lists; adapters receive NoGlobals rather than nil.
type GlobalIndex interface {
	GlobalEmote(ctx context.Context, p core.Provider, id string) (core.Emotes, bool)
	// GlobalBadgeVersions returns every global badge of p with the given id,
	// one per version, in index order.
	GlobalBadgeVersions(ctx context.Context, p core.Provider, id string) []core.Badges
}

// OriginIndex looks up the archived image URL recorded for an emote in the
// provenance dataset.
type OriginIndex interface {
	OriginImage(ctx context.Context, p core.Provider, id string) (string, bool)
}

// NoOrigins is an OriginIndex with no records.
type NoOrigins struct{}

func (NoOrigins) OriginImage(context.Context, core.Provider, string) (string, bool) { return "", false }

// NoGlobals is a GlobalIndex that knows no globals.
type NoGlobals struct{}

func (NoGlobals) GlobalEmote(context.Context, core.Provider, string) (core.Emotes, bool) {
	return core.Emotes{}, false
}

func (NoGlobals) GlobalBadgeVersions(context.Context, core.Provider, string) []core.Badges {
	return nil
}

// PickVersion splits the versions of one global badge into the requested
// version and its siblings. ok is false when version is absent.
func PickVersion(versions []core.Badges, version string) (badge core.Badges, related []core.Badges, ok bool) {
	related = []core.Badges{}
	for _, b := range versions {
		if b.Version == version && !ok {
			badge, ok = b, true
			continue
		}
		related = append(related, b)
	}
	return badge, related, ok
}

// Source is the full set of adapters known to the dispatch layer. Missing
// capabilities are nil.
type Source struct {
	Provider      core.Provider
	Emotes        Emotes
	Badges        Badges
	Channels      Channels
	Sets          Sets
	Usage         Usage
	ChannelEmotes ChannelEmotes
	Search        Search
}

// SourceOf fills a Source from an adapter by type assertion.
func SourceOf(p core.Provider, adapter any) Source {
	s := Source{Provider: p}
	s.Emotes, _ = adapter.(Emotes)
	s.Badges, _ = adapter.(Badges)
	s.Channels, _ = adapter.(Channels)
	s.Sets, _ = adapter.(Sets)
	s.Usage, _ = adapter.(Usage)
	s.ChannelEmotes, _ = adapter.(ChannelEmotes)
	s.Search, _ = adapter.(Search)
	return s
}
