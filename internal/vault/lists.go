package vault

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
)

func isAll(alias string) bool { return strings.EqualFold(strings.TrimSpace(alias), All) }

// fanOut calls fn for each source concurrently and concatenates the
// successful results in source order. Failures are logged and dropped.
func fanOut[T any](ctx context.Context, component string, srcs []providers.Source, fn func(context.Context, providers.Source) ([]T, error)) []T {
	parts := make([][]T, len(srcs))
	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			out, err := fn(ctx, src)
			if err != nil {
				logDropped(component, src.Provider, err)
				return nil
			}
			parts[i] = out
			return nil
		})
	}
	_ = g.Wait()

	all := []T{}
	for _, p := range parts {
		all = append(all, p...)
	}
	return all
}

// sourcesFor returns the registered sources in fan-out order that serve the
// capability.
func (v *Vault) sourcesFor(order []core.Provider, has func(providers.Source) bool) []providers.Source {
	out := make([]providers.Source, 0, len(order))
	for _, p := range order {
		if s, ok := v.sources[p]; ok && has(s) {
			out = append(out, s)
		}
	}
	return out
}

var (
	channelEmoteOrder = []core.Provider{core.BTTV, core.FFZ, core.SevenTV}
	searchOrder       = []core.Provider{core.Twitch, core.Kick}
)

func hasChannelEmotes(s providers.Source) bool { return s.ChannelEmotes != nil }
func hasUsage(s providers.Source) bool         { return s.Usage != nil }
func hasSearch(s providers.Source) bool        { return s.Search != nil }

// ChannelEmotes lists the third-party emote sets of a channel identified by
// its platform id. "all" asks every third-party provider.
func (v *Vault) ChannelEmotes(ctx context.Context, alias, channelID, platform string) ([]core.ChannelProvider, error) {
	plat, ok := core.LookupAlias(platform)
	if !ok {
		plat = core.Provider(strings.ToLower(platform))
	}
	fetch := func(ctx context.Context, s providers.Source) ([]core.ChannelProvider, error) {
		cp, err := s.ChannelEmotes.ChannelEmotes(ctx, channelID, plat)
		if err != nil {
			return nil, err
		}
		return []core.ChannelProvider{cp}, nil
	}

	if isAll(alias) {
		return fanOut(ctx, "channel-emotes", v.sourcesFor(channelEmoteOrder, hasChannelEmotes), fetch), nil
	}
	src, err := v.resolve(ctx, alias, hasChannelEmotes)
	if err != nil {
		return nil, v.failure(ctx, "channel-emotes", v.label(ctx, "channel.label", "navbar.emotes"), alias, err)
	}
	out, err := fetch(ctx, src)
	if err != nil {
		return nil, v.failure(ctx, "channel-emotes", v.label(ctx, "channel.label", "navbar.emotes"), alias, err)
	}
	return out, nil
}

// Channels lists who uses an emote. page applies to page-numbered providers,
// before to cursor-paginated ones.
func (v *Vault) Channels(ctx context.Context, alias, emoteID string, page int, before string) (core.Channels, error) {
	label := v.label(ctx, "emote.label", "navbar.channels")
	src, err := v.resolve(ctx, alias, hasUsage)
	if err == nil {
		emoteID, err = canonicalID(ctx, src.Provider, emoteID)
	}
	if err != nil {
		return core.Channels{}, v.failure(ctx, "channels", label, alias, err)
	}
	if page < 1 {
		page = 1
	}
	out, err := src.Usage.Usage(ctx, emoteID, page, before)
	if err != nil {
		return core.Channels{}, v.failure(ctx, "channels", label, alias, err)
	}
	return out, nil
}

// Search finds channels by name. "all" searches Twitch and Kick; rank orders
// the combined results by similarity to query.
func (v *Vault) Search(ctx context.Context, alias, query string, limit int, rank bool) ([]core.User, error) {
	fetch := func(ctx context.Context, s providers.Source) ([]core.User, error) {
		return s.Search.Search(ctx, query, limit)
	}

	var out []core.User
	if isAll(alias) {
		out = fanOut(ctx, "search", v.sourcesFor(searchOrder, hasSearch), fetch)
	} else {
		src, err := v.resolve(ctx, alias, hasSearch)
		if err == nil {
			out, err = fetch(ctx, src)
		}
		if err != nil {
			return nil, v.failure(ctx, "search", "", alias, err)
		}
	}
	if rank {
		out = textutil.RankUsers(query, out)
	}
	return out, nil
}

// GlobalEmotes lists one provider's global emotes, or the cached combined
// list for "all".
func (v *Vault) GlobalEmotes(ctx context.Context, alias string) ([]core.Emotes, error) {
	label := v.label(ctx, "global.label", "navbar.emotes")
	if isAll(alias) {
		out, err := v.globals.Emotes(ctx)
		if err != nil {
			return nil, v.failure(ctx, "globals", label, alias, err)
		}
		return out, nil
	}
	src, err := v.resolve(ctx, alias, hasEmotes)
	if err != nil {
		return nil, v.failure(ctx, "globals", label, alias, err)
	}
	out, err := src.Emotes.GlobalEmotes(ctx)
	if err != nil {
		return nil, v.failure(ctx, "globals", label, alias, err)
	}
	return out, nil
}

// GlobalBadges is GlobalEmotes for badges.
func (v *Vault) GlobalBadges(ctx context.Context, alias string) ([]core.Badges, error) {
	label := v.label(ctx, "global.label", "navbar.badges")
	if isAll(alias) {
		out, err := v.globals.Badges(ctx)
		if err != nil {
			return nil, v.failure(ctx, "globals", label, alias, err)
		}
		return out, nil
	}
	src, err := v.resolve(ctx, alias, hasBadges)
	if err != nil {
		return nil, v.failure(ctx, "globals", label, alias, err)
	}
	out, err := src.Badges.GlobalBadges(ctx)
	if err != nil {
		return nil, v.failure(ctx, "globals", label, alias, err)
	}
	return out, nil
}
