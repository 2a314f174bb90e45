package vault

import (
	"context"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/idcodec"
	"github.com/you/chatvault/internal/providers"
)

func hasEmotes(s providers.Source) bool   { return s.Emotes != nil }
func hasBadges(s providers.Source) bool   { return s.Badges != nil }
func hasChannels(s providers.Source) bool { return s.Channels != nil }
func hasSets(s providers.Source) bool     { return s.Sets != nil }

// Emote fetches one emote. Legacy 7TV object ids are converted first.
func (v *Vault) Emote(ctx context.Context, alias, id string) (core.Emote, error) {
	src, err := v.resolve(ctx, alias, hasEmotes)
	if err == nil {
		id, err = canonicalID(ctx, src.Provider, id)
	}
	if err != nil {
		return core.Emote{}, v.failure(ctx, "emote", v.label(ctx, "emote.label"), alias, err)
	}
	e, err := src.Emotes.Emote(ctx, id)
	if err != nil {
		return core.Emote{}, v.failure(ctx, "emote", v.label(ctx, "emote.label"), alias, err)
	}
	return e, nil
}

func (v *Vault) Badge(ctx context.Context, alias, id string) (core.Badge, error) {
	src, err := v.resolve(ctx, alias, hasBadges)
	if err != nil {
		return core.Badge{}, v.failure(ctx, "badge", "", alias, err)
	}
	b, err := src.Badges.Badge(ctx, id)
	if err != nil {
		return core.Badge{}, v.failure(ctx, "badge", "", alias, err)
	}
	return b, nil
}

func (v *Vault) Channel(ctx context.Context, alias, login string) (core.ChannelData, error) {
	src, err := v.resolve(ctx, alias, hasChannels)
	if err != nil {
		return core.ChannelData{}, v.failure(ctx, "channel", "", alias, err)
	}
	ch, err := src.Channels.Channel(ctx, login)
	if err != nil {
		return core.ChannelData{}, v.failure(ctx, "channel", "", alias, err)
	}
	return ch, nil
}

// Set fetches one emote set. Legacy 7TV object ids are converted first.
func (v *Vault) Set(ctx context.Context, alias, id string) (core.Set, error) {
	src, err := v.resolve(ctx, alias, hasSets)
	if err == nil {
		id, err = canonicalID(ctx, src.Provider, id)
	}
	if err != nil {
		return core.Set{}, v.failure(ctx, "set", "", alias, err)
	}
	s, err := src.Sets.Set(ctx, id)
	if err != nil {
		return core.Set{}, v.failure(ctx, "set", "", alias, err)
	}
	return s, nil
}

// EmoteExtras enriches an emote page from the provenance sources. Lookup
// failures yield empty extras; only an unknown alias is an error.
func (v *Vault) EmoteExtras(ctx context.Context, alias, channelID, id, name string) (core.Extras, error) {
	p, ok := core.LookupAlias(alias)
	if !ok {
		return core.NewExtras(), v.failure(ctx, "emote", v.label(ctx, "emote.label"), alias, core.UnknownProvider(alias, v.msgs.T(ctx, "error.provider")))
	}
	if v.origins == nil {
		return core.NewExtras(), nil
	}
	if p == core.SevenTV {
		if out, converted, err := idcodec.Normalize(id); err == nil && converted {
			id = out
		}
	}
	return v.origins.EmoteExtras(ctx, channelID, p, id, name), nil
}

// BadgeExtras is EmoteExtras for badges.
func (v *Vault) BadgeExtras(ctx context.Context, alias, id string) (core.Extras, error) {
	p, ok := core.LookupAlias(alias)
	if !ok {
		return core.NewExtras(), v.failure(ctx, "badge", "", alias, core.UnknownProvider(alias, v.msgs.T(ctx, "error.provider")))
	}
	if v.origins == nil {
		return core.NewExtras(), nil
	}
	return v.origins.BadgeExtras(ctx, p, id), nil
}
