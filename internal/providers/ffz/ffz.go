// Package ffz adapts the FrankerFaceZ REST API and its public emote pages.
package ffz

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	apiBaseURL = "https://api.frankerfacez.com"
	cdnBaseURL = "https://cdn.frankerfacez.com"
	siteURL    = "https://frankerfacez.com"
)

const (
	collectionPageSize = 200
	maxCollectionPages = 50
	zeroWidthFlag      = 256
)

type Client struct {
	up      *upstream.Client
	globals providers.GlobalIndex
}

func New(up *upstream.Client, globals providers.GlobalIndex) *Client {
	if globals == nil {
		globals = providers.NoGlobals{}
	}
	return &Client{up: up, globals: globals}
}

type apiUser struct {
	ID          int    `json:"id"`
	Provider    string `json:"provider"`
	ProviderID  string `json:"provider_id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type apiEmote struct {
	ID            int      `json:"id"`
	CreatedAt     string   `json:"created_at"`
	Name          string   `json:"name"`
	Public        bool     `json:"public"`
	UseCount      int      `json:"use_count"`
	Status        int      `json:"status"`
	Animated      any      `json:"animated"`
	Modifier      bool     `json:"modifier"`
	ModifierFlags int      `json:"modifier_flags"`
	Owner         apiUser  `json:"owner"`
	Artist        *apiUser `json:"artist"`
}

// The v1 endpoints send animated as an object of URLs, v2 as a bool.
func (e apiEmote) isAnimated() bool {
	switch v := e.Animated.(type) {
	case bool:
		return v
	case map[string]any:
		return len(v) > 0
	}
	return false
}

func (e apiEmote) zeroWidth() bool { return e.ModifierFlags&zeroWidthFlag != 0 }

type apiEmoteEnvelope struct {
	Emote *apiEmote `json:"emote"`
}

type apiSet struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Emoticons []apiEmote `json:"emoticons"`
}

type apiGlobals struct {
	DefaultSets []int             `json:"default_sets"`
	Sets        map[string]apiSet `json:"sets"`
}

type apiRoom struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"display_name"`
	Set         int                 `json:"set"`
	UserBadges  map[string][]string `json:"user_badges"`
}

type apiRoomEnvelope struct {
	Room *apiRoom          `json:"room"`
	Sets map[string]apiSet `json:"sets"`
}

type apiCollection struct {
	Collection *struct {
		ID    int     `json:"id"`
		Title string  `json:"title"`
		Owner apiUser `json:"owner"`
	} `json:"collection"`
	Pages  int        `json:"pages"`
	Total  int        `json:"total"`
	Emotes []apiEmote `json:"emotes"`
}

func emoteImage(id int, animated bool, scale int) string {
	suffix := ""
	if animated {
		suffix = "/animated"
	}
	return fmt.Sprintf("%s/emoticon/%d%s/%d", cdnBaseURL, id, suffix, scale)
}

func avatar(platform, id string) string {
	return fmt.Sprintf("%s/avatar/%s/%s", cdnBaseURL, platform, id)
}

func summary(e apiEmote) core.Emotes {
	return core.Emotes{
		ID:        strconv.Itoa(e.ID),
		Name:      e.Name,
		Image:     emoteImage(e.ID, e.isAnimated(), 4),
		Owner:     textutil.CompareName(e.Owner.Name, e.Owner.DisplayName),
		ZeroWidth: e.zeroWidth(),
		Provider:  core.FFZ,
	}
}

func (c *Client) Emote(ctx context.Context, id string) (core.Emote, error) {
	const op = "Emote"
	var body apiEmoteEnvelope
	if err := c.up.GetJSON(ctx, core.FFZ, op, apiBaseURL+"/v2/emote/"+upstream.Escape(id), &body); err != nil {
		return core.Emote{}, err
	}
	data := body.Emote
	if data == nil {
		return core.Emote{}, c.up.NotFound(ctx, core.FFZ, op)
	}

	animated := data.isAnimated()
	var artist *core.User
	if data.Artist != nil && data.Artist.Name != data.Owner.Name {
		artist = &core.User{
			ID:       data.Artist.ProviderID,
			Username: textutil.CompareName(data.Artist.Name, data.Artist.DisplayName),
			Avatar:   avatar(data.Artist.Provider, data.Artist.ProviderID),
			Platform: data.Artist.Provider,
			Source:   siteURL + "/channel/" + data.Artist.Name,
		}
	}

	_, global := c.globals.GlobalEmote(ctx, core.FFZ, id)
	emoteType := "CHANNEL"
	if global {
		emoteType = "GLOBALS"
	}

	num, _ := strconv.Atoi(id)
	return core.Emote{
		ID:       id,
		Name:     data.Name,
		Provider: core.FFZ,
		Source:   siteURL + "/emoticon/" + id,
		Owner: &core.User{
			ID:       data.Owner.ProviderID,
			Username: textutil.CompareName(data.Owner.Name, data.Owner.DisplayName),
			Avatar:   avatar(string(core.Twitch), data.Owner.ProviderID),
			Platform: data.Owner.Provider,
			Source:   siteURL + "/channel/" + data.Owner.Name,
		},
		Artist: artist,
		Images: []string{
			emoteImage(num, animated, 1),
			emoteImage(num, animated, 2),
			emoteImage(num, animated, 4),
		},
		Tags:      []string{},
		Channels:  core.Channels{Total: data.UseCount, List: []core.Channel{}},
		CreatedAt: core.ParseTime(data.CreatedAt),
		Type:      emoteType,
		Approved:  data.Status == 1,
		Public:    data.Public,
		Animated:  animated,
		ZeroWidth: data.zeroWidth(),
		Global:    global,
	}, nil
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	const op = "Global Emotes"
	var body apiGlobals
	if err := c.up.GetJSON(ctx, core.FFZ, op, apiBaseURL+"/v1/set/global", &body); err != nil {
		return nil, err
	}

	out := []core.Emotes{}
	for _, setID := range body.DefaultSets {
		set, ok := body.Sets[strconv.Itoa(setID)]
		if !ok {
			continue
		}
		for _, e := range set.Emoticons {
			out = append(out, summary(e))
		}
	}
	return out, nil
}

var roomKinds = map[core.Provider]string{
	core.Twitch:  "id",
	core.YouTube: "yt",
}

func (c *Client) ChannelEmotes(ctx context.Context, channelID string, platform core.Provider) (core.ChannelProvider, error) {
	const op = "User"
	kind, ok := roomKinds[platform]
	if !ok {
		platform, kind = core.Twitch, roomKinds[core.Twitch]
	}
	endpoint := fmt.Sprintf("%s/v1/room/%s/%s", apiBaseURL, kind, upstream.Escape(channelID))

	var body apiRoomEnvelope
	if err := c.up.GetJSON(ctx, core.FFZ, op, endpoint, &body); err != nil {
		return core.ChannelProvider{}, err
	}
	if body.Room == nil {
		return core.ChannelProvider{}, c.up.NotFound(ctx, core.FFZ, op)
	}

	room := body.Room
	source := siteURL + "/channel/" + room.ID
	owner := &core.User{
		ID:       channelID,
		Username: textutil.CompareName(room.ID, room.DisplayName),
		Avatar:   avatar(string(platform), channelID),
		Platform: string(platform),
		Source:   source,
	}

	keys := make([]string, 0, len(body.Sets))
	for k := range body.Sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]core.Set, 0, len(keys))
	for _, k := range keys {
		set := body.Sets[k]
		emotes := make([]core.Emotes, 0, len(set.Emoticons))
		for _, e := range set.Emoticons {
			emotes = append(emotes, summary(e))
		}
		sets = append(sets, core.Set{
			ID:       strconv.Itoa(set.ID),
			Tags:     []string{},
			Source:   source,
			Provider: core.FFZ,
			Owner:    owner,
			MainSet:  set.ID == room.Set,
			Emotes:   emotes,
		})
	}

	bots := room.UserBadges["2"]
	if bots == nil {
		bots = []string{}
	}
	return core.ChannelProvider{Provider: core.FFZ, Bots: bots, Sets: sets}, nil
}

// Set loads a collection, following its pagination.
func (c *Client) Set(ctx context.Context, id string) (core.Set, error) {
	const op = "Set"
	base := fmt.Sprintf("%s/v2/collection/%s?per_page=%d", apiBaseURL, upstream.Escape(id), collectionPageSize)

	var first apiCollection
	if err := c.up.GetJSON(ctx, core.FFZ, op, base, &first); err != nil {
		return core.Set{}, err
	}
	if first.Collection == nil || first.Emotes == nil {
		return core.Set{}, c.up.NotFound(ctx, core.FFZ, op)
	}

	all := first.Emotes
	for page := 2; page <= first.Pages && page <= maxCollectionPages; page++ {
		var next apiCollection
		if err := c.up.GetJSON(ctx, core.FFZ, op, fmt.Sprintf("%s&page=%d", base, page), &next); err != nil {
			// A failed page leaves the set partial rather than failing it.
			continue
		}
		all = append(all, next.Emotes...)
	}

	col := first.Collection
	emotes := make([]core.Emotes, 0, len(all))
	for _, e := range all {
		emotes = append(emotes, summary(e))
	}
	source := siteURL + "/channel/" + col.Owner.Name
	return core.Set{
		ID:       id,
		Name:     col.Title,
		Tags:     []string{},
		Source:   source,
		Provider: core.FFZ,
		Owner: &core.User{
			ID:       col.Owner.ProviderID,
			Username: textutil.CompareName(col.Owner.Name, col.Owner.DisplayName),
			Avatar:   avatar(col.Owner.Provider, col.Owner.ProviderID),
			Platform: string(core.Twitch),
			Source:   source,
		},
		Emotes: emotes,
	}, nil
}
