// Package seventv adapts the 7TV v3 GraphQL and REST APIs. 7TV ids are ULIDs;
// callers convert legacy ObjectIDs with idcodec before calling in.
package seventv

import (
	"context"
	"fmt"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	gqlURL     = "https://7tv.io/v3/gql"
	restURL    = "https://7tv.io/v3"
	cdnBaseURL = "https://cdn.7tv.app/emote"
	siteURL    = "https://7tv.app"
)

const (
	nullUserID   = "00000000000000000000000000"
	channelLimit = 18
)

// Set names 7TV generates for personal sets are hidden.
const generatedSetSuffix = "'s Emotes"

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

type apiConnection struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	EmoteSetID  string `json:"emote_set_id"`
}

type apiUser struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	DisplayName string          `json:"display_name"`
	AvatarURL   string          `json:"avatar_url"`
	Connections []apiConnection `json:"connections"`
	EmoteSets   []apiSet        `json:"emote_sets"`
}

type apiActiveEmote struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Flags int      `json:"flags"`
		Owner *apiUser `json:"owner"`
	} `json:"data"`
}

type apiSet struct {
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Tags   []string         `json:"tags"`
	Owner  *apiUser         `json:"owner"`
	Emotes []apiActiveEmote `json:"emotes"`
}

type apiChannels struct {
	Total int       `json:"total"`
	Items []apiUser `json:"items"`
}

type apiEmote struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Tags      []string    `json:"tags"`
	Flags     int         `json:"flags"`
	Listed    bool        `json:"listed"`
	Animated  bool        `json:"animated"`
	CreatedAt flexTime    `json:"created_at"`
	Owner     *apiUser    `json:"owner"`
	Channels  apiChannels `json:"channels"`
}

func isZeroWidth(flags int) bool { return flags == 256 || flags == 257 }

func imageURL(id, size string) string {
	return fmt.Sprintf("%s/%s/%s.avif", cdnBaseURL, id, size)
}

var connectionOrder = []string{"TWITCH", "KICK", "YOUTUBE"}

// userFrom maps a 7TV user to the platform account it is linked to, preferring
// Twitch, then Kick, then YouTube. Unlinked users keep their 7TV identity.
func userFrom(u *apiUser) *core.User {
	if u == nil || u.ID == "" || u.ID == nullUserID {
		return nil
	}
	source := siteURL + "/users/" + u.ID
	for _, platform := range connectionOrder {
		for _, conn := range u.Connections {
			if conn.Platform != platform {
				continue
			}
			return &core.User{
				ID:       conn.ID,
				Username: textutil.CompareName(conn.Username, conn.DisplayName),
				Avatar:   u.AvatarURL,
				Platform: strings.ToLower(conn.Platform),
				Source:   source,
			}
		}
	}
	return &core.User{
		ID:       u.ID,
		Username: textutil.CompareName(u.Username, u.DisplayName),
		Avatar:   u.AvatarURL,
		Platform: string(core.SevenTV),
		Source:   source,
	}
}

func channelsFrom(in apiChannels) core.Channels {
	list := make([]core.Channel, 0, len(in.Items))
	for i := range in.Items {
		u := userFrom(&in.Items[i])
		if u == nil {
			continue
		}
		list = append(list, core.Channel{ID: u.ID, Username: u.Username, Avatar: u.Avatar, Platform: u.Platform})
	}
	return core.Channels{Total: in.Total, List: list}
}

func summary(e apiActiveEmote) core.Emotes {
	var owner string
	if o := e.Data.Owner; o != nil && o.ID != nullUserID {
		owner = textutil.CompareName(o.Username, o.DisplayName)
	}
	return core.Emotes{
		ID:        e.ID,
		Name:      e.Name,
		Image:     imageURL(e.ID, "4x"),
		Owner:     owner,
		ZeroWidth: isZeroWidth(e.Data.Flags),
		Provider:  core.SevenTV,
	}
}

func setName(name string) string {
	if strings.HasSuffix(name, generatedSetSuffix) {
		return ""
	}
	return name
}

const userFields = `id
	username
	display_name
	avatar_url
	connections { id platform username display_name }`

var emoteQuery = `query Emote($id: ObjectID!, $page: Int, $limit: Int) {
	emote(id: $id) {
		id
		name
		tags
		flags
		listed
		animated
		created_at
		owner { ` + userFields + ` }
		channels(page: $page, limit: $limit) { total items { ` + userFields + ` } }
	}
}`

var channelsQuery = `query Emote($id: ObjectID!, $page: Int, $limit: Int) {
	emote(id: $id) {
		channels(page: $page, limit: $limit) { total items { ` + userFields + ` } }
	}
}`

var userEmotesQuery = `query Emotes($id: String!, $platform: ConnectionPlatform!) {
	userByConnection(id: $id, platform: $platform) {
		id
		avatar_url
		username
		display_name
		connections { id platform username display_name emote_set_id }
		emote_sets {
			id
			name
			emotes { id name data { flags owner { id username display_name } } }
		}
	}
}`

func (c *Client) Emote(ctx context.Context, id string) (core.Emote, error) {
	const op = "Emote"
	var data struct {
		Emote *apiEmote `json:"emote"`
	}
	q := upstream.GraphQLRequest{
		OperationName: "Emote",
		Query:         emoteQuery,
		Variables:     map[string]any{"id": id, "page": 1, "limit": channelLimit},
	}
	if err := c.up.GraphQL(ctx, core.SevenTV, op, gqlURL, nil, q, &data); err != nil {
		return core.Emote{}, err
	}
	e := data.Emote
	if e == nil {
		return core.Emote{}, c.up.NotFound(ctx, core.SevenTV, op)
	}

	_, global := c.globals.GlobalEmote(ctx, core.SevenTV, id)
	emoteType := "CHANNEL"
	if global {
		emoteType = "GLOBALS"
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}

	return core.Emote{
		ID:       id,
		Name:     e.Name,
		Provider: core.SevenTV,
		Source:   siteURL + "/emotes/" + id,
		Owner:    userFrom(e.Owner),
		Images: []string{
			imageURL(id, "1x"),
			imageURL(id, "2x"),
			imageURL(id, "3x"),
			imageURL(id, "4x"),
		},
		Tags:      tags,
		Channels:  channelsFrom(e.Channels),
		CreatedAt: e.CreatedAt.Ptr(),
		Type:      emoteType,
		Approved:  e.Listed,
		Public:    e.Flags%2 == 0,
		Animated:  e.Animated,
		ZeroWidth: isZeroWidth(e.Flags),
		Global:    global,
	}, nil
}

// Usage returns one page of channels that enabled the emote.
func (c *Client) Usage(ctx context.Context, emoteID string, page int, _ string) (core.Channels, error) {
	const op = "Channels"
	if page < 1 {
		page = 1
	}
	var data struct {
		Emote *apiEmote `json:"emote"`
	}
	q := upstream.GraphQLRequest{
		OperationName: "Emote",
		Query:         channelsQuery,
		Variables:     map[string]any{"id": emoteID, "page": page, "limit": channelLimit},
	}
	if err := c.up.GraphQL(ctx, core.SevenTV, op, gqlURL, nil, q, &data); err != nil {
		return core.Channels{}, err
	}
	if data.Emote == nil {
		return core.Channels{}, c.up.NotFound(ctx, core.SevenTV, op)
	}
	return channelsFrom(data.Emote.Channels), nil
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	const op = "Global Emotes"
	var set apiSet
	if err := c.up.GetJSON(ctx, core.SevenTV, op, restURL+"/emote-sets/global", &set); err != nil {
		return nil, err
	}
	if set.ID == "" {
		return nil, c.up.NotFound(ctx, core.SevenTV, op)
	}

	out := make([]core.Emotes, 0, len(set.Emotes))
	for _, e := range set.Emotes {
		s := summary(e)
		s.Owner = ""
		if u := userFrom(e.Data.Owner); u != nil {
			s.Owner = u.Username
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Client) ChannelEmotes(ctx context.Context, channelID string, platform core.Provider) (core.ChannelProvider, error) {
	const op = "User"
	switch platform {
	case core.Twitch, core.YouTube, core.Kick:
	default:
		platform = core.Twitch
	}
	connPlatform := strings.ToUpper(string(platform))

	var data struct {
		User *apiUser `json:"userByConnection"`
	}
	q := upstream.GraphQLRequest{
		OperationName: "Emotes",
		Query:         userEmotesQuery,
		Variables:     map[string]any{"id": channelID, "platform": connPlatform},
	}
	if err := c.up.GraphQL(ctx, core.SevenTV, op, gqlURL, nil, q, &data); err != nil {
		return core.ChannelProvider{}, err
	}
	u := data.User
	if u == nil || u.ID == nullUserID {
		return core.ChannelProvider{}, c.up.NotFound(ctx, core.SevenTV, op)
	}

	active := map[string]bool{}
	for _, conn := range u.Connections {
		if conn.Platform == connPlatform && conn.EmoteSetID != "" {
			active[conn.EmoteSetID] = true
		}
	}

	owner := userFrom(u)
	source := siteURL + "/users/" + u.ID + "/emote-sets"
	sets := make([]core.Set, 0, len(u.EmoteSets))
	for _, set := range u.EmoteSets {
		emotes := make([]core.Emotes, 0, len(set.Emotes))
		for _, e := range set.Emotes {
			emotes = append(emotes, summary(e))
		}
		sets = append(sets, core.Set{
			ID:       set.ID,
			Name:     setName(set.Name),
			Tags:     []string{},
			Source:   source,
			Provider: core.SevenTV,
			MainSet:  active[set.ID],
			Owner:    owner,
			Emotes:   emotes,
		})
	}
	return core.ChannelProvider{Provider: core.SevenTV, Bots: []string{}, Sets: sets}, nil
}

func (c *Client) Set(ctx context.Context, id string) (core.Set, error) {
	const op = "Set"
	var set apiSet
	if err := c.up.GetJSON(ctx, core.SevenTV, op, restURL+"/emote-sets/"+upstream.Escape(id), &set); err != nil {
		return core.Set{}, err
	}
	if set.ID == "" {
		return core.Set{}, c.up.NotFound(ctx, core.SevenTV, op)
	}

	emotes := make([]core.Emotes, 0, len(set.Emotes))
	for _, e := range set.Emotes {
		emotes = append(emotes, summary(e))
	}
	tags := set.Tags
	if tags == nil {
		tags = []string{}
	}
	return core.Set{
		ID:       set.ID,
		Name:     setName(set.Name),
		Tags:     tags,
		Owner:    userFrom(set.Owner),
		Source:   siteURL + "/emote-sets/" + id,
		Provider: core.SevenTV,
		Emotes:   emotes,
	}, nil
}
