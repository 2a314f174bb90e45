// Package twitch adapts Twitch emote, badge and channel data. Emotes and sets
// come from the ivr.fi and potat.app mirrors, badges and search from the
// public GraphQL endpoint.
package twitch

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	potatURL  = "https://api.potat.app"
	ivrURL    = "https://api.ivr.fi/v2"
	gqlURL    = "https://gql.twitch.tv/gql"
	infoURL   = "https://api.spanix.team"
	cdnURL    = "https://static-cdn.jtvnw.net"
	flairURL  = "https://badge-flair-twitch-subs-aws.s3-us-west-2.amazonaws.com"
	siteURL   = "https://twitch.tv"
	avatarURL = "https://cdn.frankerfacez.com/avatar/twitch"
)

// DefaultClientID is the public client id the Twitch web player sends.
const DefaultClientID = "kimne78kx3ncx6brgo4mv6wki5h1ko"

const (
	officialID   = "12826"
	officialName = "Twitch"
	globalSetID  = "0"
)

var variantSuffix = regexp.MustCompile(`_[A-Z]{2}$`)

type Options struct {
	ClientID string
	Origins  providers.OriginIndex
}

type Client struct {
	up       *upstream.Client
	globals  providers.GlobalIndex
	origins  providers.OriginIndex
	clientID string
}

func New(up *upstream.Client, globals providers.GlobalIndex, opts Options) *Client {
	if globals == nil {
		globals = providers.NoGlobals{}
	}
	if opts.Origins == nil {
		opts.Origins = providers.NoOrigins{}
	}
	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	return &Client{up: up, globals: globals, origins: opts.Origins, clientID: opts.ClientID}
}

func official() *core.User {
	return &core.User{
		ID:       officialID,
		Username: officialName,
		Avatar:   avatarURL + "/" + officialID,
		Platform: string(core.Twitch),
		Source:   siteURL + "/" + officialName,
	}
}

func userOf(id, username, avatar string) *core.User {
	if avatar == "" {
		avatar = avatarURL + "/" + id
	}
	return &core.User{
		ID:       id,
		Username: username,
		Avatar:   avatar,
		Platform: string(core.Twitch),
		Source:   siteURL + "/" + username,
	}
}

func emoteImage(id, scale string) string {
	return fmt.Sprintf("%s/emoticons/v2/%s/default/dark/%s", cdnURL, id, scale)
}

type apiArtist struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"displayName"`
}

func (a *apiArtist) name() string {
	if a == nil {
		return ""
	}
	return textutil.CompareName(a.Login, a.DisplayName)
}

type apiEmote struct {
	ChannelID      string     `json:"channelID"`
	ChannelLogin   string     `json:"channelLogin"`
	ChannelName    string     `json:"channelName"`
	EmoteID        string     `json:"emoteID"`
	EmoteCode      string     `json:"emoteCode"`
	EmoteSetID     string     `json:"emoteSetID"`
	EmoteAssetType string     `json:"emoteAssetType"`
	Artist         *apiArtist `json:"artist"`
	EmoteTier      *int       `json:"emoteTier"`
	EmoteBitCost   *int       `json:"emoteBitCost"`
	EmoteState     string     `json:"emoteState"`
	EmoteType      string     `json:"emoteType"`
}

type apiSetEmote struct {
	Code      string     `json:"code"`
	ID        string     `json:"id"`
	Artist    *apiArtist `json:"artist"`
	Type      string     `json:"type"`
	AssetType string     `json:"assetType"`
}

type apiSet struct {
	SetID        string        `json:"setID"`
	ChannelName  string        `json:"channelName"`
	ChannelID    string        `json:"channelID"`
	ChannelLogin string        `json:"channelLogin"`
	Tier         string        `json:"tier"`
	EmoteList    []apiSetEmote `json:"emoteList"`
}

type apiUser struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"displayName"`
	Logo            string `json:"logo"`
	ProfileImageURL string `json:"profileImageURL"`
}

// fetchEmote asks potat.app first and falls back to ivr.fi only when
// potat.app fails. An empty answer or a 404 from potat.app is final.
func (c *Client) fetchEmote(ctx context.Context, op, id string) (*apiEmote, error) {
	var primary struct {
		Data []apiEmote `json:"data"`
	}
	err := c.up.GetJSON(ctx, core.Twitch, op, potatURL+"/twitch/emotes?id="+upstream.Query(id), &primary)
	if err == nil {
		if len(primary.Data) == 0 {
			return nil, c.up.NotFound(ctx, core.Twitch, op)
		}
		return &primary.Data[0], nil
	}
	if core.IsNotFound(err) {
		return nil, c.up.NotFound(ctx, core.Twitch, op)
	}

	var fallback apiEmote
	if err := c.up.GetJSON(ctx, core.Twitch, op, ivrURL+"/twitch/emotes/"+upstream.Escape(id)+"?id=true", &fallback); err != nil {
		return nil, err
	}
	if fallback.EmoteCode == "" {
		return nil, c.up.NotFound(ctx, core.Twitch, op)
	}
	return &fallback, nil
}

// originImages expands an archived image URL into the scale list the page
// shows. Hosts without scale variants yield a single image.
func originImages(raw string) []string {
	switch {
	case strings.Contains(raw, "i.ivr.fi"):
		out := make([]string, 0, 3)
		for n := 1; n <= 3; n++ {
			out = append(out, strings.Replace(raw, "_3x.", fmt.Sprintf("_%dx.", n), 1))
		}
		return out
	case strings.Contains(raw, "i.imgur.com"):
		return []string{raw}
	}
	return nil
}

func (c *Client) Emote(ctx context.Context, emoteID string) (core.Emote, error) {
	const op = "Emote"
	data, err := c.fetchEmote(ctx, op, emoteID)
	if err != nil {
		return core.Emote{}, err
	}

	var owner *core.User
	username := officialName
	if data.EmoteSetID == globalSetID {
		owner = official()
	} else {
		username = textutil.CompareName(data.ChannelLogin, data.ChannelName)
		if data.ChannelID != "" {
			owner = userOf(data.ChannelID, username, "")
		}
	}

	var artist *core.User
	if name := data.Artist.name(); name != "" {
		artist = userOf(data.Artist.ID, name, "")
	}

	var images []string
	if raw, ok := c.origins.OriginImage(ctx, core.Twitch, emoteID); ok {
		images = originImages(raw)
	}
	if images == nil {
		images = []string{emoteImage(emoteID, "1.0"), emoteImage(emoteID, "2.0"), emoteImage(emoteID, "3.0")}
	}

	var altImage string
	if variantSuffix.MatchString(emoteID) {
		if raw, ok := c.origins.OriginImage(ctx, core.Twitch, emoteID[:len(emoteID)-3]); ok {
			altImage = raw
		}
	}

	source := siteURL + "/" + username
	if data.EmoteType == "SUBSCRIPTIONS" {
		source = siteURL + "/subs/" + username
	}
	_, global := c.globals.GlobalEmote(ctx, core.Twitch, emoteID)

	return core.Emote{
		ID:       emoteID,
		Name:     data.EmoteCode,
		Provider: core.Twitch,
		Source:   source,
		Owner:    owner,
		Artist:   artist,
		Images:   images,
		AltImage: altImage,
		SetID:    data.EmoteSetID,
		Tags:     []string{},
		Channels: core.Channels{List: []core.Channel{}},
		Type:     data.EmoteType,
		Tier:     data.EmoteTier,
		Cost:     data.EmoteBitCost,
		Approved: data.EmoteState != "PENDING",
		Public:   data.EmoteState == "ACTIVE",
		Animated: data.EmoteAssetType == "ANIMATED",
		Global:   global,
		Deleted:  data.EmoteState == "DELETED",
	}, nil
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	set, err := c.set(ctx, "Global Emotes", globalSetID)
	if err != nil {
		return nil, err
	}
	return set.Emotes, nil
}

func (c *Client) Set(ctx context.Context, setID string) (core.Set, error) {
	return c.set(ctx, "Set", setID)
}

func (c *Client) set(ctx context.Context, op, setID string) (core.Set, error) {
	var data []apiSet
	if err := c.up.GetJSON(ctx, core.Twitch, op, ivrURL+"/twitch/emotes/sets?set_id="+upstream.Query(setID), &data); err != nil {
		return core.Set{}, err
	}
	if len(data) == 0 {
		return core.Set{}, c.up.NotFound(ctx, core.Twitch, op)
	}
	set := data[0]

	owner := official()
	if set.ChannelID != "" {
		owner = userOf(set.ChannelID, textutil.CompareName(set.ChannelLogin, set.ChannelName), "")
	}

	var subtitle string
	var firstType string
	if len(set.EmoteList) > 0 {
		firstType = set.EmoteList[0].Type
	}
	switch {
	case set.ChannelID == "":
		subtitle = c.up.T(ctx, "set.global")
	case set.Tier != "":
		subtitle = c.up.T(ctx, "set.tier", "tier", set.Tier)
	case firstType == "FOLLOWER":
		subtitle = c.up.T(ctx, "set.follower")
	case firstType == "BITS_BADGE_TIERS":
		subtitle = c.up.T(ctx, "set.bits")
	}

	source := siteURL + "/" + owner.Username
	if set.Tier != "" {
		source = siteURL + "/subs/" + owner.Username
	}

	emotes := make([]core.Emotes, 0, len(set.EmoteList))
	for _, e := range set.EmoteList {
		emotes = append(emotes, core.Emotes{
			ID:       e.ID,
			Name:     e.Code,
			Image:    emoteImage(e.ID, "3.0"),
			Owner:    e.Artist.name(),
			Provider: core.Twitch,
		})
	}

	return core.Set{
		ID:       setID,
		Subtitle: subtitle,
		Tags:     []string{},
		Owner:    owner,
		Emotes:   emotes,
		Source:   source,
		Provider: core.Twitch,
	}, nil
}

// User looks a Twitch account up by login, or by numeric id when byID is set.
func (c *Client) User(ctx context.Context, user string, byID bool) (core.User, error) {
	const op = "User"
	key := "login"
	if byID {
		key = "id"
	}
	var data []apiUser
	if err := c.up.GetJSON(ctx, core.Twitch, op, ivrURL+"/twitch/user?"+key+"="+upstream.Query(user), &data); err != nil {
		return core.User{}, err
	}
	if len(data) == 0 {
		return core.User{}, c.up.NotFound(ctx, core.Twitch, op)
	}
	u := data[0]
	return *userOf(u.ID, textutil.CompareName(u.Login, u.DisplayName), u.Logo), nil
}

// acceptLanguage prefers the caller's locale and falls back to US English.
func acceptLanguage(ctx context.Context) string {
	if loc := locale.FromContext(ctx); loc != "" {
		return loc + ",en-US;q=0.9"
	}
	return "en-US;q=0.9"
}

func (c *Client) gql(ctx context.Context, op string, q upstream.GraphQLRequest, out any) error {
	header := http.Header{}
	header.Set("Client-ID", c.clientID)
	header.Set("Accept-Language", acceptLanguage(ctx))
	return c.up.GraphQL(ctx, core.Twitch, op, gqlURL, header, q, out)
}

const searchQuery = `query Channels($query: String!, $first: Int) {
	searchUsers(userQuery: $query, first: $first) {
		edges {
			node {
				id
				login
				displayName
				profileImageURL(width: 600)
			}
		}
	}
}`

const defaultSearch = 50

func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.User, error) {
	const op = "Channels"
	if limit <= 0 {
		limit = defaultSearch
	}
	var data struct {
		SearchUsers *struct {
			Edges []struct {
				Node apiUser `json:"node"`
			} `json:"edges"`
		} `json:"searchUsers"`
	}
	err := c.gql(ctx, op, upstream.GraphQLRequest{
		OperationName: "Channels",
		Query:         searchQuery,
		Variables:     map[string]any{"query": query, "first": limit},
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.SearchUsers == nil {
		return nil, c.up.NotFound(ctx, core.Twitch, op)
	}

	out := make([]core.User, 0, len(data.SearchUsers.Edges))
	for _, edge := range data.SearchUsers.Edges {
		u := edge.Node
		out = append(out, core.User{
			ID:       u.ID,
			Username: textutil.CompareName(u.Login, u.DisplayName),
			Avatar:   u.ProfileImageURL,
			Platform: string(core.Twitch),
			Source:   siteURL + "/" + u.Login,
		})
	}
	return out, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
