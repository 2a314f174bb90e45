// Package bttv adapts the BetterTTV REST API.
package bttv

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	apiBaseURL = "https://api.betterttv.net/3"
	cdnBaseURL = "https://cdn.betterttv.net/emote"
	siteURL    = "https://betterttv.com"
	avatarURL  = "https://cdn.frankerfacez.com/avatar/twitch"
)

const defaultGlobalOwner = "NightDev"

// Zero-width overlay emotes; BetterTTV exposes no flag for them.
var zeroWidth = map[string]bool{
	"567b5b520e984428652809b6": true, // SoSnowy
	"5849c9a4f52be01a7ee5f79d": true, // IceCold
	"58487cc6f52be01a7ee5f205": true, // SantaHat
	"5849c9c8f52be01a7ee5f79e": true, // TopHat
	"567b5dc00e984428652809bd": true, // ReinDeer
	"567b5c080e984428652809ba": true, // CandyCane
	"5e76d399d6581c3724c0f0b8": true, // cvMask
	"5e76d338d6581c3724c0f0b2": true, // cvHazmat
}

// IsZeroWidth reports whether id is one of the known overlay emotes.
func IsZeroWidth(id string) bool { return zeroWidth[id] }

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
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ProviderID  string `json:"providerId"`
	Avatar      string `json:"avatar"`
}

type apiEmote struct {
	ID             string   `json:"id"`
	Code           string   `json:"code"`
	ImageType      string   `json:"imageType"`
	Animated       bool     `json:"animated"`
	CreatedAt      string   `json:"createdAt"`
	Global         bool     `json:"global"`
	Sharing        bool     `json:"sharing"`
	ApprovalStatus string   `json:"approvalStatus"`
	User           *apiUser `json:"user"`
}

type apiShared struct {
	ID   string  `json:"id"`
	User apiUser `json:"user"`
}

type apiUserEmotes struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DisplayName   string     `json:"displayName"`
	ProviderID    string     `json:"providerId"`
	Avatar        string     `json:"avatar"`
	Bots          []string   `json:"bots"`
	ChannelEmotes []apiEmote `json:"channelEmotes"`
	SharedEmotes  []apiEmote `json:"sharedEmotes"`
}

func imageURL(id, size string) string {
	return fmt.Sprintf("%s/%s/%s.webp", cdnBaseURL, id, size)
}

func (c *Client) Emote(ctx context.Context, id string) (core.Emote, error) {
	const op = "Emote"
	var data apiEmote
	if err := c.up.GetJSON(ctx, core.BTTV, op, apiBaseURL+"/emotes/"+upstream.Escape(id), &data); err != nil {
		return core.Emote{}, err
	}
	if data.ID == "" && data.Code == "" {
		return core.Emote{}, c.up.NotFound(ctx, core.BTTV, op)
	}

	channels, err := c.Usage(ctx, id, 0, "")
	if err != nil {
		return core.Emote{}, err
	}

	var owner *core.User
	if data.User != nil {
		owner = &core.User{
			ID:       data.User.ProviderID,
			Username: textutil.CompareName(data.User.Name, data.User.DisplayName),
			Avatar:   avatarURL + "/" + data.User.ProviderID,
			Platform: string(core.Twitch),
			Source:   siteURL + "/users/" + data.User.ID,
		}
	}

	_, global := c.globals.GlobalEmote(ctx, core.BTTV, id)
	emoteType := "CHANNEL"
	if data.Global {
		emoteType = "GLOBAL"
	}

	return core.Emote{
		ID:       id,
		Name:     data.Code,
		Provider: core.BTTV,
		Source:   siteURL + "/emotes/" + id,
		Owner:    owner,
		Images: []string{
			imageURL(id, "1x"),
			imageURL(id, "2x"),
			imageURL(id, "3x"),
		},
		Tags:      []string{},
		Channels:  channels,
		CreatedAt: core.ParseTime(data.CreatedAt),
		Type:      emoteType,
		Approved:  data.ApprovalStatus == "APPROVED" || data.ApprovalStatus == "AUTO_APPROVED",
		Public:    data.Sharing,
		Animated:  data.Animated,
		ZeroWidth: IsZeroWidth(id),
		Global:    global || data.Global,
	}, nil
}

// Usage pages through the channels sharing an emote with the before cursor.
func (c *Client) Usage(ctx context.Context, emoteID string, _ int, before string) (core.Channels, error) {
	const op = "Channels"
	endpoint := apiBaseURL + "/emotes/" + upstream.Escape(emoteID) + "/shared"
	if before != "" {
		endpoint += "?" + url.Values{"before": {before}}.Encode()
	}

	var data []apiShared
	resp, err := c.up.DoJSON(ctx, upstream.Request{Provider: core.BTTV, Op: op, URL: endpoint}, &data)
	if err != nil {
		return core.Channels{}, err
	}
	if data == nil {
		return core.Channels{}, c.up.ServerError(ctx, core.BTTV, op)
	}

	total, _ := strconv.Atoi(resp.Header.Get("x-total"))
	list := make([]core.Channel, 0, len(data))
	for _, item := range data {
		list = append(list, core.Channel{
			ID:       item.User.ProviderID,
			PosID:    item.ID,
			Avatar:   item.User.Avatar,
			Username: textutil.CompareName(item.User.Name, item.User.DisplayName),
			Platform: string(core.Twitch),
		})
	}
	return core.Channels{Total: total, List: list}, nil
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	const op = "Global Emotes"
	var data []apiEmote
	if err := c.up.GetJSON(ctx, core.BTTV, op, apiBaseURL+"/cached/emotes/global", &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, c.up.ServerError(ctx, core.BTTV, op)
	}

	out := make([]core.Emotes, 0, len(data))
	for _, e := range data {
		owner := defaultGlobalOwner
		if e.User != nil {
			if name := textutil.CompareName(e.User.Name, e.User.DisplayName); name != "" {
				owner = name
			}
		}
		out = append(out, core.Emotes{
			ID:        e.ID,
			Name:      e.Code,
			Image:     imageURL(e.ID, "3x"),
			Owner:     owner,
			ZeroWidth: IsZeroWidth(e.ID),
			Provider:  core.BTTV,
		})
	}
	return out, nil
}

func (c *Client) ChannelEmotes(ctx context.Context, channelID string, platform core.Provider) (core.ChannelProvider, error) {
	const op = "Emotes"
	if platform != core.YouTube {
		platform = core.Twitch
	}
	endpoint := fmt.Sprintf("%s/cached/users/%s/%s", apiBaseURL, platform, upstream.Escape(channelID))

	var data apiUserEmotes
	if err := c.up.GetJSON(ctx, core.BTTV, op, endpoint, &data); err != nil {
		return core.ChannelProvider{}, err
	}
	if data.ID == "" {
		return core.ChannelProvider{}, c.up.NotFound(ctx, core.BTTV, op)
	}

	bots := data.Bots
	if bots == nil {
		bots = []string{}
	}
	source := siteURL + "/users/" + data.ID
	return core.ChannelProvider{
		Provider: core.BTTV,
		Bots:     bots,
		Sets: []core.Set{{
			ID:       data.ID,
			MainSet:  true,
			Tags:     []string{},
			Source:   source,
			Provider: core.BTTV,
			Owner: &core.User{
				ID:       channelID,
				Source:   source,
				Avatar:   data.Avatar,
				Platform: string(platform),
			},
			Emotes: setEmotes(data),
		}},
	}, nil
}

func (c *Client) Set(ctx context.Context, id string) (core.Set, error) {
	const op = "Set"
	var data apiUserEmotes
	if err := c.up.GetJSON(ctx, core.BTTV, op, apiBaseURL+"/users/"+upstream.Escape(id), &data); err != nil {
		return core.Set{}, err
	}
	if data.ID == "" {
		return core.Set{}, c.up.NotFound(ctx, core.BTTV, op)
	}

	name := "BetterTTV"
	if data.Name != "" && data.DisplayName != "" {
		name = textutil.CompareName(data.Name, data.DisplayName)
	}
	source := siteURL + "/users/" + data.ID
	return core.Set{
		ID:       data.ID,
		Name:     c.up.T(ctx, "set.title", "user", name),
		Tags:     []string{},
		Source:   source,
		Provider: core.BTTV,
		Owner: &core.User{
			ID:       data.ProviderID,
			Username: name,
			Avatar:   avatarURL + "/" + data.ProviderID,
			Source:   source,
			Platform: string(core.Twitch),
		},
		Emotes: setEmotes(data),
	}, nil
}

func setEmotes(data apiUserEmotes) []core.Emotes {
	all := make([]apiEmote, 0, len(data.ChannelEmotes)+len(data.SharedEmotes))
	all = append(all, data.ChannelEmotes...)
	all = append(all, data.SharedEmotes...)

	out := make([]core.Emotes, 0, len(all))
	for _, e := range all {
		var owner string
		if e.User != nil {
			owner = textutil.CompareName(e.User.Name, e.User.DisplayName)
		}
		out = append(out, core.Emotes{
			ID:        e.ID,
			Name:      e.Code,
			Owner:     owner,
			Image:     imageURL(e.ID, "3x"),
			ZeroWidth: IsZeroWidth(e.ID),
			Provider:  core.BTTV,
		})
	}
	return out
}
