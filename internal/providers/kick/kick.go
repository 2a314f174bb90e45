// Package kick adapts Kick's public JSON endpoints.
package kick

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	siteURL  = "https://kick.com"
	filesURL = "https://files.kick.com"
)

const (
	defaultAvatar = "https://kick.com/img/default-profile-pictures/default2.jpeg"
	defaultSearch = 50
)

// The official Kick account owns global emotes and badges.
var officialOwner = core.User{
	ID:       "6843639",
	Username: "Kick",
	Avatar:   "https://files.kick.com/images/user/6937907/profile_image/conversion/08dd8362-0244-4b28-955c-09909fbab507-fullsize.webp",
	Platform: string(core.Kick),
	Source:   "https://kick.com/Kick",
}

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
	ID         int     `json:"id"`
	Username   string  `json:"username"`
	Bio        *string `json:"bio"`
	ProfilePic *string `json:"profile_pic"`
	// The search endpoint uses camelCase.
	ProfilePicCamel *string `json:"profilePic"`
	Instagram       *string `json:"instagram"`
	Twitter         *string `json:"twitter"`
	YouTube         *string `json:"youtube"`
	Discord         *string `json:"discord"`
	TikTok          *string `json:"tiktok"`
	Facebook        *string `json:"facebook"`
}

func (u apiUser) avatar() string {
	for _, p := range []*string{u.ProfilePic, u.ProfilePicCamel} {
		if p != nil && *p != "" {
			return *p
		}
	}
	return defaultAvatar
}

type apiEmote struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	SubscribersOnly bool   `json:"subscribers_only"`
}

// apiEmoteGroup is one entry of /emotes/{slug}: the channel's own group
// carries user_id, global and emoji groups do not.
type apiEmoteGroup struct {
	UserID int        `json:"user_id"`
	Slug   string     `json:"slug"`
	User   apiUser    `json:"user"`
	Emotes []apiEmote `json:"emotes"`
}

type apiImage struct {
	URL        string `json:"url"`
	Src        string `json:"src"`
	Responsive string `json:"responsive"`
}

type apiSubBadge struct {
	ID         int      `json:"id"`
	Months     int      `json:"months"`
	BadgeImage apiImage `json:"badge_image"`
}

type apiCategory struct {
	Name   string    `json:"name"`
	Slug   string    `json:"slug"`
	Banner *apiImage `json:"banner"`
}

type apiLivestream struct {
	SessionTitle string   `json:"session_title"`
	CreatedAt    string   `json:"created_at"`
	LangISO      string   `json:"lang_iso"`
	IsMature     bool     `json:"is_mature"`
	ViewerCount  int      `json:"viewer_count"`
	Thumbnail    apiImage `json:"thumbnail"`
}

type apiChannel struct {
	ID               int            `json:"id"`
	UserID           int            `json:"user_id"`
	Slug             string         `json:"slug"`
	IsAffiliate      bool           `json:"is_affiliate"`
	FollowersCount   int            `json:"followersCount"`
	SubscriberBadges []apiSubBadge  `json:"subscriber_badges"`
	BannerImage      *apiImage      `json:"banner_image"`
	OfflineBanner    *apiImage      `json:"offline_banner_image"`
	RecentCategories []apiCategory  `json:"recent_categories"`
	Livestream       *apiLivestream `json:"livestream"`
	User             apiUser        `json:"user"`
	Chatroom         struct {
		CreatedAt string `json:"created_at"`
	} `json:"chatroom"`
	Verified *struct {
		ID int `json:"id"`
	} `json:"verified"`
}

func emoteImage(id string) string {
	return fmt.Sprintf("%s/emotes/%s/fullsize", filesURL, id)
}

func subBadgeImage(id int) string {
	return fmt.Sprintf("%s/channel_subscriber_badges/%d/original", filesURL, id)
}

// Emote resolves "id" (global or bare) or "id/channel" emote ids.
func (c *Client) Emote(ctx context.Context, emoteID string) (core.Emote, error) {
	const op = "Emote"
	id, channel, _ := strings.Cut(emoteID, "/")

	var (
		name     string
		owner    *core.User
		global   bool
		subsOnly bool
	)

	switch {
	case channel != "":
		groups, err := c.emoteGroups(ctx, op, channel)
		if err != nil {
			return core.Emote{}, err
		}
		if len(groups) == 0 {
			return core.Emote{}, c.up.NotFound(ctx, core.Kick, op)
		}
		found := false
		for _, g := range groups {
			for _, e := range g.Emotes {
				if strconv.Itoa(e.ID) == id {
					name, subsOnly, found = e.Name, e.SubscribersOnly, true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return core.Emote{}, c.up.NotFound(ctx, core.Kick, op)
		}
		first := groups[0]
		username := textutil.CompareName(first.Slug, first.User.Username)
		owner = &core.User{
			ID:       strconv.Itoa(first.UserID),
			Username: username,
			Avatar:   first.User.avatar(),
			Platform: string(core.Kick),
			Source:   siteURL + "/" + username,
		}
	default:
		if g, ok := c.globals.GlobalEmote(ctx, core.Kick, id); ok {
			u := officialOwner
			name, owner, global = g.Name, &u, true
			break
		}
		ok, err := c.up.Exists(ctx, core.Kick, op, emoteImage(id))
		if err != nil {
			return core.Emote{}, err
		}
		if !ok {
			return core.Emote{}, c.up.NotFound(ctx, core.Kick, op)
		}
	}

	var source string
	if owner != nil {
		source = siteURL + "/" + owner.Username
		if subsOnly {
			source += "/subscribe"
		}
	}
	emoteType := "CHANNEL"
	if global {
		emoteType = "GLOBALS"
	}
	image := emoteImage(id)
	return core.Emote{
		ID:       strings.ToLower(emoteID),
		Name:     name,
		Provider: core.Kick,
		Source:   source,
		Owner:    owner,
		Images:   []string{image, image, image},
		Tags:     []string{},
		Channels: core.Channels{List: []core.Channel{}},
		Type:     emoteType,
		Approved: true,
		Public:   true,
		Global:   global,
	}, nil
}

// emoteGroups returns the channel-owned groups of /emotes/{slug}.
func (c *Client) emoteGroups(ctx context.Context, op, slug string) ([]apiEmoteGroup, error) {
	var data []apiEmoteGroup
	if err := c.up.GetJSON(ctx, core.Kick, op, siteURL+"/emotes/"+upstream.Escape(slug), &data); err != nil {
		return nil, err
	}
	out := data[:0]
	for _, g := range data {
		if g.UserID != 0 && g.Emotes != nil {
			out = append(out, g)
		}
	}
	return out, nil
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	const op = "Global Emotes"
	var data []struct {
		Emotes []apiEmote `json:"emotes"`
	}
	if err := c.up.GetJSON(ctx, core.Kick, op, siteURL+"/emotes/kick", &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, c.up.ServerError(ctx, core.Kick, op)
	}

	out := []core.Emotes{}
	for _, group := range data {
		for _, e := range group.Emotes {
			id := strconv.Itoa(e.ID)
			out = append(out, core.Emotes{ID: id, Name: e.Name, Image: emoteImage(id), Provider: core.Kick})
		}
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]core.User, error) {
	const op = "Channels"
	if limit <= 0 {
		limit = defaultSearch
	}
	var data struct {
		Channels []apiChannel `json:"channels"`
	}
	if err := c.up.GetJSON(ctx, core.Kick, op, siteURL+"/api/search?searched_word="+upstream.Query(query), &data); err != nil {
		return nil, err
	}
	if data.Channels == nil {
		return nil, c.up.NotFound(ctx, core.Kick, op)
	}

	if len(data.Channels) > limit {
		data.Channels = data.Channels[:limit]
	}
	out := make([]core.User, 0, len(data.Channels))
	for _, ch := range data.Channels {
		out = append(out, core.User{
			ID:       strconv.Itoa(ch.UserID),
			Username: textutil.CompareName(ch.Slug, ch.User.Username),
			Avatar:   ch.User.avatar(),
			Platform: string(core.Kick),
			Source:   siteURL + "/" + ch.Slug,
		})
	}
	return out, nil
}
