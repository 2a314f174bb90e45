// Package youtube adapts YouTube's custom emoji CDN and channel pages.
// YouTube has no emote API: globals come from a maintained emoji list and
// channel emotes are validated by probing the image CDN.
package youtube

import (
	"context"
	"fmt"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/upstream"
)

var (
	imageBaseURL = "https://yt3.ggpht.com"
	emojiListURL = "https://gist.githubusercontent.com/ZonianMidian/fc833761e7d31a3e64cd0ff288d61067/raw/ad5b3332ecb837ae77205f8d9062d918d52a9ece/youtube_emojis.json"
	siteURL      = "https://www.youtube.com"
)

// The official YouTube channel owns every global emoji.
var officialOwner = core.User{
	ID:       "UCBR8-60-B28hp2BmDPdntcQ",
	Username: "YouTube",
	Avatar:   "https://yt3.ggpht.com/Bg5wS82KGryRmcsn1YbPThtbXoTmj2XJ9_7LmuE2RF6wbKJBkovfRypbSz6UD3gEu_nHiwGZtQ=s300",
	Platform: string(core.YouTube),
	Source:   "https://youtube.com/@YouTube",
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

func imageURL(id string, size int) string {
	return fmt.Sprintf("%s/%s=s%d-c", imageBaseURL, id, size)
}

// Emote builds a YouTube emote. Globals carry their listed name; channel
// emotes are nameless and are confirmed by fetching the 48px image.
func (c *Client) Emote(ctx context.Context, id string) (core.Emote, error) {
	const op = "Emote"
	global, isGlobal := c.globals.GlobalEmote(ctx, core.YouTube, id)
	if !isGlobal {
		ok, err := c.up.Exists(ctx, core.YouTube, op, imageURL(id, 48))
		if err != nil {
			return core.Emote{}, err
		}
		if !ok {
			return core.Emote{}, c.up.NotFound(ctx, core.YouTube, op)
		}
	}

	e := core.Emote{
		ID:       id,
		Provider: core.YouTube,
		Source:   "https://youtube.com",
		Images: []string{
			imageURL(id, 24),
			imageURL(id, 48),
			imageURL(id, 96),
		},
		Tags:     []string{},
		Channels: core.Channels{List: []core.Channel{}},
		Type:     "CHANNEL",
		Approved: true,
		Public:   true,
	}
	if isGlobal {
		owner := officialOwner
		e.Name = global.Name
		e.Owner = &owner
		e.Source = officialOwner.Source
		e.Type = "GLOBALS"
		e.Global = true
	}
	return e, nil
}

type apiEmoji struct {
	ID    any    `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (c *Client) GlobalEmotes(ctx context.Context) ([]core.Emotes, error) {
	const op = "Global Emotes"
	var data []apiEmoji
	if err := c.up.GetJSON(ctx, core.YouTube, op, emojiListURL, &data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, c.up.ServerError(ctx, core.YouTube, op)
	}

	out := make([]core.Emotes, 0, len(data))
	for _, e := range data {
		out = append(out, core.Emotes{
			ID:       fmt.Sprint(e.ID),
			Name:     e.Name,
			Image:    e.Image,
			Provider: core.YouTube,
		})
	}
	return out, nil
}
