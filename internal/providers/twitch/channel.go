package twitch

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

const (
	defaultColor      = "#666666"
	defaultBackground = "#cba6f7"
	bannerTextLen     = 112
)

type apiImageSet struct {
	ImageURL4x string `json:"image_url_4x"`
}

type apiBadge struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	SetID         string `json:"setID"`
	Version       string `json:"version"`
	ClickURL      string `json:"clickURL"`
	Description   string `json:"description"`
	OnClickAction string `json:"onClickAction"`
	ImageURL1x    string `json:"image_url_1x"`
	ImageURL2x    string `json:"image_url_2x"`
	ImageURL4x    string `json:"image_url_4x"`
}

type apiGQLEmote struct {
	ID     string     `json:"id"`
	Type   string     `json:"type"`
	SetID  string     `json:"setID"`
	Code   string     `json:"code"`
	Artist *apiArtist `json:"artist"`
	Bits   *struct {
		Cost int `json:"cost"`
	} `json:"bits"`
}

type apiSocial struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Title string `json:"title"`
}

type apiGame struct {
	Slug        string `json:"slug"`
	BoxArt      string `json:"boxArt"`
	DisplayName string `json:"displayName"`
}

type apiStream struct {
	Title           string   `json:"title"`
	Language        string   `json:"language"`
	IsMature        bool     `json:"isMature"`
	CreatedAt       string   `json:"createdAt"`
	ViewersCount    int      `json:"viewersCount"`
	PreviewImageURL string   `json:"previewImageURL"`
	Game            *apiGame `json:"game"`
}

type apiProfile struct {
	ID              string  `json:"id"`
	Login           string  `json:"login"`
	DisplayName     string  `json:"displayName"`
	ChatColor       *string `json:"chatColor"`
	CreatedAt       string  `json:"createdAt"`
	Description     *string `json:"description"`
	BannerImageURL  *string `json:"bannerImageURL"`
	PrimaryColorHex *string `json:"primaryColorHex"`
	OfflineImageURL *string `json:"offlineImageURL"`
	ProfileImageURL string  `json:"profileImageURL"`
	Roles           struct {
		IsAffiliate bool  `json:"isAffiliate"`
		IsPartner   bool  `json:"isPartner"`
		IsStaff     *bool `json:"isStaff"`
	} `json:"roles"`
	Followers struct {
		Count int `json:"count"`
	} `json:"followers"`
	SelectedBadge *struct {
		Title      string `json:"title"`
		SetID      string `json:"setID"`
		Version    string `json:"version"`
		ImageURL2x string `json:"image_url_2x"`
	} `json:"selectedBadge"`
	Stream          *apiStream `json:"stream"`
	BroadcastBadges []apiBadge `json:"broadcastBadges"`
	Cheer           *struct {
		BadgeTierEmotes []apiGQLEmote `json:"badgeTierEmotes"`
	} `json:"cheer"`
	SubEmotes []struct {
		DisplayName string        `json:"displayName"`
		Emotes      []apiGQLEmote `json:"emotes"`
	} `json:"subEmotes"`
	Channel struct {
		SocialMedias      []apiSocial `json:"socialMedias"`
		CreatorBadgeFlair *struct {
			Assets []apiImageSet `json:"assets"`
		} `json:"creatorBadgeFlair"`
		LocalEmoteSets []struct {
			LocalEmotes []apiGQLEmote `json:"localEmotes"`
		} `json:"localEmoteSets"`
		CommunityPointsSettings struct {
			Name         *string      `json:"name"`
			Image        *apiImageSet `json:"image"`
			DefaultImage apiImageSet  `json:"defaultImage"`
		} `json:"communityPointsSettings"`
	} `json:"channel"`
}

func mapEmotes(ctx context.Context, list []apiGQLEmote) []core.Emotes {
	out := make([]core.Emotes, 0, len(list))
	for _, e := range list {
		summary := core.Emotes{
			ID:       e.ID,
			Name:     e.Code,
			Image:    emoteImage(e.ID, "3.0"),
			Owner:    e.Artist.name(),
			Provider: core.Twitch,
		}
		if e.Bits != nil && e.Bits.Cost > 0 {
			summary.BitsCost = e.Bits.Cost
			summary.Value = locale.FormatNumber(ctx, e.Bits.Cost)
		}
		out = append(out, summary)
	}
	return out
}

func socialsOf(list []apiSocial) []core.Social {
	out := make([]core.Social, 0, len(list))
	for _, s := range list {
		clean, icon, err := textutil.Favicon(s.URL)
		if err != nil {
			continue
		}
		out = append(out, core.Social{URL: clean, Name: s.Name, Title: s.Title, Icon: icon})
	}
	return out
}

// Banner renders the repeated-username SVG used when a channel has no banner.
func Banner(username, color string) string {
	if color == "" {
		color = defaultBackground
	}
	var b strings.Builder
	for b.Len() < bannerTextLen {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(username)
	}
	text := b.String()
	chunks := []string{text, tail(text, 4), tail(text, 2)}

	const font = `fill="#fff" font-size="4rem" font-weight="600" opacity=".1" font-family="Roobert,Helvetica Neue,Helvetica,Arial,sans-serif"`
	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" height="200">`+
		`<rect width="100%%" height="100%%" fill="%s"/>`+
		`<text x="15" y="27%%" %s>%s</text>`+
		`<text x="5" y="60%%" %s>%s</text>`+
		`<text y="93%%" %s>%s</text></svg>`,
		color, font, chunks[0], font, chunks[1], font, chunks[2])
	return "data:image/svg+xml;utf8," + strings.ReplaceAll(url.QueryEscape(svg), "+", "%20")
}

func tail(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

func streamOf(s *apiStream) *core.StreamInfo {
	if s == nil {
		return nil
	}
	stream := &core.StreamInfo{
		Title:     s.Title,
		Language:  s.Language,
		IsMature:  s.IsMature,
		CreatedAt: core.ParseTime(s.CreatedAt),
		Viewers:   s.ViewersCount,
		Preview:   strings.Replace(s.PreviewImageURL, "-{width}x{height}", "-640x360", 1) + "?" + uuid.NewString()[:5],
	}
	if g := s.Game; g != nil {
		stream.Category = &core.CategoryInfo{
			URL:    siteURL + "/directory/category/" + g.Slug,
			Name:   g.DisplayName,
			BoxArt: strings.Replace(g.BoxArt, "-{width}x{height}", "-285x380", 1),
		}
	}
	return stream
}

// Channel loads a channel profile from the spanix.team mirror of the Twitch
// channel page query.
func (c *Client) Channel(ctx context.Context, login string) (core.ChannelData, error) {
	const op = "Channel"
	var body struct {
		User *apiProfile `json:"user"`
	}
	if err := c.up.GetJSON(ctx, core.Twitch, op, infoURL+"/get_info/"+upstream.Escape(login), &body); err != nil {
		return core.ChannelData{}, err
	}
	data := body.User
	if data == nil {
		return core.ChannelData{}, c.up.NotFound(ctx, core.Twitch, op)
	}

	subs := make([]*core.SubTier, 3)
	for i := range subs {
		tier := &core.SubTier{Emotes: []core.Emotes{}, Badges: []core.Badges{}}
		if i < len(data.SubEmotes) {
			tier.Title = data.SubEmotes[i].DisplayName
			tier.Emotes = mapEmotes(ctx, data.SubEmotes[i].Emotes)
		}
		if flair := data.Channel.CreatorBadgeFlair; i > 0 && flair != nil && i-1 < len(flair.Assets) {
			tier.Flair = flair.Assets[i-1].ImageURL4x
		}
		subs[i] = tier
	}

	var follower []apiGQLEmote
	if sets := data.Channel.LocalEmoteSets; len(sets) > 0 {
		follower = sets[0].LocalEmotes
	}
	var bitsEmotes []apiGQLEmote
	if data.Cheer != nil {
		bitsEmotes = data.Cheer.BadgeTierEmotes
	}
	bits := core.EmoteBadge{Emotes: mapEmotes(ctx, bitsEmotes), Badges: []core.Badges{}}

	badges := append([]apiBadge(nil), data.BroadcastBadges...)
	sort.SliceStable(badges, func(i, j int) bool { return atoi(badges[i].Version) < atoi(badges[j].Version) })
	for _, b := range badges {
		version := atoi(b.Version)
		switch b.SetID {
		case "bits":
			bits.Badges = append(bits.Badges, core.Badges{
				ID:          b.SetID,
				Title:       textutil.CheerName(b.Title),
				Value:       locale.FormatNumber(ctx, version),
				Version:     b.Version + "/" + data.ID,
				Description: b.Description,
				Image:       b.ImageURL4x,
				Type:        "BITS_BADGE_TIERS",
				Provider:    core.Twitch,
			})
		case "subscriber":
			tier, months := textutil.TierOf(version)
			subs[tier-1].Badges = append(subs[tier-1].Badges, core.Badges{
				ID:          b.SetID,
				Title:       c.up.T(ctx, "channel.subscriber"),
				Value:       locale.FormatDuration(ctx, c.up.Messages(), months, false),
				Version:     b.Version + "/" + data.ID,
				Description: b.Description,
				Image:       b.ImageURL4x,
				Type:        "SUBSCRIPTIONS",
				Provider:    core.Twitch,
			})
		}
	}

	username := textutil.CompareName(data.Login, data.DisplayName)
	user := core.UserData{
		ID:              data.ID,
		Color:           defaultColor,
		BackgroundColor: defaultBackground,
		CreatedAt:       core.ParseTime(data.CreatedAt),
		Username:        username,
		Followers:       data.Followers.Count,
		Roles: core.Roles{
			IsAffiliate: data.Roles.IsAffiliate,
			IsPartner:   data.Roles.IsPartner,
			IsStaff:     data.Roles.IsStaff,
		},
		Socials: socialsOf(data.Channel.SocialMedias),
		Images:  core.UserImages{Avatar: data.ProfileImageURL},
		Stream:  streamOf(data.Stream),
	}
	if data.ChatColor != nil && *data.ChatColor != "" {
		user.Color = *data.ChatColor
	}
	var primary string
	if data.PrimaryColorHex != nil && *data.PrimaryColorHex != "" {
		primary = "#" + *data.PrimaryColorHex
		user.BackgroundColor = primary
	}
	if data.Description != nil {
		user.Bio = *data.Description
	}
	if sb := data.SelectedBadge; sb != nil {
		user.Badge = &core.UserBadge{ID: sb.SetID, Title: sb.Title, Version: sb.Version, Image: sb.ImageURL2x}
	}
	if data.BannerImageURL != nil && *data.BannerImageURL != "" {
		user.Images.Banner = *data.BannerImageURL
	} else {
		user.Images.Banner = Banner(login, primary)
	}
	if data.OfflineImageURL != nil {
		user.Images.Offline = *data.OfflineImageURL
	}

	points := data.Channel.CommunityPointsSettings
	pointsImage := points.DefaultImage.ImageURL4x
	if points.Image != nil && points.Image.ImageURL4x != "" {
		pointsImage = points.Image.ImageURL4x
	}
	pointsName := c.up.T(ctx, "channel.points")
	if points.Name != nil && *points.Name != "" {
		pointsName = *points.Name
	}

	return core.ChannelData{
		Provider: core.Twitch,
		Source:   siteURL + "/" + username,
		User:     user,
		Content: core.ChannelContent{
			Follower: core.EmoteBadge{Emotes: mapEmotes(ctx, follower), Badges: []core.Badges{}},
			Bits:     bits,
			Sub:      subs[0],
			SubT2:    subs[1],
			SubT3:    subs[2],
			Points:   &core.Points{Image: pointsImage, Name: pointsName},
		},
	}, nil
}
