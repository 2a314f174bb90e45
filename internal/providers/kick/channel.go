package kick

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

const (
	defaultOffline = "https://kick.com/img/default-channel-banners/offline.webp"
	profileColor   = "#666666"
	profileBG      = "#000"
)

type socialLink struct {
	name string
	base string
	get  func(apiUser) *string
}

var socials = []socialLink{
	{"instagram", "https://instagram.com/", func(u apiUser) *string { return u.Instagram }},
	{"twitter", "https://twitter.com/", func(u apiUser) *string { return u.Twitter }},
	{"youtube", "https://youtube.com/", func(u apiUser) *string { return u.YouTube }},
	{"discord", "https://discord.gg/", func(u apiUser) *string { return u.Discord }},
	{"tiktok", "https://tiktok.com/@", func(u apiUser) *string { return u.TikTok }},
	{"facebook", "https://facebook.com/", func(u apiUser) *string { return u.Facebook }},
}

func (c *Client) channelInfo(ctx context.Context, op, slug string) (apiChannel, error) {
	var data apiChannel
	if err := c.up.GetJSON(ctx, core.Kick, op, siteURL+"/api/v1/channels/"+upstream.Escape(slug), &data); err != nil {
		return apiChannel{}, err
	}
	if data.ID == 0 {
		return apiChannel{}, c.up.NotFound(ctx, core.Kick, op)
	}
	return data, nil
}

// Channel loads the channel profile and its emote groups concurrently.
func (c *Client) Channel(ctx context.Context, login string) (core.ChannelData, error) {
	const op = "Channel"
	var (
		groups []apiEmoteGroup
		data   apiChannel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = c.emoteGroups(gctx, op, login)
		return err
	})
	g.Go(func() error {
		var err error
		data, err = c.channelInfo(gctx, op, login)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.ChannelData{}, err
	}

	follower, subs := []core.Emotes{}, []core.Emotes{}
	for _, group := range groups {
		for _, e := range group.Emotes {
			summary := core.Emotes{
				ID:       fmt.Sprintf("%d/%s", e.ID, data.Slug),
				Name:     e.Name,
				Image:    emoteImage(strconv.Itoa(e.ID)),
				Provider: core.Kick,
			}
			if e.SubscribersOnly {
				subs = append(subs, summary)
			} else {
				follower = append(follower, summary)
			}
		}
	}

	subBadges := make([]core.Badges, 0, len(data.SubscriberBadges))
	for _, b := range data.SubscriberBadges {
		subBadges = append(subBadges, c.subscriberSummary(ctx, b, data.Slug, true))
	}

	username := textutil.CompareName(data.Slug, data.User.Username)
	staff := false
	user := core.UserData{
		ID:              strconv.Itoa(data.UserID),
		Color:           profileColor,
		BackgroundColor: profileBG,
		CreatedAt:       core.ParseTime(data.Chatroom.CreatedAt),
		Username:        username,
		Followers:       data.FollowersCount,
		Roles: core.Roles{
			IsAffiliate: data.IsAffiliate && data.Verified == nil,
			IsPartner:   data.Verified != nil,
			IsStaff:     &staff,
		},
		Socials: socialsOf(data.User),
		Images: core.UserImages{
			Avatar:  data.User.avatar(),
			Banner:  bannerOf(data),
			Offline: offlineOf(data),
		},
		Stream: streamOf(data),
	}
	if data.User.Bio != nil && *data.User.Bio != "" {
		user.Bio = *data.User.Bio
	}

	return core.ChannelData{
		Provider: core.Kick,
		Source:   siteURL + "/" + username,
		User:     user,
		Content: core.ChannelContent{
			Follower: core.EmoteBadge{Emotes: follower, Badges: []core.Badges{}},
			Sub:      &core.SubTier{Emotes: subs, Badges: subBadges},
			Bits:     core.EmoteBadge{Emotes: []core.Emotes{}, Badges: []core.Badges{}},
		},
	}, nil
}

// subscriberSummary renders a channel subscriber badge. resized selects the
// proxied 72px image used in channel listings.
func (c *Client) subscriberSummary(ctx context.Context, b apiSubBadge, slug string, resized bool) core.Badges {
	image := subBadgeImage(b.ID)
	if resized {
		image = textutil.ResizeImageURL(image, 72)
	}
	version := slug
	id := fmt.Sprintf("subscriber/%d", b.Months)
	if !resized {
		id = "subscriber"
		version = fmt.Sprintf("%d/%s", b.Months, slug)
	}
	return core.Badges{
		ID:       id,
		Title:    c.up.T(ctx, "channel.subscriber"),
		Value:    locale.FormatDuration(ctx, c.up.Messages(), b.Months, false),
		Version:  version,
		Type:     "SUBSCRIPTIONS",
		Image:    image,
		Provider: core.Kick,
	}
}

func bannerOf(data apiChannel) string {
	if data.BannerImage != nil && data.BannerImage.URL != "" {
		return data.BannerImage.URL
	}
	return fmt.Sprintf("%s/img/default-channel-banners/default-banner-%d.webp", siteURL, data.ID%4+1)
}

func offlineOf(data apiChannel) string {
	if data.OfflineBanner == nil {
		return defaultOffline
	}
	_, rest, ok := strings.Cut(data.OfflineBanner.Src, "/conversion/")
	if !ok {
		return defaultOffline
	}
	id, _, _ := strings.Cut(rest, "-")
	if id == "" {
		return defaultOffline
	}
	return fmt.Sprintf("%s/images/channel/%d/offline_banner/%s", filesURL, data.ID, id)
}

// previewOf picks the entry following the 1280w candidate of a srcset.
func previewOf(responsive string) string {
	_, rest, ok := strings.Cut(responsive, "1280w,")
	if !ok {
		return defaultOffline
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return defaultOffline
	}
	return fields[0]
}

func streamOf(data apiChannel) *core.StreamInfo {
	live := data.Livestream
	if live == nil {
		return nil
	}
	stream := &core.StreamInfo{
		Title:     live.SessionTitle,
		Language:  strings.ToUpper(live.LangISO),
		IsMature:  live.IsMature,
		CreatedAt: core.ParseTime(strings.Replace(live.CreatedAt, " ", "T", 1) + "Z"),
		Viewers:   live.ViewerCount,
		Preview:   previewOf(live.Thumbnail.Responsive),
	}
	if len(data.RecentCategories) > 0 {
		cat := data.RecentCategories[0]
		info := &core.CategoryInfo{URL: siteURL + "/category/" + cat.Slug, Name: cat.Name}
		if cat.Banner != nil {
			info.BoxArt = cat.Banner.URL
		}
		stream.Category = info
	}
	return stream
}

func socialsOf(u apiUser) []core.Social {
	out := []core.Social{}
	for _, s := range socials {
		v := s.get(u)
		if v == nil || strings.TrimSpace(*v) == "" {
			continue
		}
		handle := strings.TrimSpace(*v)
		clean, icon, err := textutil.Favicon(s.base + handle)
		if err != nil {
			continue
		}
		out = append(out, core.Social{URL: clean, Name: s.name, Title: handle, Icon: icon})
	}
	return out
}
