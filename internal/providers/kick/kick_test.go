package kick

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/upstream"
)

type globalEmotes map[string]string

func (g globalEmotes) GlobalEmote(_ context.Context, _ core.Provider, id string) (core.Emotes, bool) {
	name, ok := g[id]
	return core.Emotes{ID: id, Name: name}, ok
}

func (g globalEmotes) GlobalBadgeVersions(context.Context, core.Provider, string) []core.Badges {
	return nil
}

const channelJSON = `{
	"id": 7, "user_id": 70, "slug": "xqc", "is_affiliate": true, "followersCount": 1200,
	"subscriber_badges": [
		{"id": 11, "months": 1},
		{"id": 12, "months": 6},
		{"id": 13, "months": 18}
	],
	"banner_image": null,
	"offline_banner_image": {"src": "https://files.kick.com/images/channel/7/offline_banner/conversion/abc123-def-fullsize.webp"},
	"recent_categories": [{"name": "Just Chatting", "slug": "just-chatting", "banner": {"url": "https://files/cat.webp"}}],
	"livestream": {"session_title": "live", "created_at": "2024-05-01 12:30:00", "lang_iso": "en", "is_mature": true, "viewer_count": 99,
		"thumbnail": {"responsive": "https://t/1080.webp 1920w, https://t/720.webp 1280w, https://t/360.webp 640w"}},
	"user": {"id": 70, "username": "xQc", "bio": "", "profile_pic": null, "twitter": " xqc ", "instagram": ""},
	"chatroom": {"created_at": "2022-12-01T10:00:00.000000Z"},
	"verified": null
}`

const emotesJSON = `[
	{"user_id": 70, "slug": "xqc", "user": {"username": "xQc", "profile_pic": "https://pic/x.webp"},
		"emotes": [{"id": 100, "name": "xqcL", "subscribers_only": false}, {"id": 101, "name": "xqcSub", "subscribers_only": true}]},
	{"name": "Global", "id": "Global", "emotes": [{"id": 1, "name": "KEKW"}]}
]`

func newKick(t *testing.T, globals globalEmotes) (*Client, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prevSite, prevFiles := siteURL, filesURL
	siteURL, filesURL = srv.URL, srv.URL+"/files"
	t.Cleanup(func() { siteURL, filesURL = prevSite, prevFiles })

	return New(upstream.New(upstream.Options{HostRPS: 1000, HostBurst: 1000}), globals), mux
}

func TestChannelEmote(t *testing.T) {
	c, mux := newKick(t, nil)
	mux.HandleFunc("/emotes/XQC", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(emotesJSON)) })
	mux.HandleFunc("/emotes/xqc", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(emotesJSON)) })

	e, err := c.Emote(context.Background(), "101/XQC")
	require.NoError(t, err)
	assert.Equal(t, "101/xqc", e.ID)
	assert.Equal(t, "xqcSub", e.Name)
	require.NotNil(t, e.Owner)
	assert.Equal(t, "xQc", e.Owner.Username)
	assert.Equal(t, "70", e.Owner.ID)
	assert.Equal(t, siteURL+"/xQc/subscribe", e.Source)
	assert.False(t, e.Global)

	_, err = c.Emote(context.Background(), "999/xqc")
	assert.True(t, core.IsNotFound(err))
}

func TestGlobalAndBareEmotes(t *testing.T) {
	c, mux := newKick(t, globalEmotes{"1": "KEKW"})
	mux.HandleFunc("/files/emotes/", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/404/") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("img"))
	})
	ctx := context.Background()

	g, err := c.Emote(ctx, "1")
	require.NoError(t, err)
	assert.True(t, g.Global)
	assert.Equal(t, "GLOBALS", g.Type)
	assert.Equal(t, "KEKW", g.Name)
	assert.Equal(t, "6843639", g.Owner.ID)

	bare, err := c.Emote(ctx, "555")
	require.NoError(t, err)
	assert.Nil(t, bare.Owner)
	assert.Empty(t, bare.Source)
	assert.Len(t, bare.Images, 3)

	_, err = c.Emote(ctx, "404")
	assert.True(t, core.IsNotFound(err))
}

func TestChannelProfile(t *testing.T) {
	c, mux := newKick(t, nil)
	mux.HandleFunc("/emotes/xqc", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(emotesJSON)) })
	mux.HandleFunc("/api/v1/channels/xqc", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(channelJSON)) })

	ch, err := c.Channel(context.Background(), "xqc")
	require.NoError(t, err)
	u := ch.User
	assert.Equal(t, "70", u.ID)
	assert.Equal(t, "xQc", u.Username)
	assert.True(t, u.Roles.IsAffiliate)
	assert.False(t, u.Roles.IsPartner)
	assert.Equal(t, defaultAvatar, u.Images.Avatar)
	assert.Equal(t, siteURL+"/img/default-channel-banners/default-banner-4.webp", u.Images.Banner)
	assert.Equal(t, filesURL+"/images/channel/7/offline_banner/abc123", u.Images.Offline)
	require.Len(t, u.Socials, 1)
	assert.Equal(t, core.Social{URL: "https://twitter.com/xqc", Name: "twitter", Title: "xqc", Icon: "https://favicon.yandex.net/favicon/twitter.com?size=32"}, u.Socials[0])

	require.NotNil(t, u.Stream)
	assert.Equal(t, "EN", u.Stream.Language)
	assert.Equal(t, "https://t/360.webp", u.Stream.Preview)
	require.NotNil(t, u.Stream.CreatedAt)
	assert.Equal(t, 12, u.Stream.CreatedAt.Hour())
	require.NotNil(t, u.Stream.Category)
	assert.Equal(t, siteURL+"/category/just-chatting", u.Stream.Category.URL)

	require.Len(t, ch.Content.Follower.Emotes, 1)
	assert.Equal(t, "100/xqc", ch.Content.Follower.Emotes[0].ID)
	require.NotNil(t, ch.Content.Sub)
	require.Len(t, ch.Content.Sub.Emotes, 1)
	require.Len(t, ch.Content.Sub.Badges, 3)
	assert.Equal(t, "subscriber/18", ch.Content.Sub.Badges[2].ID)
	assert.Equal(t, "1.5 years", ch.Content.Sub.Badges[2].Value)
	assert.Equal(t, "xqc", ch.Content.Sub.Badges[2].Version)
	assert.Contains(t, ch.Content.Sub.Badges[0].Image, "w=72")
}

func TestChannelMissing(t *testing.T) {
	c, mux := newKick(t, nil)
	mux.HandleFunc("/emotes/ghost", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) })
	mux.HandleFunc("/api/v1/channels/ghost", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) })

	_, err := c.Channel(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
}

func TestGlobalBadgesFromManifest(t *testing.T) {
	c, _ := newKick(t, nil)

	badges, err := c.GlobalBadges(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, badges)

	var gifter *core.Badges
	for i := range badges {
		if badges[i].ID == "subgifter" && badges[i].Version == "25" {
			gifter = &badges[i]
		}
	}
	require.NotNil(t, gifter)
	assert.Equal(t, "Sub Gifter (25)", gifter.Title)
	assert.Equal(t, "/images/badge/kick/subgifter_25.svg", gifter.Image)
}

func TestBadgeShapes(t *testing.T) {
	c, mux := newKick(t, nil)
	mux.HandleFunc("/api/v1/channels/xqc", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(channelJSON)) })
	mux.HandleFunc("/files/channel_subscriber_badges/", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("img")) })
	ctx := context.Background()

	global, err := c.Badge(ctx, "moderator")
	require.NoError(t, err)
	assert.True(t, global.Global)
	assert.Equal(t, "GLOBALS", global.Type)
	assert.Equal(t, "Moderator", global.Name)
	assert.Equal(t, "1", global.Version)

	sub, err := c.Badge(ctx, "subscriber/6")
	require.NoError(t, err)
	assert.Equal(t, "SUBSCRIPTIONS", sub.Type)
	assert.Empty(t, sub.Description)
	assert.Equal(t, 5, sub.Related.Total)

	_, err = c.Badge(ctx, "moderator/9")
	assert.True(t, core.IsNotFound(err))

	channel, err := c.Badge(ctx, "subscriber/6/xqc")
	require.NoError(t, err)
	assert.Equal(t, "6-Month Subscriber", channel.Name)
	assert.Equal(t, "6/xqc", channel.Version)
	assert.False(t, channel.Global)
	assert.Equal(t, filesURL+"/channel_subscriber_badges/12/original", channel.Images[0])
	// Two sibling channel badges plus every global subscriber version.
	assert.Equal(t, 2+6, channel.Related.Total)
	assert.Equal(t, siteURL+"/xQc/subscribe", channel.Source)

	byID, err := c.Badge(ctx, "13/xqc")
	require.NoError(t, err)
	assert.Equal(t, "18/xqc", byID.Version)

	bare, err := c.Badge(ctx, "12345678")
	require.NoError(t, err)
	assert.Equal(t, "SUBSCRIPTIONS", bare.Type)
}

func TestSearchLimits(t *testing.T) {
	c, mux := newKick(t, nil)
	var word string
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		word = r.URL.Query().Get("searched_word")
		w.Write([]byte(`{"channels":[{"user_id":1,"slug":"a","user":{"username":"A","profilePic":"https://p/a"}},{"user_id":2,"slug":"b","user":{"username":"b"}}]}`))
	})

	users, err := c.Search(context.Background(), "a b", 1)
	require.NoError(t, err)
	assert.Equal(t, "a b", word)
	require.Len(t, users, 1)
	assert.Equal(t, core.User{ID: "1", Username: "A", Avatar: "https://p/a", Platform: "kick", Source: siteURL + "/a"}, users[0])
}
