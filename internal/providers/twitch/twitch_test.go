package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/upstream"
)

type fakeOrigins map[string]string

func (o fakeOrigins) OriginImage(_ context.Context, _ core.Provider, id string) (string, bool) {
	u, ok := o[id]
	return u, ok
}

const (
	vipUUID  = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	bitsUUID = "11111111-2222-3333-4444-555555555555"
)

func badgeJSON(id, setID, version, uuid string) map[string]any {
	return map[string]any{
		"id": id, "title": setID + " " + version, "setID": setID, "version": version,
		"description": " " + setID + " ", "onClickAction": "SUBSCRIBE",
		"image_url_4x": "https://static-cdn.jtvnw.net/badges/v1/" + uuid + "/3",
	}
}

func newTwitch(t *testing.T, origins fakeOrigins) (*Client, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prev := []string{potatURL, ivrURL, gqlURL, infoURL, cdnURL, flairURL}
	potatURL, ivrURL, gqlURL = srv.URL+"/potat", srv.URL+"/ivr", srv.URL+"/gql"
	infoURL, cdnURL, flairURL = srv.URL+"/info", srv.URL+"/cdn", srv.URL+"/flair"
	t.Cleanup(func() {
		potatURL, ivrURL, gqlURL = prev[0], prev[1], prev[2]
		infoURL, cdnURL, flairURL = prev[3], prev[4], prev[5]
	})

	opts := Options{}
	if origins != nil {
		opts.Origins = origins
	}
	return New(upstream.New(upstream.Options{HostRPS: 1000, HostBurst: 1000}), nil, opts), mux
}

// handleGQL routes GraphQL posts by operation name and checks the client id.
func handleGQL(t *testing.T, mux *http.ServeMux, ops map[string]func(vars map[string]any) any) {
	t.Helper()
	mux.HandleFunc("POST /gql", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Client-ID"); got != DefaultClientID {
			t.Errorf("Client-ID = %q", got)
		}
		var req upstream.GraphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode gql: %v", err)
		}
		fn, ok := ops[req.OperationName]
		if !ok {
			t.Errorf("unexpected operation %q", req.OperationName)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": fn(req.Variables)})
	})
}

func globalBadgeOps() map[string]func(map[string]any) any {
	return map[string]func(map[string]any) any{
		"GlobalBadges": func(map[string]any) any {
			return map[string]any{"badges": []any{
				badgeJSON("b1", "bits", "1000", bitsUUID),
				badgeJSON("s0", "subscriber", "0", "99999999-2222-3333-4444-555555555555"),
				badgeJSON("v1", "vip", "1", vipUUID),
				badgeJSON("b0", "bits", "100", "00000000-2222-3333-4444-555555555555"),
			}}
		},
	}
}

func TestEmoteFallsBackToIVR(t *testing.T) {
	c, mux := newTwitch(t, nil)
	mux.HandleFunc("/potat/twitch/emotes", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/ivr/twitch/emotes/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("id"))
		w.Write([]byte(`{"channelID":"71092938","channelLogin":"xqc","channelName":"xQc","emoteCode":"xqcL",
			"emoteSetID":"300","emoteAssetType":"STATIC","emoteState":"ACTIVE","emoteType":"SUBSCRIPTIONS",
			"emoteTier":1,"artist":{"id":"5","login":"artist","displayName":"Artist"}}`))
	})

	e, err := c.Emote(context.Background(), "emotesv2_abc")
	require.NoError(t, err)
	assert.Equal(t, "xqcL", e.Name)
	require.NotNil(t, e.Owner)
	assert.Equal(t, "xQc", e.Owner.Username)
	assert.Equal(t, "71092938", e.Owner.ID)
	require.NotNil(t, e.Artist)
	assert.Equal(t, "Artist", e.Artist.Username)
	assert.Equal(t, siteURL+"/subs/xQc", e.Source)
	assert.Equal(t, cdnURL+"/emoticons/v2/emotesv2_abc/default/dark/3.0", e.Images[2])
	require.NotNil(t, e.Tier)
	assert.Equal(t, 1, *e.Tier)
	assert.True(t, e.Public)
	assert.True(t, e.Approved)
	assert.False(t, e.Animated)
	assert.False(t, e.Deleted)
	assert.False(t, e.Global)
}

func TestEmoteNotFoundSkipsFallback(t *testing.T) {
	c, mux := newTwitch(t, nil)
	var fallback atomic.Int64
	mux.HandleFunc("/potat/twitch/emotes", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/ivr/twitch/emotes/{id}", func(w http.ResponseWriter, r *http.Request) {
		fallback.Add(1)
	})

	_, err := c.Emote(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, "[Twitch] Emote | 404: Not found", err.Error())
	assert.Zero(t, fallback.Load())
}

func TestEmoteEmptyPrimaryIsFinal(t *testing.T) {
	c, mux := newTwitch(t, nil)
	var fallback atomic.Int64
	mux.HandleFunc("/potat/twitch/emotes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	mux.HandleFunc("/ivr/twitch/emotes/{id}", func(w http.ResponseWriter, r *http.Request) {
		fallback.Add(1)
	})

	_, err := c.Emote(context.Background(), "emotesv2_gone")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
	assert.Zero(t, fallback.Load())
}

func TestEmoteOriginImages(t *testing.T) {
	c, mux := newTwitch(t, fakeOrigins{
		"emotesv2_abc":   "https://i.ivr.fi/emotes/abc_3x.png",
		"emotesv2_var":   "https://i.imgur.com/base.png",
		"emotesv2_other": "https://example.com/other.png",
	})
	mux.HandleFunc("/potat/twitch/emotes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"emoteCode":"Kappa","emoteSetID":"0","emoteState":"ACTIVE","emoteAssetType":"ANIMATED"}]}`))
	})

	e, err := c.Emote(context.Background(), "emotesv2_abc")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://i.ivr.fi/emotes/abc_1x.png",
		"https://i.ivr.fi/emotes/abc_2x.png",
		"https://i.ivr.fi/emotes/abc_3x.png",
	}, e.Images)
	require.NotNil(t, e.Owner)
	assert.Equal(t, "Twitch", e.Owner.Username)
	assert.Equal(t, "12826", e.Owner.ID)
	assert.True(t, e.Animated)

	variant, err := c.Emote(context.Background(), "emotesv2_var_BW")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/base.png", variant.AltImage)
	assert.Len(t, variant.Images, 3)

	other, err := c.Emote(context.Background(), "emotesv2_other")
	require.NoError(t, err)
	assert.Equal(t, cdnURL+"/emoticons/v2/emotesv2_other/default/dark/1.0", other.Images[0])
}

func TestSets(t *testing.T) {
	c, mux := newTwitch(t, nil)
	mux.HandleFunc("/ivr/twitch/emotes/sets", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("set_id") {
		case "0":
			w.Write([]byte(`[{"setID":"0","channelID":null,"emoteList":[{"id":"25","code":"Kappa","type":"GLOBALS"}]}]`))
		case "300":
			w.Write([]byte(`[{"setID":"300","channelID":"71092938","channelLogin":"xqc","channelName":"xQc","tier":"1",
				"emoteList":[{"id":"e1","code":"xqcL","type":"SUBSCRIPTIONS","artist":{"id":"5","login":"art","displayName":"ART"}}]}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	set, err := c.Set(context.Background(), "300")
	require.NoError(t, err)
	assert.Equal(t, "Tier 1 Subscriber Emotes", set.Subtitle)
	assert.Equal(t, siteURL+"/subs/xQc", set.Source)
	require.Len(t, set.Emotes, 1)
	assert.Equal(t, "ART", set.Emotes[0].Owner)
	assert.Equal(t, cdnURL+"/emoticons/v2/e1/default/dark/3.0", set.Emotes[0].Image)

	globals, err := c.GlobalEmotes(context.Background())
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "Kappa", globals[0].Name)
	assert.Empty(t, globals[0].Owner)

	_, err = c.Set(context.Background(), "404")
	assert.True(t, core.IsNotFound(err))
}

func TestGlobalBadges(t *testing.T) {
	c, mux := newTwitch(t, nil)
	handleGQL(t, mux, globalBadgeOps())

	badges, err := c.GlobalBadges(context.Background())
	require.NoError(t, err)
	require.Len(t, badges, 4)
	assert.Equal(t, "100", badges[0].Version)
	assert.Equal(t, "1000", badges[1].Version)
	assert.Equal(t, "1,000", badges[1].Value)
	assert.Equal(t, "BITS_BADGE_TIERS", badges[1].Type)
	assert.Equal(t, "subscriber", badges[2].ID)
	assert.Empty(t, badges[2].Description)
	assert.Equal(t, "vip", badges[3].ID)
	assert.Equal(t, "vip", badges[3].Description)
	assert.Equal(t, "subscribe", badges[3].ClickAction)
}

func TestGlobalBadge(t *testing.T) {
	c, mux := newTwitch(t, nil)
	handleGQL(t, mux, globalBadgeOps())

	b, err := c.Badge(context.Background(), "bits/1000")
	require.NoError(t, err)
	assert.Equal(t, "bits", b.ID)
	assert.True(t, b.Global)
	assert.Equal(t, "BITS_BADGE_TIERS", b.Type)
	require.NotNil(t, b.Cost)
	assert.Equal(t, 1000, *b.Cost)
	assert.Equal(t, cdnURL+"/badges/v1/"+bitsUUID+"/1", b.Images[0])
	assert.Equal(t, 1, b.Related.Total)
	assert.Equal(t, "100", b.Related.List[0].Version)
	require.NotNil(t, b.Owner)
	assert.Equal(t, "Twitch", b.Owner.Username)
	assert.Empty(t, b.Source)

	vip, err := c.Badge(context.Background(), "vip")
	require.NoError(t, err)
	assert.Equal(t, "1", vip.Version)
	assert.Equal(t, "GLOBALS", vip.Type)

	_, err = c.Badge(context.Background(), "bits/5")
	assert.True(t, core.IsNotFound(err))
}

func TestUUIDBadge(t *testing.T) {
	c, mux := newTwitch(t, nil)
	handleGQL(t, mux, globalBadgeOps())
	mux.HandleFunc("/cdn/badges/v1/"+vipUUID+"/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png"))
	})

	b, err := c.Badge(context.Background(), vipUUID)
	require.NoError(t, err)
	assert.Equal(t, "vip", b.ID)
	assert.True(t, b.Global)

	_, err = c.Badge(context.Background(), "bbbbbbbb-bbbb-cccc-dddd-eeeeeeeeeeee")
	assert.True(t, core.IsNotFound(err))
}

func TestChannelBadge(t *testing.T) {
	c, mux := newTwitch(t, nil)
	ops := globalBadgeOps()
	ops["ChannelBadges"] = func(vars map[string]any) any {
		assert.Equal(t, "xqc", vars["login"])
		return map[string]any{"user": map[string]any{
			"id": "71092938", "login": "xqc", "displayName": "xQc", "profileImageURL": "https://pic",
			"broadcastBadges": []any{
				badgeJSON("c0", "subscriber", "0", "c0000000-2222-3333-4444-555555555555"),
				badgeJSON("c1", "subscriber", "2000", "c1000000-2222-3333-4444-555555555555"),
				badgeJSON("c2", "subscriber", "2003", "c2000000-2222-3333-4444-555555555555"),
				badgeJSON("c3", "subscriber", "3000", "c3000000-2222-3333-4444-555555555555"),
				badgeJSON("c4", "bits", "100", "c4000000-2222-3333-4444-555555555555"),
			},
		}}
	}
	handleGQL(t, mux, ops)

	b, err := c.Badge(context.Background(), "subscriber/2003/xqc")
	require.NoError(t, err)
	assert.Equal(t, "3-Month Subscriber", b.Name)
	assert.Equal(t, "2003/71092938", b.Version)
	require.NotNil(t, b.Tier)
	assert.Equal(t, 2, *b.Tier)
	assert.False(t, b.Global)
	assert.Equal(t, "SUBSCRIPTIONS", b.Type)
	assert.Equal(t, siteURL+"/subs/xQc", b.Source)
	assert.Equal(t, siteURL+"/subs/xQc", b.ClickURL)
	assert.Equal(t, cdnURL+"/badges/v1/c2000000-2222-3333-4444-555555555555/3", b.Images[2])

	require.Equal(t, 2, b.Related.Total)
	assert.Equal(t, "2000/xqc", b.Related.List[0].Version)
	assert.Equal(t, "0", b.Related.List[1].Version)

	_, err = c.Badge(context.Background(), "subscriber/9/xqc")
	assert.True(t, core.IsNotFound(err))
}

func TestFlairBadge(t *testing.T) {
	c, mux := newTwitch(t, nil)
	mux.HandleFunc("/ivr/twitch/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "xqc", r.URL.Query().Get("login"))
		w.Write([]byte(`[{"id":"71092938","login":"xqc","displayName":"xQc","logo":"https://logo"}]`))
	})

	b, err := c.Badge(context.Background(), "flair/2000/xqc")
	require.NoError(t, err)
	assert.Equal(t, "Flair", b.Name)
	assert.Equal(t, "2000/71092938", b.Version)
	assert.Equal(t, flairURL+"/default/2000/18x18.png", b.Images[0])
	assert.True(t, b.Global)
	require.NotNil(t, b.Tier)
	assert.Equal(t, 2, *b.Tier)
	assert.Equal(t, siteURL+"/subs/xQc", b.Source)

	mux.HandleFunc("/flair/71092938/3000/18x18.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png"))
	})
	own, err := c.Badge(context.Background(), "flair/3000/xqc")
	require.NoError(t, err)
	assert.Equal(t, flairURL+"/71092938/3000/72x72.png", own.Images[2])
	assert.False(t, own.Global)

	_, err = c.Badge(context.Background(), "flair/1000")
	assert.True(t, core.IsNotFound(err))
}

const profileJSON = `{"user":{
	"id":"71092938","login":"xqc","displayName":"xQc","chatColor":null,"createdAt":"2014-09-12T23:50:05Z",
	"description":"","bannerImageURL":null,"primaryColorHex":"ff0000","offlineImageURL":"https://offline",
	"profileImageURL":"https://avatar","roles":{"isAffiliate":false,"isPartner":true,"isStaff":null},
	"followers":{"count":12000},"selectedBadge":null,
	"stream":{"title":"live","language":"en","isMature":false,"createdAt":"2024-05-01T12:00:00Z","viewersCount":5,
		"previewImageURL":"https://preview/live_user_xqc-{width}x{height}.jpg",
		"game":{"slug":"just-chatting","boxArt":"https://box-{width}x{height}.jpg","displayName":"Just Chatting"}},
	"broadcastBadges":[
		{"id":"a","title":"cheer 1000","setID":"bits","version":"1000","image_url_4x":"https://b/1000"},
		{"id":"b","title":"Subscriber","setID":"subscriber","version":"2001","image_url_4x":"https://s/2001"},
		{"id":"c","title":"Subscriber","setID":"subscriber","version":"0","image_url_4x":"https://s/0"}
	],
	"cheer":{"badgeTierEmotes":[{"id":"bits1","code":"xqcBits","bits":{"cost":1000}}]},
	"subEmotes":[{"displayName":"Tier 1","emotes":[{"id":"s1","code":"xqcL"}]}],
	"channel":{"socialMedias":[{"url":"twitter.com/xqc","name":"twitter","title":"Twitter"}],
		"creatorBadgeFlair":{"assets":[{"image_url_4x":"https://flair/2000"},{"image_url_4x":"https://flair/3000"}]},
		"localEmoteSets":[{"localEmotes":[{"id":"f1","code":"xqcFollow"}]}],
		"communityPointsSettings":{"name":null,"image":null,"defaultImage":{"image_url_4x":"https://points"}}}
}}`

func TestChannel(t *testing.T) {
	c, mux := newTwitch(t, nil)
	mux.HandleFunc("/info/get_info/xqc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileJSON))
	})

	ch, err := c.Channel(context.Background(), "xqc")
	require.NoError(t, err)
	u := ch.User
	assert.Equal(t, "xQc", u.Username)
	assert.Equal(t, "#666666", u.Color)
	assert.Equal(t, "#ff0000", u.BackgroundColor)
	assert.Empty(t, u.Bio)
	assert.True(t, u.Roles.IsPartner)
	assert.Equal(t, 12000, u.Followers)
	assert.True(t, strings.HasPrefix(u.Images.Banner, "data:image/svg+xml;utf8,"))
	assert.Contains(t, u.Images.Banner, "%23ff0000")
	require.Len(t, u.Socials, 1)
	assert.Equal(t, "https://twitter.com/xqc", u.Socials[0].URL)

	require.NotNil(t, u.Stream)
	assert.True(t, strings.HasPrefix(u.Stream.Preview, "https://preview/live_user_xqc-640x360.jpg?"))
	require.NotNil(t, u.Stream.Category)
	assert.Equal(t, "https://box-285x380.jpg", u.Stream.Category.BoxArt)

	content := ch.Content
	require.Len(t, content.Follower.Emotes, 1)
	require.Len(t, content.Bits.Emotes, 1)
	assert.Equal(t, "1,000", content.Bits.Emotes[0].Value)
	require.Len(t, content.Bits.Badges, 1)
	assert.Equal(t, "cheer", content.Bits.Badges[0].Title)
	assert.Equal(t, "1000/71092938", content.Bits.Badges[0].Version)

	assert.Equal(t, "Tier 1", content.Sub.Title)
	require.Len(t, content.Sub.Badges, 1)
	assert.Equal(t, "0/71092938", content.Sub.Badges[0].Version)
	require.Len(t, content.SubT2.Badges, 1)
	assert.Equal(t, "1 months", content.SubT2.Badges[0].Value)
	assert.Equal(t, "https://flair/2000", content.SubT2.Flair)
	assert.Equal(t, "https://flair/3000", content.SubT3.Flair)
	assert.Empty(t, content.SubT3.Emotes)

	require.NotNil(t, content.Points)
	assert.Equal(t, "Channel Points", content.Points.Name)
	assert.Equal(t, "https://points", content.Points.Image)
}

func TestSearch(t *testing.T) {
	c, mux := newTwitch(t, nil)
	handleGQL(t, mux, map[string]func(map[string]any) any{
		"Channels": func(vars map[string]any) any {
			assert.Equal(t, "xqc", vars["query"])
			assert.EqualValues(t, 50, vars["first"])
			return map[string]any{"searchUsers": map[string]any{"edges": []any{
				map[string]any{"node": map[string]any{"id": "1", "login": "xqc", "displayName": "xQc", "profileImageURL": "https://a"}},
			}}}
		},
	})

	users, err := c.Search(context.Background(), "xqc", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "xQc", users[0].Username)
	assert.Equal(t, siteURL+"/xqc", users[0].Source)
}

func TestBanner(t *testing.T) {
	b := Banner("abc", "")
	body, ok := strings.CutPrefix(b, "data:image/svg+xml;utf8,")
	require.True(t, ok)
	assert.Contains(t, body, "%23cba6f7")
	assert.NotContains(t, body, "+")
}
