package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/upstream"
)

type globalList map[string]string

func (g globalList) GlobalEmote(_ context.Context, _ core.Provider, id string) (core.Emotes, bool) {
	name, ok := g[id]
	return core.Emotes{ID: id, Name: name, Provider: core.YouTube}, ok
}

func (g globalList) GlobalBadgeVersions(context.Context, core.Provider, string) []core.Badges {
	return nil
}

func newTestClient(t *testing.T, mux *http.ServeMux, globals globalList) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prevImage, prevList, prevSite := imageBaseURL, emojiListURL, siteURL
	imageBaseURL = srv.URL + "/img"
	emojiListURL = srv.URL + "/emojis.json"
	siteURL = srv.URL
	t.Cleanup(func() { imageBaseURL, emojiListURL, siteURL = prevImage, prevList, prevSite })

	return New(upstream.New(upstream.Options{HostRPS: 1000, HostBurst: 1000}), globals)
}

func TestGlobalEmoteSkipsProbe(t *testing.T) {
	var probes atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
	})
	c := newTestClient(t, mux, globalList{"yt-hand-wave": ":hand-wave:"})

	e, err := c.Emote(context.Background(), "yt-hand-wave")
	if err != nil {
		t.Fatalf("Emote: %v", err)
	}
	if probes.Load() != 0 {
		t.Fatalf("global emotes must not probe the CDN")
	}
	if !e.Global || e.Type != "GLOBALS" || e.Name != ":hand-wave:" {
		t.Fatalf("unexpected emote: %+v", e)
	}
	if e.Owner == nil || e.Owner.ID != "UCBR8-60-B28hp2BmDPdntcQ" {
		t.Fatalf("owner: %+v", e.Owner)
	}
	if len(e.Images) != 3 || !strings.HasSuffix(e.Images[1], "=s48-c") {
		t.Fatalf("images: %v", e.Images)
	}
}

func TestChannelEmoteProbesImage(t *testing.T) {
	var probed string
	mux := http.NewServeMux()
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.Path
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png"))
	})
	c := newTestClient(t, mux, nil)

	e, err := c.Emote(context.Background(), "abcDEF")
	if err != nil {
		t.Fatalf("Emote: %v", err)
	}
	if probed != "/img/abcDEF=s48-c" {
		t.Fatalf("probed %q", probed)
	}
	if e.Global || e.Owner != nil || e.Type != "CHANNEL" {
		t.Fatalf("unexpected emote: %+v", e)
	}

	_, err = c.Emote(context.Background(), "missing")
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err.Error() != "[YouTube] Emote | 404: Not found" {
		t.Fatalf("message: %q", err.Error())
	}
}

func TestGlobalEmotesList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/emojis.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"UCkszU2WH9gy1mb0dV-11UJg/abc","name":":yt:","image":"https://yt3.ggpht.com/abc"},{"id":42,"name":":n:","image":"x"}]`))
	})
	c := newTestClient(t, mux, nil)

	got, err := c.GlobalEmotes(context.Background())
	if err != nil {
		t.Fatalf("GlobalEmotes: %v", err)
	}
	if len(got) != 2 || got[0].Name != ":yt:" || got[1].ID != "42" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

const channelPage = `<html><head><script>var ytInitialData = {"metadata":{"channelMetadataRenderer":{"title":"Tom &amp; Co","externalId":"UC123","vanityChannelUrl":"http://www.youtube.com/@tomco","avatar":{"thumbnails":[{"url":"https://yt3/a=s900"}]}}},"x":"}"};</script></head></html>`

func TestResolveChannelFromHandle(t *testing.T) {
	var path string
	mux := http.NewServeMux()
	mux.HandleFunc("/@tomco", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(channelPage))
	})
	c := newTestClient(t, mux, nil)

	u, err := c.ResolveChannel(context.Background(), "@tomco")
	if err != nil {
		t.Fatalf("ResolveChannel: %v", err)
	}
	if path != "/@tomco" {
		t.Fatalf("path %q", path)
	}
	if u.ID != "UC123" || u.Username != "tomco" || u.Avatar != "https://yt3/a=s900" {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestNormalizeChannelURL(t *testing.T) {
	cases := map[string]string{
		"@handle":                                  "https://www.youtube.com/@handle",
		"https://youtube.com/@handle/videos":       "https://www.youtube.com/@handle",
		"www.youtube.com/channel/UCabc/featured":   "https://www.youtube.com/channel/UCabc",
		"UCxyz":                                    "https://www.youtube.com/channel/UCxyz",
		"https://m.youtube.com/c/SomeName?x=1#top": "https://www.youtube.com/c/SomeName",
	}
	for in, want := range cases {
		got, err := normalizeChannelURL(in)
		if err != nil {
			t.Fatalf("normalize %q: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("normalize %q = %q, want %q", in, got.String(), want)
		}
	}
	for _, bad := range []string{"", "https://example.com/@x", "https://youtube.com/watch"} {
		if _, err := normalizeChannelURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
