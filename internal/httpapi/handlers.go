package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/channellink"
	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/vault"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

// pathNavigator rewrites segments of the request path as the vault
// canonicalizes aliases and ids; the result is sent as Content-Location.
type pathNavigator struct {
	mu      sync.Mutex
	segs    []string
	changed bool
}

func newPathNavigator(path string) *pathNavigator {
	return &pathNavigator{segs: strings.Split(path, "/")}
}

func (n *pathNavigator) Replace(from, to string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, seg := range n.segs {
		if seg == from {
			n.segs[i] = to
			n.changed = true
			return
		}
	}
}

func (n *pathNavigator) location() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return strings.Join(n.segs, "/"), n.changed
}

// entityResponse pairs an entity with its page metadata.
type entityResponse struct {
	Data any             `json:"data"`
	Meta *vault.PageMeta `json:"meta,omitempty"`
}

// navigated runs fn with a path navigator attached and reports the canonical
// location on w.
func navigated(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) error {
	nav := newPathNavigator(r.URL.Path)
	err := fn(vault.WithNavigator(r.Context(), nav))
	if loc, ok := nav.location(); ok {
		if r.URL.RawQuery != "" {
			loc += "?" + r.URL.RawQuery
		}
		w.Header().Set("Content-Location", loc)
	}
	return err
}

func (s *Server) handleEmote(w http.ResponseWriter, r *http.Request) {
	alias, rest := r.PathValue("provider"), r.PathValue("id")
	switch {
	case strings.HasSuffix(rest, "/extras"):
		s.emoteExtras(w, r, alias, strings.TrimSuffix(rest, "/extras"))
		return
	case strings.HasSuffix(rest, "/channels"):
		s.emoteChannels(w, r, alias, strings.TrimSuffix(rest, "/channels"))
		return
	}

	var e core.Emote
	err := navigated(w, r, func(ctx context.Context) (err error) {
		e, err = s.vault.Emote(ctx, alias, rest)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta := vault.EmoteMeta(e)
	s.writeJSON(w, r, http.StatusOK, entityResponse{Data: e, Meta: &meta})
}

func (s *Server) emoteExtras(w http.ResponseWriter, r *http.Request, alias, id string) {
	q := r.URL.Query()
	x, err := s.vault.EmoteExtras(r.Context(), alias, q.Get("channel"), id, q.Get("name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, x)
}

func (s *Server) emoteChannels(w http.ResponseWriter, r *http.Request, alias, id string) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	var out core.Channels
	err := navigated(w, r, func(ctx context.Context) (err error) {
		out, err = s.vault.Channels(ctx, alias, id, page, q.Get("before"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleBadge(w http.ResponseWriter, r *http.Request) {
	alias, rest := r.PathValue("provider"), r.PathValue("id")
	if id, ok := strings.CutSuffix(rest, "/extras"); ok {
		x, err := s.vault.BadgeExtras(r.Context(), alias, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, x)
		return
	}

	var b core.Badge
	err := navigated(w, r, func(ctx context.Context) (err error) {
		b, err = s.vault.Badge(ctx, alias, rest)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta := vault.BadgeMeta(b)
	s.writeJSON(w, r, http.StatusOK, entityResponse{Data: b, Meta: &meta})
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	var ch core.ChannelData
	err := navigated(w, r, func(ctx context.Context) (err error) {
		ch, err = s.vault.Channel(ctx, r.PathValue("provider"), r.PathValue("login"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta := vault.ChannelMeta(ch)
	s.writeJSON(w, r, http.StatusOK, entityResponse{Data: ch, Meta: &meta})
}

func (s *Server) handleChannelEmotes(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		platform = string(core.Twitch)
	}
	var out []core.ChannelProvider
	err := navigated(w, r, func(ctx context.Context) (err error) {
		out, err = s.vault.ChannelEmotes(ctx, r.PathValue("provider"), r.PathValue("id"), platform)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var set core.Set
	err := navigated(w, r, func(ctx context.Context) (err error) {
		set, err = s.vault.Set(ctx, r.PathValue("provider"), r.PathValue("id"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	meta := vault.SetMeta(set)
	s.writeJSON(w, r, http.StatusOK, entityResponse{Data: set, Meta: &meta})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeJSON(w, r, http.StatusOK, []core.User{})
		return
	}
	limit := defaultSearchLimit
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, maxSearchLimit)
	}
	rank, _ := strconv.ParseBool(q.Get("rank"))

	var users []core.User
	err := navigated(w, r, func(ctx context.Context) (err error) {
		users, err = s.vault.Search(ctx, r.PathValue("provider"), query, limit, rank)
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []core.User{}
	}
	s.writeJSON(w, r, http.StatusOK, users)
}

func (s *Server) handleGlobalEmotes(w http.ResponseWriter, r *http.Request) {
	var out []core.Emotes
	err := navigated(w, r, func(ctx context.Context) (err error) {
		out, err = s.vault.GlobalEmotes(ctx, r.PathValue("provider"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGlobalBadges(w http.ResponseWriter, r *http.Request) {
	var out []core.Badges
	err := navigated(w, r, func(ctx context.Context) (err error) {
		out, err = s.vault.GlobalBadges(ctx, r.PathValue("provider"))
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	m, ok := channellink.Info(raw)
	if !ok {
		s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: s.catalog.T(r.Context(), "status.404"), Status: http.StatusNotFound})
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"platform": string(m.Platform),
		"username": m.Username,
		"path":     m.Path(),
	})
}

// prefsBody is the preference document. An empty theme means "system".
type prefsBody struct {
	Locale string `json:"locale"`
	Theme  string `json:"theme"`
}

func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		s.writeJSON(w, r, http.StatusOK, prefsBody{})
		return
	}
	var body prefsBody
	var err error
	if body.Locale, err = s.prefs.Pref(r.Context(), cache.PrefLocale); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Theme, err = s.prefs.Pref(r.Context(), cache.PrefTheme); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable, errorBody{Error: "preferences unavailable", Status: http.StatusServiceUnavailable})
		return
	}
	defer r.Body.Close()
	var body prefsBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "bad json", Status: http.StatusBadRequest})
		return
	}

	switch body.Theme {
	case "system":
		body.Theme = ""
	case "", "light", "dark":
	default:
		s.writeJSON(w, r, http.StatusBadRequest, errorBody{Error: "theme must be light, dark or system", Status: http.StatusBadRequest})
		return
	}
	if body.Locale != "" {
		body.Locale = s.catalog.Resolve(body.Locale)
	}

	if err := s.prefs.SetPref(r.Context(), cache.PrefLocale, body.Locale); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.prefs.SetPref(r.Context(), cache.PrefTheme, body.Theme); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, body)
}
