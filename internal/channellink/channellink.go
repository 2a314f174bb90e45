// Package channellink recognises channel profile URLs on the streaming
// platforms and maps them onto the local channel page path.
package channellink

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/you/chatvault/internal/core"
)

// Match is a recognised channel.
type Match struct {
	Platform core.Provider
	Username string
}

// Path is the local channel page for m.
func (m Match) Path() string {
	return "/channel/" + string(m.Platform) + "/" + m.Username
}

// pattern captures the username from the segment after marker, or from the
// first segment when marker is empty. prefix is prepended to the capture.
type pattern struct {
	marker string
	prefix string
}

type platform struct {
	provider core.Provider
	domains  []string
	patterns []pattern
	reserved map[string]struct{}
	valid    func(string) bool
	lower    bool
}

var (
	schemeRe = regexp.MustCompile(`^[a-zA-Z]+://`)

	twitchName  = regexp.MustCompile(`^[a-zA-Z0-9_]{1,25}$`)
	kickName    = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,25}$`)
	youtubeAt   = regexp.MustCompile(`^@[a-zA-Z0-9_.-]{1,30}$`)
	youtubeUC   = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)
	youtubeName = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,50}$`)
)

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var platforms = []platform{
	{
		provider: core.Twitch,
		domains:  []string{"twitch.tv"},
		patterns: []pattern{{marker: "u"}, {}},
		reserved: set("directory", "settings", "friends", "following", "subscriptions", "inventory",
			"wallet", "prime", "turbo", "drops", "jobs", "security", "downloads", "creatorcamp",
			"brand", "legal", "privacy", "community-guidelines", "p", "u"),
		valid: twitchName.MatchString,
		lower: true,
	},
	{
		provider: core.YouTube,
		domains:  []string{"youtube.com", "youtu.be"},
		patterns: []pattern{{marker: "channel"}, {marker: "user"}, {marker: "c"}, {marker: "@", prefix: "@"}, {}},
		reserved: set("watch", "playlist", "results", "feed", "trending", "subscriptions", "library",
			"history", "upload", "create", "studio", "analytics", "comments", "live", "gaming", "sports",
			"music", "news", "learning", "fashion", "account", "reporthistory", "pair", "tv",
			"attribution_link", "redirect", "supported_browsers", "t", "embed", "iframe_api",
			"playlist_ajax", "get_video_info", "api"),
		valid: validYouTube,
	},
	{
		provider: core.Kick,
		domains:  []string{"kick.com"},
		patterns: []pattern{{}},
		reserved: set("browse", "dashboard", "settings", "privacy", "terms", "guidelines", "support",
			"about", "jobs", "press", "api", "developers", "mobile", "download", "legal", "blog",
			"help", "contact", "categories"),
		valid: kickName.MatchString,
		lower: true,
	},
}

func validYouTube(name string) bool {
	switch {
	case strings.HasPrefix(name, "@"):
		return youtubeAt.MatchString(name)
	case strings.HasPrefix(name, "UC") && len(name) == 24:
		return youtubeUC.MatchString(name)
	}
	return youtubeName.MatchString(name)
}

// segmentChar reports whether r may appear in a captured segment.
func segmentChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("._~@%-", r)
}

func leading(seg string) string {
	for i, r := range seg {
		if !segmentChar(r) {
			return seg[:i]
		}
	}
	return seg
}

// capture applies p to the path segments.
func (p pattern) capture(segs []string) string {
	if p.marker == "" {
		if len(segs) == 0 {
			return ""
		}
		return leading(segs[0])
	}
	if p.marker == "@" {
		for _, s := range segs {
			if strings.HasPrefix(s, "@") {
				if name := leading(s[1:]); name != "" {
					return p.prefix + name
				}
			}
		}
		return ""
	}
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] == p.marker {
			if name := leading(segs[i+1]); name != "" {
				return p.prefix + name
			}
		}
	}
	return ""
}

func (pl platform) accepts(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := pl.reserved[strings.ToLower(name)]; ok {
		return false
	}
	return pl.valid(name)
}

// Info recognises raw as a channel URL. A missing scheme is assumed https.
func Info(raw string) (Match, bool) {
	raw = strings.TrimSpace(raw)
	if !schemeRe.MatchString(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		slog.Debug("channellink: parse failed", "url", raw, "err", err)
		return Match{}, false
	}
	host := strings.ToLower(u.Hostname())
	segs := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
	if len(segs) == 1 && segs[0] == "" {
		segs = nil
	}

	for _, pl := range platforms {
		if !matchesDomain(host, pl.domains) {
			continue
		}
		for _, p := range pl.patterns {
			name := p.capture(segs)
			if !pl.accepts(name) {
				continue
			}
			if pl.lower {
				name = strings.ToLower(name)
			}
			return Match{Platform: pl.provider, Username: name}, true
		}
	}
	return Match{}, false
}

// Parse returns the local channel page path for raw.
func Parse(raw string) (string, bool) {
	m, ok := Info(raw)
	if !ok {
		return "", false
	}
	return m.Path(), true
}

func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}
