package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/upstream"
)

// ResolveChannel scrapes a channel page (handle, /channel/UC..., /c/ or /user/)
// and returns the owner identity embedded in ytInitialData.
func (c *Client) ResolveChannel(ctx context.Context, raw string) (core.User, error) {
	const op = "Channel"
	target, err := normalizeChannelURL(raw)
	if err != nil {
		return core.User{}, core.InvalidInput(core.YouTube, op, err)
	}

	resp, err := c.up.Do(ctx, upstream.Request{Provider: core.YouTube, Op: op, URL: target.String()})
	if err != nil {
		return core.User{}, err
	}

	meta, ok := channelMetadata(string(resp.Body))
	if !ok || meta.ExternalID == "" {
		return core.User{}, c.up.NotFound(ctx, core.YouTube, op)
	}
	return meta.user(), nil
}

// normalizeChannelURL coerces handles and channel URLs into a fetchable
// https://www.youtube.com address.
func normalizeChannelURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("youtube: empty channel")
	}
	if strings.HasPrefix(trimmed, "@") {
		trimmed = siteURL + "/" + trimmed
	}
	if strings.HasPrefix(trimmed, "UC") && !strings.Contains(trimmed, "/") {
		trimmed = siteURL + "/channel/" + trimmed
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("youtube: parse url: %w", err)
	}
	u.Fragment = ""
	u.RawQuery = ""

	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("youtube: parse site url: %w", err)
	}

	switch strings.ToLower(u.Host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", strings.ToLower(base.Host):
	default:
		return nil, fmt.Errorf("youtube: unsupported host %q", u.Host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(segments) >= 1 && strings.HasPrefix(segments[0], "@"):
		u.Path = "/" + segments[0]
	case len(segments) >= 2 && (segments[0] == "channel" || segments[0] == "c" || segments[0] == "user"):
		u.Path = "/" + segments[0] + "/" + segments[1]
	default:
		return nil, fmt.Errorf("youtube: not a channel url %q", raw)
	}
	u.Scheme = base.Scheme
	u.Host = base.Host
	return u, nil
}

type channelMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ExternalID  string `json:"externalId"`
	VanityURL   string `json:"vanityChannelUrl"`
	Avatar      struct {
		Thumbnails []struct {
			URL string `json:"url"`
		} `json:"thumbnails"`
	} `json:"avatar"`
}

func (m channelMeta) user() core.User {
	avatar := ""
	if n := len(m.Avatar.Thumbnails); n > 0 {
		avatar = m.Avatar.Thumbnails[n-1].URL
	}
	username := m.Title
	source := siteURL + "/channel/" + m.ExternalID
	if m.VanityURL != "" {
		source = m.VanityURL
		if i := strings.LastIndex(m.VanityURL, "/@"); i >= 0 {
			username = m.VanityURL[i+2:]
		}
	}
	return core.User{
		ID:       m.ExternalID,
		Username: username,
		Avatar:   avatar,
		Platform: string(core.YouTube),
		Source:   source,
	}
}

func channelMetadata(body string) (channelMeta, bool) {
	raw, ok := extractJSONAssignment(body, "ytInitialData")
	if !ok {
		return channelMeta{}, false
	}
	var payload struct {
		Metadata struct {
			Channel channelMeta `json:"channelMetadataRenderer"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return channelMeta{}, false
	}
	meta := payload.Metadata.Channel
	meta.Title = html.UnescapeString(meta.Title)
	return meta, true
}

// extractJSONAssignment finds `marker = {...}` in page source and returns the
// balanced JSON literal.
func extractJSONAssignment(body, marker string) (string, bool) {
	search := 0
	for {
		idx := strings.Index(body[search:], marker)
		if idx == -1 {
			return "", false
		}
		idx += search
		pos := idx + len(marker)
		for pos < len(body) {
			ch := body[pos]
			if ch == '=' {
				pos++
				break
			}
			if unicode.IsSpace(rune(ch)) || ch == ']' || ch == '"' || ch == '\'' || ch == '.' || ch == ')' {
				pos++
				continue
			}
			pos = -1
			break
		}
		if pos == -1 || pos >= len(body) {
			search = idx + len(marker)
			continue
		}
		for pos < len(body) && unicode.IsSpace(rune(body[pos])) {
			pos++
		}
		if pos >= len(body) {
			return "", false
		}
		if body[pos] != '{' {
			search = idx + len(marker)
			continue
		}
		if slice, ok := sliceBalancedJSON(body[pos:]); ok {
			return slice, true
		}
		search = idx + len(marker)
	}
}

func sliceBalancedJSON(s string) (string, bool) {
	depth := 0
	inString, escape := false, false
	for i, r := range s {
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth < 0 {
				return "", false
			}
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
