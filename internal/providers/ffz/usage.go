package ffz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

// The public emote page is the only source of per-channel usage.
var (
	usageTotal = regexp.MustCompile(`Used in ([\d,]+) set`)
	usageRows  = cascadia.MustCompile("table.emote-table > tbody > tr")
	cellImage  = cascadia.MustCompile("img")
	cellLink   = cascadia.MustCompile("a")
	tableBody  = cascadia.MustCompile("table.emote-table > tbody")
)

// Placeholder listed when the page reports usage but hides the table, which
// happens for emotes only used in FrankerFaceZ's own sets.
const (
	ffzChannelID   = "46622312"
	ffzChannelName = "FrankerFaceZ"
)

// Usage scrapes one page of the emote's channel table.
func (c *Client) Usage(ctx context.Context, emoteID string, page int, _ string) (core.Channels, error) {
	const op = "Channels"
	if page < 1 {
		page = 1
	}
	endpoint := fmt.Sprintf("%s/emoticon/%s?c_page=%d", siteURL, upstream.Escape(emoteID), page)

	resp, err := c.up.Do(ctx, upstream.Request{Provider: core.FFZ, Op: op, URL: endpoint})
	if err != nil {
		return core.Channels{}, err
	}
	doc, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return core.Channels{}, core.Malformed(core.FFZ, op, errors.Wrap(err, "parse emote page"))
	}
	return parseUsage(doc, page), nil
}

func parseUsage(doc *html.Node, page int) core.Channels {
	total := 0
	if m := usageTotal.FindStringSubmatch(textContent(doc)); m != nil {
		total, _ = strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	}

	if cascadia.Query(doc, tableBody) == nil {
		if page == 1 && total > 0 {
			return core.Channels{Total: 1, List: []core.Channel{{
				ID:       ffzChannelID,
				Avatar:   avatar(string(core.Twitch), ffzChannelID),
				Username: ffzChannelName,
				Platform: string(core.Twitch),
			}}}
		}
		return core.Channels{Total: 0, List: []core.Channel{}}
	}

	list := []core.Channel{}
	for _, row := range cascadia.QueryAll(doc, usageRows) {
		cells := childElements(row, "td")
		// Each row holds two channels: cells 1/2 and 4/5.
		for _, pair := range [][2]int{{1, 2}, {4, 5}} {
			if ch, ok := channelFromCells(cells, pair[0], pair[1]); ok {
				list = append(list, ch)
			}
		}
	}
	return core.Channels{Total: total, List: list}
}

func channelFromCells(cells []*html.Node, imgIdx, linkIdx int) (core.Channel, bool) {
	if imgIdx >= len(cells) || linkIdx >= len(cells) {
		return core.Channel{}, false
	}
	img := cascadia.Query(cells[imgIdx], cellImage)
	link := cascadia.Query(cells[linkIdx], cellLink)
	if img == nil || link == nil {
		return core.Channel{}, false
	}
	src := attr(img, "src")
	if src == "" {
		return core.Channel{}, false
	}
	login := lastSegment(attr(link, "href"))
	return core.Channel{
		ID:       lastSegment(src),
		Avatar:   src,
		Username: textutil.CompareName(login, textContent(link)),
		Platform: string(core.Twitch),
	}, true
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.Data == tag {
			out = append(out, child)
		}
	}
	return out
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
