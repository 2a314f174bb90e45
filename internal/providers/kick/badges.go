package kick

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
)

// Global badge artwork ships with the web frontend; the manifest lists the
// available id_version files.
//
//go:embed badges.json
var badgeManifest []byte

// BadgeImageBase prefixes global badge image paths.
var BadgeImageBase = "/images/badge/kick"

var (
	numericID    = regexp.MustCompile(`^\d+$`)
	shortVersion = regexp.MustCompile(`^\d{1,5}$`)
)

func manifestEntries() ([]string, error) {
	var files []string
	if err := json.Unmarshal(badgeManifest, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (c *Client) GlobalBadges(ctx context.Context) ([]core.Badges, error) {
	const op = "Global Badges"
	files, err := manifestEntries()
	if err != nil {
		return nil, core.Malformed(core.Kick, op, err)
	}

	out := make([]core.Badges, 0, len(files))
	for _, file := range files {
		id, version, _ := strings.Cut(file, "_")
		count := version
		if count == "" {
			count = "0"
		}
		if version == "" {
			version = "1"
		}
		out = append(out, core.Badges{
			ID:       id,
			Title:    c.up.T(ctx, "badge.kick."+id, "count", count),
			Version:  version,
			Image:    fmt.Sprintf("%s/%s.svg", BadgeImageBase, file),
			Provider: core.Kick,
		})
	}
	return textutil.SortBadges(out), nil
}

func (c *Client) globalVersions(ctx context.Context, id string) ([]core.Badges, error) {
	all, err := c.GlobalBadges(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Badges
	for _, b := range all {
		if b.ID == id {
			out = append(out, b)
		}
	}
	return out, nil
}

// Badge resolves three id shapes: a bare numeric subscriber badge id, a
// global "id[/version]" and a channel "id/months/slug" (or "id/slug").
func (c *Client) Badge(ctx context.Context, badgeID string) (core.Badge, error) {
	parts := strings.Split(badgeID, "/")
	id := parts[0]
	var version, channel string
	if len(parts) > 1 {
		version = parts[1]
	}
	if len(parts) > 2 {
		channel = parts[2]
	}

	switch {
	case channel == "" && version == "" && numericID.MatchString(id):
		return c.bareSubscriberBadge(ctx, id)
	case channel == "" && (version == "" || shortVersion.MatchString(version)):
		if version == "" {
			version = "1"
		}
		return c.globalBadge(ctx, id, version)
	default:
		slug := channel
		if slug == "" {
			slug = version
		}
		return c.channelBadge(ctx, id, version, slug)
	}
}

func (c *Client) bareSubscriberBadge(ctx context.Context, id string) (core.Badge, error) {
	const op = "Badge"
	num, _ := strconv.Atoi(id)
	image := subBadgeImage(num)
	ok, err := c.up.Exists(ctx, core.Kick, op, image)
	if err != nil {
		return core.Badge{}, err
	}
	if !ok {
		return core.Badge{}, c.up.NotFound(ctx, core.Kick, op)
	}
	return core.Badge{
		ID:       id,
		Provider: core.Kick,
		Images:   []string{image, image, image},
		Related:  core.Related{List: []core.Badges{}},
		Type:     "SUBSCRIPTIONS",
	}, nil
}

func (c *Client) globalBadge(ctx context.Context, id, version string) (core.Badge, error) {
	const op = "Badge"
	versions, err := c.globalVersions(ctx, id)
	if err != nil {
		return core.Badge{}, err
	}
	badge, related, ok := providers.PickVersion(versions, version)
	if !ok {
		return core.Badge{}, c.up.NotFound(ctx, core.Kick, op)
	}

	badgeType, description := "GLOBALS", badge.Title
	if badge.ID == "subscriber" {
		badgeType, description = "SUBSCRIPTIONS", ""
	}
	owner := officialOwner
	return core.Badge{
		ID:          badge.ID,
		Name:        badge.Title,
		Provider:    core.Kick,
		Owner:       &owner,
		Images:      []string{badge.Image, badge.Image, badge.Image},
		Version:     badge.Version,
		Description: description,
		Related:     core.Related{Total: len(related), List: related},
		Type:        badgeType,
		Global:      true,
	}, nil
}

func (c *Client) channelBadge(ctx context.Context, id, version, slug string) (core.Badge, error) {
	const op = "Badge"
	data, err := c.channelInfo(ctx, op, slug)
	if err != nil {
		return core.Badge{}, err
	}
	if data.SubscriberBadges == nil {
		return core.Badge{}, c.up.ServerError(ctx, core.Kick, op)
	}

	byID := numericID.MatchString(id)
	var match *apiSubBadge
	for i := range data.SubscriberBadges {
		b := &data.SubscriberBadges[i]
		if (byID && strconv.Itoa(b.ID) == id) || (!byID && strconv.Itoa(b.Months) == version) {
			match = b
			break
		}
	}
	if match == nil {
		return core.Badge{}, c.up.NotFound(ctx, core.Kick, op)
	}

	related := []core.Badges{}
	for _, b := range data.SubscriberBadges {
		if b.ID != match.ID {
			related = append(related, c.subscriberSummary(ctx, b, data.Slug, false))
		}
	}
	globals, err := c.globalVersions(ctx, "subscriber")
	if err != nil {
		return core.Badge{}, err
	}
	related = append(related, globals...)

	username := textutil.CompareName(data.Slug, data.User.Username)
	image := subBadgeImage(match.ID)
	return core.Badge{
		ID:       "subscriber",
		Name:     locale.FormatDuration(ctx, c.up.Messages(), match.Months, true),
		Provider: core.Kick,
		Owner: &core.User{
			ID:       strconv.Itoa(data.ID),
			Username: username,
			Avatar:   data.User.avatar(),
			Platform: string(core.Kick),
			Source:   siteURL + "/" + username,
		},
		Images:  []string{image, image, image},
		Version: fmt.Sprintf("%d/%s", match.Months, data.Slug),
		Related: core.Related{Total: len(related), List: related},
		Type:    "SUBSCRIPTIONS",
		Source:  siteURL + "/" + username + "/subscribe",
	}, nil
}
