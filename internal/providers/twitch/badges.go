package twitch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/providers"
	"github.com/you/chatvault/internal/textutil"
	"github.com/you/chatvault/internal/upstream"
)

var (
	imageUUID = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	numericID = regexp.MustCompile(`^\d{1,10}$`)
)

const badgeFields = `
	id
	title
	setID
	version
	clickURL
	description
	onClickAction
	image_url_1x: imageURL(size: NORMAL)
	image_url_2x: imageURL(size: DOUBLE)
	image_url_4x: imageURL(size: QUADRUPLE)`

const globalBadgesQuery = `query GlobalBadges {
	badges {` + badgeFields + `
	}
}`

const channelBadgesQuery = `query ChannelBadges($id: ID, $login: String) {
	user(id: $id, login: $login, lookupType: ALL) {
		id
		login
		displayName
		profileImageURL(width: 300)
		broadcastBadges {` + badgeFields + `
		}
	}
}`

// badgeType maps a badge set onto the emote-type vocabulary shared with
// emotes. Unknown sets are GLOBALS when global, otherwise untyped.
func badgeType(setID string, global bool) string {
	switch setID {
	case "bits":
		return "BITS_BADGE_TIERS"
	case "subscriber":
		return "SUBSCRIPTIONS"
	case "flair":
		return "FLAIR"
	case "points":
		return "CHANNEL_POINTS"
	}
	if global {
		return "GLOBALS"
	}
	return ""
}

func (c *Client) badgeValue(ctx context.Context, setID, version string) string {
	switch setID {
	case "bits":
		return locale.FormatNumber(ctx, atoi(version))
	case "subscriber":
		return locale.FormatDuration(ctx, c.up.Messages(), atoi(version), false)
	}
	return ""
}

func (c *Client) GlobalBadges(ctx context.Context) ([]core.Badges, error) {
	const op = "Global Badges"
	var data struct {
		Badges []apiBadge `json:"badges"`
	}
	if err := c.gql(ctx, op, upstream.GraphQLRequest{OperationName: "GlobalBadges", Query: globalBadgesQuery}, &data); err != nil {
		return nil, err
	}
	if len(data.Badges) == 0 {
		return nil, c.up.NotFound(ctx, core.Twitch, op)
	}

	out := make([]core.Badges, 0, len(data.Badges))
	for _, b := range data.Badges {
		description := strings.TrimSpace(b.Description)
		if b.SetID == "subscriber" {
			description = ""
		}
		out = append(out, core.Badges{
			ID:          b.SetID,
			Title:       b.Title,
			Value:       c.badgeValue(ctx, b.SetID, b.Version),
			Version:     b.Version,
			Description: description,
			ClickAction: strings.ToLower(b.OnClickAction),
			ClickURL:    b.ClickURL,
			Type:        badgeType(b.SetID, false),
			Image:       b.ImageURL4x,
			Provider:    core.Twitch,
		})
	}
	return textutil.SortBadges(out), nil
}

// globalVersions prefers the shared index and falls back to a direct fetch
// when the index has nothing for id.
func (c *Client) globalVersions(ctx context.Context, id string) ([]core.Badges, error) {
	if versions := c.globals.GlobalBadgeVersions(ctx, core.Twitch, id); len(versions) > 0 {
		return versions, nil
	}
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

// Badge resolves "id[/version]" global badges, "id/version/channel" channel
// badges, "flair/<2000|3000>[/channel]" subscription flair and bare image
// UUIDs.
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
	isUUID := uuid.Validate(id) == nil

	switch {
	case id == "flair":
		return c.flairBadge(ctx, version, channel)
	case channel == "" && version == "" && isUUID:
		return c.uuidBadge(ctx, id)
	case channel == "" && !isUUID:
		if version == "" {
			version = "1"
		}
		return c.globalBadge(ctx, id, version)
	default:
		return c.channelBadge(ctx, id, version, channel, isUUID)
	}
}

func (c *Client) flairBadge(ctx context.Context, version, channel string) (core.Badge, error) {
	const op = "Badge"
	if version != "2000" && version != "3000" {
		return core.Badge{}, c.up.NotFound(ctx, core.Twitch, op)
	}

	owner := official()
	folder := "default"
	source := ""
	if channel != "" {
		u, err := c.User(ctx, channel, numericID.MatchString(channel))
		if err != nil {
			return core.Badge{}, err
		}
		owner = &u
		folder = u.ID
		source = siteURL + "/subs/" + u.Username
		ok, err := c.up.Exists(ctx, core.Twitch, op, fmt.Sprintf("%s/%s/%s/18x18.png", flairURL, folder, version))
		if err != nil || !ok {
			folder = "default"
		}
	}

	images := make([]string, 0, 3)
	for _, size := range []string{"18x18", "36x36", "72x72"} {
		images = append(images, fmt.Sprintf("%s/%s/%s/%s.png", flairURL, folder, version, size))
	}
	return core.Badge{
		ID:       "flair",
		Name:     c.up.T(ctx, "common.flair"),
		Provider: core.Twitch,
		Owner:    owner,
		Images:   images,
		Version:  version + "/" + owner.ID,
		Related:  core.Related{List: []core.Badges{}},
		Type:     "FLAIR",
		Tier:     core.IntPtr(atoi(version) / 1000),
		Global:   folder == "default",
		Source:   source,
	}, nil
}

func (c *Client) uuidBadge(ctx context.Context, id string) (core.Badge, error) {
	const op = "Badge"
	image := fmt.Sprintf("%s/badges/v1/%s/3", cdnURL, id)
	ok, err := c.up.Exists(ctx, core.Twitch, op, image)
	if err != nil {
		return core.Badge{}, err
	}
	if !ok {
		return core.Badge{}, c.up.NotFound(ctx, core.Twitch, op)
	}

	all, err := c.GlobalBadges(ctx)
	if err != nil {
		all = nil
	}
	for _, b := range all {
		if !strings.Contains(b.Image, id) {
			continue
		}
		related := []core.Badges{}
		for _, r := range all {
			if r.ID == b.ID && r.Version != b.Version {
				related = append(related, r)
			}
		}
		return c.finish(ctx, b, official(), related, true), nil
	}

	return c.finish(ctx, core.Badges{ID: id, Image: image, Provider: core.Twitch}, nil, []core.Badges{}, false), nil
}

func (c *Client) globalBadge(ctx context.Context, id, version string) (core.Badge, error) {
	versions, err := c.globalVersions(ctx, id)
	if err != nil {
		return core.Badge{}, err
	}
	badge, related, ok := providers.PickVersion(versions, version)
	if !ok {
		return core.Badge{}, c.up.NotFound(ctx, core.Twitch, "Badge")
	}
	return c.finish(ctx, badge, official(), related, true), nil
}

func (c *Client) channelBadge(ctx context.Context, id, version, channel string, isUUID bool) (core.Badge, error) {
	const op = "Badge"
	who := channel
	if who == "" {
		who = version
	}
	vars := map[string]any{"login": who}
	if numericID.MatchString(who) {
		vars = map[string]any{"id": who}
	}

	var data struct {
		User *struct {
			apiUser
			BroadcastBadges []apiBadge `json:"broadcastBadges"`
		} `json:"user"`
	}
	if err := c.gql(ctx, op, upstream.GraphQLRequest{OperationName: "ChannelBadges", Query: channelBadgesQuery, Variables: vars}, &data); err != nil {
		return core.Badge{}, err
	}
	if data.User == nil || len(data.User.BroadcastBadges) == 0 {
		return core.Badge{}, c.up.NotFound(ctx, core.Twitch, op)
	}
	u := data.User

	var match *apiBadge
	for i := range u.BroadcastBadges {
		b := &u.BroadcastBadges[i]
		if (isUUID && strings.Contains(b.ImageURL4x, id)) || (!isUUID && b.SetID == id && b.Version == version) {
			match = b
			break
		}
	}
	if match == nil {
		return core.Badge{}, c.up.NotFound(ctx, core.Twitch, op)
	}

	tier, _ := textutil.TierOf(atoi(match.Version))
	siblings := []core.Badges{}
	for _, b := range u.BroadcastBadges {
		if b.SetID != match.SetID || b.Version == match.Version || b.ID == match.ID {
			continue
		}
		if t, _ := textutil.TierOf(atoi(b.Version)); b.SetID == "subscriber" && t != tier {
			continue
		}
		siblings = append(siblings, core.Badges{
			ID:          b.SetID,
			Title:       b.Title,
			Value:       c.badgeValue(ctx, b.SetID, b.Version),
			Version:     b.Version + "/" + u.Login,
			Description: b.Description,
			Image:       b.ImageURL4x,
			Provider:    core.Twitch,
		})
	}
	globals, err := c.globalVersions(ctx, match.SetID)
	if err != nil {
		globals = nil
	}
	related := append(textutil.SortBadges(siblings), globals...)

	badge := core.Badges{
		ID:          match.SetID,
		Title:       match.Title,
		Value:       c.badgeValue(ctx, match.SetID, match.Version),
		Version:     match.Version + "/" + u.ID,
		Description: match.Description,
		ClickAction: strings.ToLower(match.OnClickAction),
		ClickURL:    match.ClickURL,
		Image:       match.ImageURL4x,
		Provider:    core.Twitch,
	}
	owner := userOf(u.ID, textutil.CompareName(u.Login, u.DisplayName), u.ProfileImageURL)
	return c.finish(ctx, badge, owner, related, false), nil
}

// finish expands a badge summary into the full page record.
func (c *Client) finish(ctx context.Context, b core.Badges, owner *core.User, related []core.Badges, global bool) core.Badge {
	imageID := imageUUID.FindString(b.Image)
	images := make([]string, 0, 3)
	for n := 1; n <= 3; n++ {
		images = append(images, fmt.Sprintf("%s/badges/v1/%s/%d", cdnURL, imageID, n))
	}

	version := b.Version
	if version == "" {
		version = "1"
	}
	value := textutil.VersionValue(version)

	name := b.Title
	if b.ID == "subscriber" {
		name = locale.FormatDuration(ctx, c.up.Messages(), value, true)
	}

	out := core.Badge{
		ID:          b.ID,
		Name:        name,
		Provider:    core.Twitch,
		Owner:       owner,
		Images:      images,
		Version:     version,
		Description: b.Description,
		ClickAction: b.ClickAction,
		ClickURL:    b.ClickURL,
		Related:     core.Related{Total: len(related), List: related},
		Type:        badgeType(b.ID, global),
		Global:      global,
	}
	if b.ClickAction == "subscribe" && owner != nil {
		out.ClickURL = siteURL + "/subs/" + owner.Username
	}
	switch b.ID {
	case "bits":
		out.Cost = core.IntPtr(value)
	case "subscriber":
		tier, _ := textutil.TierOf(value)
		out.Tier = core.IntPtr(tier)
	}
	if !global && owner != nil {
		prefix := ""
		if b.ID == "subscriber" {
			prefix = "subs/"
		}
		out.Source = siteURL + "/" + prefix + owner.Username
	}
	return out
}
