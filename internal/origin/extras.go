package origin

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/textutil"
)

const (
	// OfficialTwitchID owns Twitch global emotes and badges.
	OfficialTwitchID = "12826"
	supibotLabel     = "Supibot"
)

var (
	markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	shortNumeric = regexp.MustCompile(`^\d{1,5}$`)
)

// EmoteExtras enriches an emote page. Sources are consulted in order (the
// date table, StreamDatabase for Twitch globals, then the provenance dataset)
// and the first source to set a date keeps it. Failures leave fields empty.
func (r *Resolver) EmoteExtras(ctx context.Context, channelID string, provider core.Provider, emoteID, emoteName string) core.Extras {
	x := core.NewExtras()
	r.dates.apply(provider, emoteID, &x)

	if provider == core.Twitch && channelID == OfficialTwitchID {
		r.streamDatabase(ctx, "global-emotes", emoteID, false, &x)
	}

	recs := r.Records(ctx)
	rec, ok := FindByExactID(recs, emoteID, string(provider))
	if !ok {
		rec, ok = FindByName(recs, emoteName)
	}
	if !ok {
		return x
	}
	enrich(recs, rec, provider, &x)
	return x
}

// BadgeExtras enriches a badge page from StreamDatabase. Only Twitch and
// Kick ids that are not short numbers are looked up.
func (r *Resolver) BadgeExtras(ctx context.Context, provider core.Provider, badgeID string) core.Extras {
	x := core.NewExtras()
	if (provider == core.Twitch || provider == core.Kick) && !shortNumeric.MatchString(badgeID) {
		r.streamDatabase(ctx, "global-badges", badgeID, true, &x)
	}
	return x
}

func enrich(recs []Record, rec Record, provider core.Provider, x *core.Extras) {
	setOnce(&x.CreatedAt, rec.EmoteAdded)
	setOnce(&x.DeletedAt, rec.EmoteDeleted)

	x.Type = rec.Origin
	switch rec.Origin {
	case "BITS_BADGE_TIERS":
		x.Cost = rec.Tier
	case "SUBSCRIPTIONS":
		x.Tier = rec.Tier
	}
	if provider == core.Twitch && rec.Artist != "" {
		x.Artist = &core.User{
			Username: rec.Artist,
			Source:   "https://twitch.tv/" + rec.Artist,
			Platform: string(core.Twitch),
		}
	}
	x.Image = rec.URL

	related := Related(recs, rec)
	x.Related.List = make([]core.Emotes, 0, len(related))
	for _, item := range related {
		x.Related.List = append(x.Related.List, core.Emotes{
			ID:       item.EmoteID,
			Name:     item.Name,
			Image:    item.URL,
			Owner:    item.Artist,
			Provider: core.Provider(item.Type),
		})
	}
	x.Related.Total = len(x.Related.List)

	x.Origin = append(x.Origin, core.OriginRecord{
		Source:   fmt.Sprintf("%s/data/origin/detail/%d", supinicURL, rec.ID),
		Provider: supibotLabel,
		Text:     RewriteLinks(recs, rec.Text),
		Notes:    RewriteLinks(recs, rec.Notes),
		Artist:   rec.Reporter,
	})
}

// Related lists records linked to rec: those its text or notes link to,
// those linking back to it, and those sharing its name. rec's emote is
// excluded and each emote appears once, in dataset order.
func Related(recs []Record, rec Record) []Record {
	mentioned := map[string]bool{}
	for _, s := range []string{rec.Text, rec.Notes} {
		for _, m := range markdownLink.FindAllStringSubmatch(s, -1) {
			mentioned[m[2]] = true
		}
	}
	backlink := "](" + strconv.Itoa(rec.ID) + ")"

	out := []Record{}
	seen := map[string]bool{relatedKey(rec): true}
	for _, item := range recs {
		if item.ID == rec.ID || seen[relatedKey(item)] {
			continue
		}
		if mentioned[strconv.Itoa(item.ID)] ||
			strings.Contains(item.Text, backlink) ||
			strings.Contains(item.Notes, backlink) ||
			strings.EqualFold(item.Name, rec.Name) {
			seen[relatedKey(item)] = true
			out = append(out, item)
		}
	}
	return out
}

// relatedKey identifies the emote behind a record; records without an emote
// id fall back to their own record id.
func relatedKey(r Record) string {
	if r.EmoteID != "" {
		return r.EmoteID
	}
	return "#" + strconv.Itoa(r.ID)
}

// RewriteLinks replaces "[label](recordID)" links with a bold label carrying a
// proxied thumbnail that links to the referenced emote page. Links to unknown
// records are left untouched.
func RewriteLinks(recs []Record, s string) string {
	if s == "" {
		return ""
	}
	byID := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byID[strconv.Itoa(rec.ID)] = rec
	}
	return markdownLink.ReplaceAllStringFunc(s, func(match string) string {
		m := markdownLink.FindStringSubmatch(match)
		target, ok := byID[m[2]]
		if !ok {
			return match
		}
		thumb := textutil.ImageProxy + supinicURL + "/api/data/origin/image/" + m[2]
		return fmt.Sprintf("**%s [[![Emote](%s)](/emote/%s/%s)]**", m[1], thumb, target.Type, target.EmoteID)
	})
}
