// Package origin cross-references emotes and badges against the supinic.com
// provenance dataset and the StreamDatabase history API.
package origin

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/idcodec"
	"github.com/you/chatvault/internal/upstream"
)

var supinicURL = "https://supinic.com"

// The dataset is not tied to one provider; errors carry no label.
const datasetProvider core.Provider = ""

// Record is one provenance entry after normalization.
type Record struct {
	ID           int        `json:"id"`
	EmoteID      string     `json:"emoteID"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Origin       string     `json:"origin,omitempty"`
	Tier         *int       `json:"tier,omitempty"`
	Text         string     `json:"text"`
	Notes        string     `json:"notes,omitempty"`
	EmoteAdded   *time.Time `json:"emoteAdded,omitempty"`
	EmoteDeleted *time.Time `json:"emoteDeleted,omitempty"`
	Artist       string     `json:"artist,omitempty"`
	Reporter     string     `json:"reporter,omitempty"`
	URL          string     `json:"url"`
}

type apiRecord struct {
	ID           int     `json:"ID"`
	EmoteID      *string `json:"emoteID"`
	Name         string  `json:"name"`
	Tier         *string `json:"tier"`
	Type         string  `json:"type"`
	Text         string  `json:"text"`
	EmoteAdded   *string `json:"emoteAdded"`
	EmoteDeleted *string `json:"emoteDeleted"`
	Notes        *string `json:"notes"`
	Artist       *string `json:"artist"`
	Reporter     *string `json:"reporter"`
	URL          string  `json:"url"`
}

type Resolver struct {
	up    *upstream.Client
	store *cache.Store
	key   cache.Key
	dates Dates
}

type Option func(*Resolver)

// WithTTL overrides the 24h dataset window.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.key = r.key.WithTTL(ttl) }
}

// WithDates replaces the embedded emote date table.
func WithDates(d Dates) Option {
	return func(r *Resolver) { r.dates = d }
}

func New(up *upstream.Client, store *cache.Store, opts ...Option) *Resolver {
	r := &Resolver{up: up, store: store, key: cache.OriginData, dates: embeddedDates()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Purge drops the cached dataset.
func (r *Resolver) Purge(ctx context.Context) error {
	return r.store.Purge(ctx, r.key)
}

// originTag maps the trailing word of a dataset type ("Twitch - Sub") onto
// the emote-type vocabulary.
func originTag(kind string) string {
	fields := strings.Fields(kind)
	if len(fields) == 0 {
		return ""
	}
	switch fields[len(fields)-1] {
	case "Bits":
		return "BITS_BADGE_TIERS"
	case "Sub":
		return "SUBSCRIPTIONS"
	case "Global":
		return "GLOBALS"
	}
	return ""
}

func normalize(item apiRecord) Record {
	rec := Record{
		ID:           item.ID,
		Name:         item.Name,
		Origin:       originTag(item.Type),
		Text:         item.Text,
		EmoteAdded:   timeOf(item.EmoteAdded),
		EmoteDeleted: timeOf(item.EmoteDeleted),
		Artist:       deref(item.Artist),
		Reporter:     deref(item.Reporter),
		Notes:        deref(item.Notes),
		URL:          item.URL,
	}
	if fields := strings.Fields(item.Type); len(fields) > 0 {
		rec.Type = strings.ToLower(fields[0])
	}
	rec.EmoteID = deref(item.EmoteID)
	if rec.Type == string(core.SevenTV) && idcodec.IsObjectID(rec.EmoteID) {
		if ulid, err := idcodec.ObjectIDToULID(rec.EmoteID); err == nil {
			rec.EmoteID = ulid
		}
	}
	if item.Tier != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(*item.Tier)); err == nil {
			rec.Tier = &n
		}
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOf(s *string) *time.Time {
	if s == nil {
		return nil
	}
	return core.ParseTime(*s)
}

// Records returns the cached dataset, fetching it when the window expired.
// Fetch failures fall back to the stale copy, then to an empty list.
func (r *Resolver) Records(ctx context.Context) []Record {
	recs, err := cache.GetOrCache(ctx, r.store, r.key, r.fetch, []Record{})
	if err != nil {
		slog.Debug("origin: dataset unavailable", "err", err)
		return []Record{}
	}
	return recs
}

func (r *Resolver) fetch(ctx context.Context) ([]Record, error) {
	var body struct {
		Data []apiRecord `json:"data"`
	}
	if err := r.up.GetJSON(ctx, datasetProvider, "Origin", supinicURL+"/api/data/origin/list", &body); err != nil {
		slog.Warn("origin: fetch failed", "component", "supinic", "err", err)
		return nil, nil
	}
	out := make([]Record, 0, len(body.Data))
	for _, item := range body.Data {
		out = append(out, normalize(item))
	}
	return out, nil
}

// FindByExactID matches on identifier and lower-case provider type.
func FindByExactID(recs []Record, emoteID, provider string) (Record, bool) {
	for _, rec := range recs {
		if rec.EmoteID == emoteID && rec.Type == provider {
			return rec, true
		}
	}
	return Record{}, false
}

// FindByName matches a name case-insensitively; the first record wins.
func FindByName(recs []Record, name string) (Record, bool) {
	if name == "" {
		return Record{}, false
	}
	for _, rec := range recs {
		if strings.EqualFold(rec.Name, name) {
			return rec, true
		}
	}
	return Record{}, false
}

func (r *Resolver) FindByExactID(ctx context.Context, emoteID string, p core.Provider) (Record, bool) {
	return FindByExactID(r.Records(ctx), emoteID, string(p))
}

func (r *Resolver) FindByName(ctx context.Context, name string) (Record, bool) {
	return FindByName(r.Records(ctx), name)
}

// OriginImage returns the archived image of an exact-id match.
func (r *Resolver) OriginImage(ctx context.Context, p core.Provider, id string) (string, bool) {
	rec, ok := r.FindByExactID(ctx, id, p)
	if !ok || rec.URL == "" {
		return "", false
	}
	return rec.URL, true
}
