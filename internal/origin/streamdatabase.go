package origin

import (
	"context"
	"log/slog"
	"time"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/upstream"
)

var (
	streamDatabaseAPI  = "https://api.streamdatabase.com"
	streamDatabaseSite = "https://streamdatabase.com"
)

const streamDatabaseLabel = "StreamDatabase"

type sdbHistory struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type sdbContext struct {
	Content        string `json:"content"`
	PendingContent string `json:"pending_content"`
	CreatedBy      struct {
		Twitch *struct {
			User *struct {
				DisplayName string `json:"display_name"`
				Login       string `json:"login"`
			} `json:"user"`
		} `json:"twitch"`
	} `json:"created_by"`
}

func (c sdbContext) artist() string {
	if c.CreatedBy.Twitch == nil || c.CreatedBy.Twitch.User == nil {
		return ""
	}
	u := c.CreatedBy.Twitch.User
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Login
}

type sdbDocument struct {
	Data struct {
		History  []sdbHistory `json:"history"`
		Contexts []sdbContext `json:"contexts"`
	} `json:"data"`
}

// added is the first "added" timestamp; removed the last "removed" one.
func (d sdbDocument) added() *time.Time {
	for _, h := range d.Data.History {
		if h.Type == "added" && h.Timestamp != "" {
			return core.ParseTime(h.Timestamp)
		}
	}
	return nil
}

func (d sdbDocument) removed() *time.Time {
	h := d.Data.History
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Type == "removed" && h[i].Timestamp != "" {
			return core.ParseTime(h[i].Timestamp)
		}
	}
	return nil
}

// streamDatabase fetches the history of a Twitch global emote or badge and
// folds it into x. kind is "global-emotes" or "global-badges". Emote notes
// prefer the approved content, badge notes the pending one.
func (r *Resolver) streamDatabase(ctx context.Context, kind, id string, preferPending bool, x *core.Extras) {
	var doc sdbDocument
	path := "/twitch/" + kind + "/" + upstream.Escape(id)
	if err := r.up.GetJSON(ctx, core.Twitch, "StreamDatabase", streamDatabaseAPI+path, &doc); err != nil {
		slog.Debug("origin: streamdatabase lookup failed", "kind", kind, "id", id, "err", err)
		return
	}

	setOnce(&x.CreatedAt, doc.added())
	setOnce(&x.DeletedAt, doc.removed())

	if len(doc.Data.Contexts) == 0 {
		return
	}
	first := doc.Data.Contexts[0]
	text := first.Content
	if text == "" || (preferPending && first.PendingContent != "") {
		text = first.PendingContent
	}
	x.Origin = append(x.Origin, core.OriginRecord{
		Source:   streamDatabaseSite + path,
		Provider: streamDatabaseLabel,
		Text:     text,
		Artist:   first.artist(),
	})
}

func setOnce(dst **time.Time, v *time.Time) {
	if *dst == nil && v != nil {
		*dst = v
	}
}
