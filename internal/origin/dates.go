package origin

import (
	_ "embed"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/you/chatvault/internal/core"
)

//go:embed dates.json
var datesJSON []byte

// DateEntry records when an emote entered and left a provider.
type DateEntry struct {
	EmoteName string `json:"emoteName"`
	AddedAt   string `json:"addedAt"`
	RemovedAt string `json:"removedAt"`
}

// Dates is keyed by provider, then emote id.
type Dates map[string]map[string]DateEntry

func embeddedDates() Dates {
	var d Dates
	if err := json.Unmarshal(datesJSON, &d); err != nil {
		slog.Warn("origin: embedded date table unreadable", "err", err)
		return Dates{}
	}
	return d
}

// LoadDates reads a date table from path.
func LoadDates(path string) (Dates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read date table")
	}
	var d Dates
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrapf(err, "decode date table %s", path)
	}
	return d, nil
}

func (d Dates) apply(provider core.Provider, emoteID string, x *core.Extras) {
	entry, ok := d[string(provider)][emoteID]
	if !ok {
		return
	}
	setOnce(&x.CreatedAt, core.ParseTime(entry.AddedAt))
	setOnce(&x.DeletedAt, core.ParseTime(entry.RemovedAt))
}
