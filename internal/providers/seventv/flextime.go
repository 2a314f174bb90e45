package seventv

import (
	"encoding/json"
	"time"

	"github.com/you/chatvault/internal/core"
)

// flexTime accepts the RFC 3339 strings the GraphQL API sends and the
// millisecond epochs the REST API sends.
type flexTime struct {
	t *time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil {
		f.t = core.UnixMillis(ms)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	f.t = core.ParseTime(s)
	return nil
}

func (f flexTime) Ptr() *time.Time { return f.t }
