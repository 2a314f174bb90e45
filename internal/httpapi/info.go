package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/you/chatvault/internal/core"
)

// BuildInfo describes the compiled binary.
type BuildInfo struct {
	Version  string
	Revision string
	BuiltAt  time.Time
}

type infoResponse struct {
	Version   string   `json:"version"`
	Revision  string   `json:"rev"`
	BuiltAt   string   `json:"built_at,omitempty"`
	Go        string   `json:"go"`
	Providers []string `json:"providers"`
	Locales   []string `json:"locales"`
	Config    any      `json:"config,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	resp := infoResponse{
		Version:  s.opts.Build.Version,
		Revision: s.opts.Build.Revision,
		Go:       runtime.Version(),
		Locales:  s.catalog.Supported(),
		Config:   s.opts.ConfigSnapshot,
	}
	if !s.opts.Build.BuiltAt.IsZero() {
		resp.BuiltAt = s.opts.Build.BuiltAt.UTC().Format(time.RFC3339)
	}
	for _, p := range core.AllProviders {
		if _, ok := s.vault.Source(p); ok {
			resp.Providers = append(resp.Providers, string(p))
		}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}
