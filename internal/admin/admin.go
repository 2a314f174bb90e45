// Package admin mounts operator endpoints: cache purge, message catalog
// reload and a dependency health check.
package admin

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Purger drops a cached dataset.
type Purger interface {
	Purge(ctx context.Context) error
}

// Reloader re-reads the message catalogs.
type Reloader interface {
	Reload() error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping() error
}

type Server struct {
	purgers map[string]Purger
	catalog Reloader
	store   Pinger
}

// New builds the admin server. purgers maps a dataset name ("globals",
// "origin") onto its cache; store may be nil when the backend has no ping.
func New(purgers map[string]Purger, catalog Reloader, store Pinger) *Server {
	return &Server{purgers: purgers, catalog: catalog, store: store}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if s.store != nil {
			if err := s.store.Ping(); err != nil {
				http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/admin/cache/purge", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		names := r.URL.Query()["name"]
		if len(names) == 0 {
			for name := range s.purgers {
				names = append(names, name)
			}
		}
		purged := make([]string, 0, len(names))
		for _, name := range names {
			p, ok := s.purgers[name]
			if !ok {
				http.Error(w, "unknown cache: "+name, http.StatusNotFound)
				return
			}
			if err := p.Purge(ctx); err != nil {
				http.Error(w, "purge failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
			purged = append(purged, name)
		}
		log.Printf("admin: purged caches %v", purged)
		writeJSON(w, map[string]any{"status": "ok", "purged": purged})
	})
	mux.HandleFunc("/admin/locales/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.catalog.Reload(); err != nil {
			http.Error(w, "reload failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		log.Printf("admin: message catalogs reloaded")
		writeJSON(w, map[string]any{"status": "ok", "reloaded": true})
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
