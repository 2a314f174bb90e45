// Package httpapi exposes the vault facades as a JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/you/chatvault/internal/cache"
	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
	"github.com/you/chatvault/internal/vault"
)

// Prefs persists user preference slots.
type Prefs interface {
	Pref(ctx context.Context, name string) (string, error)
	SetPref(ctx context.Context, name, value string) error
}

type Options struct {
	Addr            string
	CORSOrigins     []string
	RateLimitRPS    int
	RateLimitBurst  int
	EnableMetrics   bool
	EnableAccessLog bool
	Build           BuildInfo
	ConfigSnapshot  any
	Metrics         *Metrics
}

type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	opts       Options

	vault   *vault.Vault
	prefs   Prefs
	catalog *locale.Catalog

	metrics *Metrics
	limiter *lookupLimiter
	cors    *corsPolicy
}

func New(v *vault.Vault, prefs Prefs, catalog *locale.Catalog, opts Options) *Server {
	if catalog == nil {
		catalog = locale.Default()
	}
	srv := &Server{
		mux:     http.NewServeMux(),
		opts:    opts,
		vault:   v,
		prefs:   prefs,
		catalog: catalog,
		limiter: newLookupLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		cors:    newCORSPolicy(opts.CORSOrigins),
	}
	if opts.EnableMetrics {
		srv.metrics = opts.Metrics
		if srv.metrics == nil {
			srv.metrics = NewMetrics()
		}
	}
	srv.routes()

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

// Mux exposes the router so other packages can mount handlers.
func (s *Server) Mux() *http.ServeMux { return s.mux }

// Handler is the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.handle("GET /healthz", "healthz", s.handleHealthz)
	s.handle("GET /info", "info", s.handleInfo)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.handle("GET /emote/{provider}/{id...}", "emote", s.handleEmote)
	s.handle("GET /badge/{provider}/{id...}", "badge", s.handleBadge)
	s.handle("GET /channel/{provider}/{login}", "channel", s.handleChannel)
	s.handle("GET /channel/{provider}/{id}/emotes", "channel-emotes", s.handleChannelEmotes)
	s.handle("GET /set/{provider}/{id}", "set", s.handleSet)
	s.handle("GET /search/{provider}", "search", s.handleSearch)
	s.handle("GET /globals/emotes/{provider}", "global-emotes", s.handleGlobalEmotes)
	s.handle("GET /globals/badges/{provider}", "global-badges", s.handleGlobalBadges)
	s.handle("GET /link", "link", s.handleLink)
	s.handle("GET /prefs", "prefs", s.handleGetPrefs)
	s.handle("PUT /prefs", "prefs", s.handlePutPrefs)
	// Unmatched paths land here; CORS preflights are answered by wrap first.
	s.handle("/", "not-found", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusNotFound, errorBody{Error: s.catalog.T(r.Context(), "status.404"), Status: http.StatusNotFound})
	})
}

// handle mounts fn behind the shared middleware chain: request id, CORS,
// per-provider lookup budget, locale, gzip, access log and metrics.
func (s *Server) handle(pattern, route string, fn http.HandlerFunc) {
	s.mux.Handle(pattern, s.wrap(route, fn))
}

func (s *Server) wrap(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		provider := routeProvider(r)
		client := clientIP(r)

		id := requestID(r)
		rec.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)

		defer func() {
			dur := time.Since(start)
			s.metrics.ObserveRequest(route, r.Method, rec.Status(), dur)
			if s.opts.EnableAccessLog {
				slog.Info("http: request",
					"id", id,
					"method", r.Method,
					"route", route,
					"provider", provider,
					"path", r.URL.Path,
					"status", rec.Status(),
					"bytes", rec.bytes,
					"dur_ms", dur.Milliseconds(),
					"ip", client,
				)
			}
		}()

		handled, ok := s.cors.apply(rec, r)
		if handled {
			return
		}
		if !ok {
			rec.WriteHeader(http.StatusForbidden)
			return
		}
		if allowed, wait := s.limiter.Allow(client, provider); !allowed {
			s.metrics.IncRateLimited(provider)
			rec.Header().Set("Retry-After", strconv.Itoa(retryAfter(wait)))
			s.writeJSON(rec, r, http.StatusTooManyRequests, errorBody{Error: http.StatusText(http.StatusTooManyRequests), Status: http.StatusTooManyRequests})
			return
		}

		stored := ""
		if s.prefs != nil {
			stored, _ = s.prefs.Pref(ctx, cache.PrefLocale)
		}
		loc := requestLocale(r, s.catalog, stored)
		ctx = locale.WithLocale(ctx, loc)
		rec.Header().Set("Content-Language", loc)

		if acceptsGzip(r) {
			gz := &lazyGzip{dst: w}
			rec.ResponseWriter = gz
			defer func() {
				if err := gz.Close(); err != nil {
					slog.Warn("http: gzip close", "id", id, "err", err)
				}
			}()
		}
		next(rec, r.WithContext(ctx))
	})
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (s *Server) writeJSON(w http.ResponseWriter, _ *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("http: encode response", "err", err)
	}
}

// writeError renders err with the status its core.Error carries.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := core.StatusOf(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	msg := err.Error()
	if msg == "" {
		msg = s.catalog.T(r.Context(), "error.unknown")
	}
	s.writeJSON(w, r, status, errorBody{Error: msg, Status: status})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) Start() error {
	log.Printf("http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
