package httpapi

import (
	"compress/gzip"
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
)

// minGzipBytes is the smallest body worth compressing. Error bodies and
// single-entity lookups stay below it.
const minGzipBytes = 1024

// statusRecorder counts what the handler wrote, before compression.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// lazyGzip holds the status and the first bytes of a response back until it
// knows whether the body reaches minGzipBytes. Small bodies go out plain.
type lazyGzip struct {
	dst    http.ResponseWriter
	status int
	buf    []byte
	gz     *gzip.Writer
}

func acceptsGzip(r *http.Request) bool {
	if r.Method == http.MethodHead {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(coding, "gzip") {
			return true
		}
	}
	return false
}

func (g *lazyGzip) Header() http.Header { return g.dst.Header() }

func (g *lazyGzip) WriteHeader(code int) {
	if g.status == 0 {
		g.status = code
	}
}

func (g *lazyGzip) Write(b []byte) (int, error) {
	if g.gz != nil {
		return g.gz.Write(b)
	}
	g.buf = append(g.buf, b...)
	if len(g.buf) >= minGzipBytes {
		if err := g.start(); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (g *lazyGzip) start() error {
	h := g.dst.Header()
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	g.dst.WriteHeader(g.statusOrOK())
	g.gz = gzip.NewWriter(g.dst)
	_, err := g.gz.Write(g.buf)
	g.buf = nil
	return err
}

func (g *lazyGzip) statusOrOK() int {
	if g.status == 0 {
		return http.StatusOK
	}
	return g.status
}

// Close flushes whatever is still held back.
func (g *lazyGzip) Close() error {
	if g.gz != nil {
		return g.gz.Close()
	}
	g.dst.Header().Add("Vary", "Accept-Encoding")
	if g.status != 0 || len(g.buf) > 0 {
		g.dst.WriteHeader(g.statusOrOK())
	}
	if len(g.buf) == 0 {
		return nil
	}
	_, err := g.dst.Write(g.buf)
	return err
}

// routeProvider is the canonical provider a facade route was called for:
// "all" for fan-outs, "unknown" for aliases no adapter claims, and empty for
// routes that do not reach a provider.
func routeProvider(r *http.Request) string {
	alias := r.PathValue("provider")
	if alias == "" {
		return ""
	}
	if strings.EqualFold(alias, "all") {
		return "all"
	}
	if p, ok := core.LookupAlias(alias); ok {
		return string(p)
	}
	return "unknown"
}

// lookupLimiter budgets facade lookups per client and provider, so one
// client hammering 7tv does not lock it out of twitch pages.
type lookupLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	idle    time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLookupLimiter(rps, burst int) *lookupLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &lookupLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(rps),
		burst:   burst,
		idle:    5 * time.Minute,
	}
}

// Allow reports whether client may run another lookup against provider and,
// when it may not, how long until a token frees up.
func (l *lookupLimiter) Allow(client, provider string) (bool, time.Duration) {
	if l == nil || provider == "" {
		return true, 0
	}
	now := time.Now()
	key := client + "|" + provider

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= 4096 {
			l.evict(now)
		}
		b = &bucket{lim: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	if b.lim.AllowN(now, 1) {
		return true, 0
	}
	return false, time.Duration(float64(time.Second) / float64(l.rate))
}

func (l *lookupLimiter) evict(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, key)
		}
	}
}

// retryAfter renders d as whole seconds, at least one.
func retryAfter(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// clientIP trusts the first well-formed X-Forwarded-For entry.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// corsPolicy admits browser clients of the API. Only the read routes and
// PUT /prefs go through it; the admin endpoints are not cross-origin.
type corsPolicy struct {
	any     bool
	origins map[string]bool
}

// Headers a browser client reads: the canonical page address, the locale the
// error strings came in, and the id to quote in bug reports.
const corsExposed = "Content-Location, Content-Language, X-Request-ID"

func newCORSPolicy(origins []string) *corsPolicy {
	if len(origins) == 0 {
		return nil
	}
	c := &corsPolicy{origins: make(map[string]bool, len(origins))}
	for _, o := range origins {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			c.any = true
		default:
			c.origins[strings.TrimSuffix(o, "/")] = true
		}
	}
	return c
}

func (c *corsPolicy) allowed(origin string) bool {
	if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://") {
		return false
	}
	return c.any || c.origins[origin]
}

// apply sets the CORS headers for r. handled is true when the request was a
// preflight and has been answered; ok is false when the origin is refused.
func (c *corsPolicy) apply(w http.ResponseWriter, r *http.Request) (handled, ok bool) {
	origin := r.Header.Get("Origin")
	if c == nil || origin == "" {
		return false, true
	}
	h := w.Header()
	h.Add("Vary", "Origin")
	if !c.allowed(origin) {
		return false, false
	}
	h.Set("Access-Control-Allow-Origin", origin)
	if r.Method != http.MethodOptions {
		h.Set("Access-Control-Expose-Headers", corsExposed)
		return false, true
	}
	h.Set("Access-Control-Allow-Methods", "GET, PUT")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language, X-Request-ID")
	h.Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
	return true, true
}

type requestIDKey struct{}

// requestID reuses a sane inbound X-Request-ID or mints a new one.
func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 64 {
		return id
	}
	return uuid.NewString()
}

// RequestIDFrom returns the request id attached by the server middleware.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestLocale picks the locale for r: ?lang= first, then the first
// Accept-Language tag, then fallback (the stored preference).
func requestLocale(r *http.Request, catalog *locale.Catalog, fallback string) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return catalog.Resolve(lang)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			return catalog.Resolve(tags[0].String())
		}
	}
	return catalog.Resolve(fallback)
}
