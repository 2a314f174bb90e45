// Package upstream is the shared HTTP plumbing behind every provider adapter:
// request building, per-host rate limiting, status to error mapping and
// instrumentation.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/you/chatvault/internal/core"
	"github.com/you/chatvault/internal/locale"
)

const (
	defaultTimeout  = 15 * time.Second
	maxBodyBytes    = 8 << 20
	errorBodyBytes  = 2048
	defaultUA       = "Mozilla/5.0 (compatible; chatvault/1.0)"
	defaultHostRPS  = 10
	defaultHostBurs = 20
)

// Observer receives one call per completed upstream request.
type Observer interface {
	ObserveUpstream(provider, op string, status int, dur time.Duration)
}

type Options struct {
	HTTP      *http.Client
	Timeout   time.Duration
	UserAgent string
	HostRPS   int
	HostBurst int
	Messages  locale.Translator
	Observer  Observer
}

// Client issues upstream requests on behalf of adapters.
type Client struct {
	http      *http.Client
	userAgent string
	messages  locale.Translator
	observer  Observer
	rps       rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(opts Options) *Client {
	hc := opts.HTTP
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUA
	}
	rps, burst := opts.HostRPS, opts.HostBurst
	if rps <= 0 {
		rps = defaultHostRPS
	}
	if burst <= 0 {
		burst = defaultHostBurs
	}
	msgs := opts.Messages
	if msgs == nil {
		msgs = locale.Default()
	}
	return &Client{
		http:      hc,
		userAgent: ua,
		messages:  msgs,
		observer:  opts.Observer,
		rps:       rate.Limit(rps),
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// Messages exposes the translator so adapters can localize their own errors.
func (c *Client) Messages() locale.Translator { return c.messages }

// T is shorthand for c.Messages().T.
func (c *Client) T(ctx context.Context, key string, args ...any) string {
	return c.messages.T(ctx, key, args...)
}

// NotFound builds a localized 404 error for provider p.
func (c *Client) NotFound(ctx context.Context, p core.Provider, op string) *core.Error {
	return core.NotFound(p, op, c.T(ctx, "status.404"))
}

// ServerError builds a localized 500 error for provider p.
func (c *Client) ServerError(ctx context.Context, p core.Provider, op string) *core.Error {
	return core.Upstream(p, op, http.StatusInternalServerError, c.T(ctx, "status.500"))
}

// Request describes one upstream call.
type Request struct {
	Provider core.Provider
	Op       string
	Method   string
	URL      string
	Header   http.Header
	Body     any
}

// Response is a fully-read upstream response with a success status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	URL    *url.URL
}

// Do performs req and returns the body when the status is 2xx. Non-2xx
// statuses become *core.Error values carrying the status and a localized or
// upstream-provided detail.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.InvalidInput(req.Provider, req.Op, errors.Wrap(err, "encode request body"))
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, core.InvalidInput(req.Provider, req.Op, errors.Wrap(err, "build request"))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if err := c.wait(ctx, httpReq.URL.Host); err != nil {
		return nil, core.Network(req.Provider, req.Op, errors.Wrap(err, "rate limit wait"))
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.observe(req, 0, time.Since(start))
		return nil, core.Network(req.Provider, req.Op, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
		return nil, c.statusError(ctx, req.Provider, req.Op, resp, raw)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.Network(req.Provider, req.Op, errors.Wrap(err, "read body"))
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data, URL: resp.Request.URL}, nil
}

func (c *Client) statusError(ctx context.Context, p core.Provider, op string, resp *http.Response, raw []byte) *core.Error {
	status := resp.StatusCode
	var detail string
	switch {
	case status == http.StatusNotFound:
		detail = c.T(ctx, "status.404")
	case status >= 500:
		detail = c.T(ctx, "status.500")
	default:
		detail = upstreamMessage(raw)
		if detail == "" {
			detail = http.StatusText(status)
		}
	}
	return core.Upstream(p, op, status, detail)
}

func upstreamMessage(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, p core.Provider, op, rawURL string, out any) error {
	_, err := c.DoJSON(ctx, Request{Provider: p, Op: op, URL: rawURL}, out)
	return err
}

// DoJSON performs req and decodes the body into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return resp, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return nil, core.Malformed(req.Provider, req.Op, errors.Wrap(err, "decode response"))
	}
	return resp, nil
}

// Exists reports whether url answers with a 2xx status. 404 yields false with
// no error; other failures are returned.
func (c *Client) Exists(ctx context.Context, p core.Provider, op, rawURL string) (bool, error) {
	_, err := c.Do(ctx, Request{Provider: p, Op: op, URL: rawURL})
	if err == nil {
		return true, nil
	}
	if core.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (c *Client) wait(ctx context.Context, host string) error {
	c.mu.Lock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(c.rps, c.burst)
		c.limiters[host] = lim
	}
	c.mu.Unlock()
	return lim.Wait(ctx)
}

func (c *Client) observe(req Request, status int, dur time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(string(req.Provider), strings.ToLower(req.Op), status, dur)
}

// Escape is url.PathEscape, kept here so adapters build paths uniformly.
func Escape(segment string) string { return url.PathEscape(segment) }

// Query is url.QueryEscape.
func Query(value string) string { return url.QueryEscape(value) }

// Sprintf formats an endpoint after escaping each string argument as a path
// segment.
func Sprintf(format string, segments ...string) string {
	args := make([]any, len(segments))
	for i, s := range segments {
		args[i] = url.PathEscape(s)
	}
	return fmt.Sprintf(format, args...)
}
