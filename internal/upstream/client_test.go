package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/you/chatvault/internal/core"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveUpstream(provider, op string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, provider+"/"+op+"/"+http.StatusText(status))
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != defaultUA {
			t.Errorf("unexpected user agent %q", ua)
		}
		_, _ = w.Write([]byte(`{"id":"25","code":"Kappa"}`))
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	c := New(Options{Observer: obs})
	var out struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	if err := c.GetJSON(context.Background(), core.BTTV, "Emote", srv.URL, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Code != "Kappa" {
		t.Fatalf("unexpected decode %+v", out)
	}
	if len(obs.calls) != 1 || obs.calls[0] != "bttv/emote/OK" {
		t.Fatalf("unexpected observer calls %v", obs.calls)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   core.ErrorKind
		msg    string
	}{
		{http.StatusNotFound, "", core.KindNotFound, "[7TV] Emote | 404: Not found"},
		{http.StatusBadGateway, "", core.KindUpstream, "[7TV] Emote | 502: Internal server error"},
		{http.StatusBadRequest, `{"message":"bad id"}`, core.KindUpstream, "[7TV] Emote | 400: bad id"},
		{http.StatusForbidden, "nope", core.KindUpstream, "[7TV] Emote | 403: Forbidden"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := New(Options{}).Do(context.Background(), Request{Provider: core.SevenTV, Op: "Emote", URL: srv.URL})
		srv.Close()
		if err == nil {
			t.Fatalf("%d: expected error", tc.status)
		}
		if core.KindOf(err) != tc.kind || err.Error() != tc.msg {
			t.Fatalf("%d: got kind %v msg %q", tc.status, core.KindOf(err), err.Error())
		}
		if core.StatusOf(err) != tc.status {
			t.Fatalf("%d: status not carried, got %d", tc.status, core.StatusOf(err))
		}
	}
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var out map[string]any
	err := New(Options{}).GetJSON(context.Background(), core.FFZ, "Set", srv.URL, &out)
	if core.KindOf(err) != core.KindMalformed {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Options{}).Do(context.Background(), Request{Provider: core.Kick, Op: "Channel", URL: url})
	if core.KindOf(err) != core.KindNetwork {
		t.Fatalf("expected network kind, got %v", err)
	}
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(Options{})
	ctx := context.Background()
	if ok, err := c.Exists(ctx, core.Twitch, "Emote", srv.URL+"/ok"); !ok || err != nil {
		t.Fatalf("expected exists, got %v %v", ok, err)
	}
	if ok, err := c.Exists(ctx, core.Twitch, "Emote", srv.URL+"/gone"); ok || err != nil {
		t.Fatalf("expected missing without error, got %v %v", ok, err)
	}
	if _, err := c.Exists(ctx, core.Twitch, "Emote", srv.URL+"/boom"); err == nil {
		t.Fatalf("expected error for 500")
	}
}

func TestGraphQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GraphQLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %q", r.Method, r.Header.Get("Content-Type"))
		}
		if req.Variables["id"] == "bad" {
			_, _ = w.Write([]byte(`{"errors":[{"message":"user not found"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"user":{"login":"xqc"}}}`))
	}))
	defer srv.Close()

	c := New(Options{})
	var out struct {
		User struct {
			Login string `json:"login"`
		} `json:"user"`
	}
	err := c.GraphQL(context.Background(), core.Twitch, "Channel", srv.URL, nil,
		GraphQLRequest{Query: "query{user}", Variables: map[string]any{"id": "1"}}, &out)
	if err != nil || out.User.Login != "xqc" {
		t.Fatalf("unexpected result %+v %v", out, err)
	}

	err = c.GraphQL(context.Background(), core.Twitch, "Channel", srv.URL, nil,
		GraphQLRequest{Query: "query{user}", Variables: map[string]any{"id": "bad"}}, &out)
	if err == nil || err.Error() != "[Twitch] Channel | 500: user not found" {
		t.Fatalf("unexpected graphql error %v", err)
	}
}

func TestSprintfEscapes(t *testing.T) {
	if got := Sprintf("https://api/users/%s/emotes", "a b/c"); got != "https://api/users/a%20b%2Fc/emotes" {
		t.Fatalf("unexpected url %q", got)
	}
}
