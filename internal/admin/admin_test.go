package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
)

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) Purge(context.Context) error {
	f.calls++
	return f.err
}

type fakeReloader struct{ err error }

func (f fakeReloader) Reload() error { return f.err }

type fakePinger struct{ err error }

func (f fakePinger) Ping() error { return f.err }

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	srv.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestPurgeAll(t *testing.T) {
	globals, origin := &fakePurger{}, &fakePurger{}
	srv := New(map[string]Purger{"globals": globals, "origin": origin}, fakeReloader{}, nil)

	rec := serve(srv, http.MethodPost, "/admin/cache/purge")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("expected content-type application/json; charset=utf-8, got %q", ct)
	}
	var payload struct {
		Status string   `json:"status"`
		Purged []string `json:"purged"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	sort.Strings(payload.Purged)
	if payload.Status != "ok" || len(payload.Purged) != 2 || payload.Purged[0] != "globals" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if globals.calls != 1 || origin.calls != 1 {
		t.Fatalf("expected one purge each, got %d/%d", globals.calls, origin.calls)
	}
}

func TestPurgeNamed(t *testing.T) {
	globals, origin := &fakePurger{}, &fakePurger{}
	srv := New(map[string]Purger{"globals": globals, "origin": origin}, fakeReloader{}, nil)

	rec := serve(srv, http.MethodPost, "/admin/cache/purge?name=origin")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if globals.calls != 0 || origin.calls != 1 {
		t.Fatalf("unexpected purge calls %d/%d", globals.calls, origin.calls)
	}

	rec = serve(srv, http.MethodPost, "/admin/cache/purge?name=nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	rec = serve(srv, http.MethodGet, "/admin/cache/purge")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestPurgeError(t *testing.T) {
	srv := New(map[string]Purger{"globals": &fakePurger{err: errors.New("boom")}}, fakeReloader{}, nil)

	rec := serve(srv, http.MethodPost, "/admin/cache/purge")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if body := rec.Body.String(); body != "purge failed: boom\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestReloadLocales(t *testing.T) {
	rec := serve(New(nil, fakeReloader{}, nil), http.MethodPost, "/admin/locales/reload")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = serve(New(nil, fakeReloader{err: errors.New("bad json")}, nil), http.MethodPost, "/admin/locales/reload")
	if body := rec.Body.String(); body != "reload failed: bad json\n" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestHealthz(t *testing.T) {
	if rec := serve(New(nil, fakeReloader{}, fakePinger{}), http.MethodGet, "/admin/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec := serve(New(nil, fakeReloader{}, fakePinger{err: errors.New("locked")}), http.MethodGet, "/admin/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
