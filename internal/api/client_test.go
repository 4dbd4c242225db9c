/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partysync/internal/token"
)

const controllerToken = "eyJhbGciOiJIUzI1NiJ9.eyJhdXRoX2xldmVsIjoiY29udHJvbCJ9.c2ln"

type fixture struct {
	srv    *httptest.Server
	store  *token.Store
	client *Client
	hits   atomic.Int64
	last   atomic.Pointer[http.Request]
}

func newFixture(t *testing.T, register func(mux *httprouter.Router)) *fixture {
	t.Helper()

	f := &fixture{}

	mux := httprouter.New()
	register(mux)

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		f.last.Store(r.Clone(context.Background()))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)

	base, err := url.Parse(f.srv.URL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	f.store = token.NewStore(token.NewMemoryBackend())
	f.client = NewClient(base, f.store, WithHTTPClient(f.srv.Client()))

	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestRequestWithoutTokenMakesNoCall(t *testing.T) {
	f := newFixture(t, func(mux *httprouter.Router) {
		mux.GET(Prefix+"/sessions/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			writeJSON(w, []SessionData{})
		})
	})

	_, err := f.client.Request(context.Background(), token.Player, "/sessions/")
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	// a controller token does not help the player namespace
	_ = f.store.Persist(token.Controller, controllerToken)
	if _, err := f.client.Sessions(context.Background(), token.Player); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if n := f.hits.Load(); n != 0 {
		t.Fatalf("expected zero network calls, got %d", n)
	}
}

func TestRequestAddsBearer(t *testing.T) {
	f := newFixture(t, func(mux *httprouter.Router) {
		mux.POST(Prefix+"/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			body, _ := io.ReadAll(r.Body)
			writeJSON(w, map[string]any{
				"auth":   r.Header.Values("Authorization"),
				"custom": r.Header.Get("X-Custom"),
				"body":   string(body),
				"rid":    r.Header.Get("X-Request-ID"),
			})
		})
	})
	_ = f.store.Persist(token.Controller, controllerToken)

	resp, err := f.client.Request(context.Background(), token.Controller, "/echo",
		WithMethod(http.MethodPost),
		WithHeader("X-Custom", "kept"),
		WithHeader("Authorization", "Basic Zm9vOmJhcg=="),
		WithBody(strings.NewReader("hello")),
	)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	var got struct {
		Auth   []string `json:"auth"`
		Custom string   `json:"custom"`
		Body   string   `json:"body"`
		RID    string   `json:"rid"`
	}
	if err := DecodeJSON(resp, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.Custom != "kept" {
		t.Fatalf("caller header lost: %+v", got)
	}
	if got.Body != "hello" {
		t.Fatalf("body lost: %+v", got)
	}
	if len(got.Auth) != 2 || got.Auth[1] != "Bearer "+controllerToken {
		t.Fatalf("expected caller auth plus bearer, got %v", got.Auth)
	}
	if got.RID == "" {
		t.Fatalf("expected a request id")
	}
	if path := f.last.Load().URL.Path; path != "/api/v1/echo" {
		t.Fatalf("unexpected path %q", path)
	}

	resp, err = f.client.Request(context.Background(), token.Controller, "/echo",
		WithHeader("X-Request-ID", "caller-id"),
	)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := DecodeJSON(resp, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RID != "caller-id" {
		t.Fatalf("caller request id should be kept, got %q", got.RID)
	}
	if n := len(f.last.Load().Header.Values("X-Request-ID")); n != 1 {
		t.Fatalf("expected a single request id, got %d", n)
	}
}

func TestUsableJSON(t *testing.T) {
	cases := []struct {
		status      int
		contentType string
		usable      bool
	}{
		{200, "application/json", true},
		{200, "application/json; charset=utf-8", true},
		{200, "text/plain", false},
		{200, "", false},
		{200, "application/jsonx", false},
		{201, "application/json", false},
		{404, "application/json", false},
		{500, "text/html", false},
	}

	for _, c := range cases {
		resp := &http.Response{
			StatusCode: c.status,
			Header:     http.Header{"Content-Type": []string{c.contentType}},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}
		if got := UsableJSON(resp); got != c.usable {
			t.Fatalf("%d %q: expected %v, got %v", c.status, c.contentType, c.usable, got)
		}
	}

	if UsableJSON(nil) {
		t.Fatalf("nil response is never usable")
	}
}

func TestDecodeJSONSkipsUnusable(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("this is not json")),
	}

	var v any
	err := DecodeJSON(resp, &v)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != 200 || httpErr.ContentType != "text/plain" {
		t.Fatalf("unexpected error contents: %+v", httpErr)
	}
}

func TestTypedEndpoints(t *testing.T) {
	role := "narrator"
	f := newFixture(t, func(mux *httprouter.Router) {
		mux.GET(Prefix+"/sessions/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			writeJSON(w, []SessionData{{ID: "s1", Active: true, PlayerCount: 2, Created: 1700000000}})
		})
		mux.GET(Prefix+"/sessions/:sid/playerlist", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			writeJSON(w, []PlayerData{
				{UserID: 1, Name: "ann", Role: &role, Joined: 1700000000, State: "ready"},
				{UserID: 2, Name: "bob", State: "waiting"},
			})
		})
		mux.GET(Prefix+"/stats", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			writeJSON(w, Stats{WSConnected: 3, SessionsActive: 1})
		})
	})
	_ = f.store.Persist(token.Controller, controllerToken)

	ctx := context.Background()

	sessions, err := f.client.Sessions(ctx, token.Controller)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" || sessions[0].PlayerCount != 2 {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if sessions[0].CreatedAt().Unix() != 1700000000 {
		t.Fatalf("unexpected created time")
	}

	players, err := f.client.PlayerList(ctx, token.Controller, "s1")
	if err != nil {
		t.Fatalf("players: %v", err)
	}
	if len(players) != 2 || players[0].Role == nil || *players[0].Role != "narrator" || players[1].Role != nil {
		t.Fatalf("unexpected players: %+v", players)
	}

	stats, err := f.client.Stats(ctx, token.Controller)
	if err != nil || stats.WSConnected != 3 {
		t.Fatalf("stats: %+v %v", stats, err)
	}
}

func TestConnect(t *testing.T) {
	f := newFixture(t, func(mux *httprouter.Router) {
		mux.POST(Prefix+"/auth/connect/client", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			var req struct {
				Username  string `json:"username"`
				SessionID string `json:"session_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			if req.SessionID != "s1" {
				http.Error(w, "InvalidSessionID", http.StatusForbidden)
				return
			}
			if r.Header.Get("Authorization") != "" {
				http.Error(w, "unexpected auth", http.StatusBadRequest)
				return
			}
			_, _ = io.WriteString(w, "player."+req.Username+".sig\n")
		})
		mux.POST(Prefix+"/auth/connect/ctrl", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			w.WriteHeader(http.StatusUnauthorized)
			if r.URL.Query().Has("flood") {
				_, _ = io.WriteString(w, strings.Repeat("x", 4*maxLoginBody))
			}
		})
	})
	ctx := context.Background()

	tok, err := f.client.ConnectPlayer(ctx, "  ann ", "s1")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if tok != "player.ann.sig" {
		t.Fatalf("unexpected token %q", tok)
	}

	_, err = f.client.ConnectPlayer(ctx, "ann", "nope")
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
	if loginErr.Message != "InvalidSessionID" || loginErr.Status != http.StatusForbidden {
		t.Fatalf("unexpected login error %+v", loginErr)
	}

	_, err = f.client.ConnectController(ctx, "hunter2")
	if !errors.As(err, &loginErr) || loginErr.Message != "connect failed" {
		t.Fatalf("expected fallback message, got %v", err)
	}

	_, err = f.client.connect(ctx, "/auth/connect/ctrl?flood=1", connectController{Password: "x"})
	if !errors.As(err, &loginErr) || len(loginErr.Message) != maxLoginBody {
		t.Fatalf("login body should be capped at %d bytes, got %v", maxLoginBody, err)
	}
}
