/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package page

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/listview"
	"github.com/Seednode/partysync/internal/notify"
	"github.com/Seednode/partysync/internal/token"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("dev-secret"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tok
}

// controlPlane is a stand-in server: REST under /api/v1 plus the push
// socket under /ws.
type controlPlane struct {
	srv *httptest.Server

	mu       sync.Mutex
	sessions []api.SessionData
	players  map[string][]api.PlayerData

	sessionHits atomic.Int32
	playerHits  atomic.Int32
	conns       chan *websocket.Conn
}

func newControlPlane(t *testing.T) *controlPlane {
	t.Helper()

	cp := &controlPlane{
		sessions: []api.SessionData{},
		players:  make(map[string][]api.PlayerData),
		conns:    make(chan *websocket.Conn, 4),
	}

	upgrader := websocket.Upgrader{}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := httprouter.New()
	mux.GET(api.Prefix+"/sessions/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		cp.sessionHits.Add(1)

		cp.mu.Lock()
		defer cp.mu.Unlock()
		writeJSON(w, cp.sessions)
	})
	mux.GET(api.Prefix+"/sessions/:sid/playerlist", func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		cp.playerHits.Add(1)

		cp.mu.Lock()
		defer cp.mu.Unlock()

		list, ok := cp.players[p.ByName("sid")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, list)
	})
	mux.GET("/ws/:token", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if token.ParsePayload(r.URL.Path[len("/ws/"):]) == nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cp.conns <- conn
	})

	cp.srv = httptest.NewServer(mux)
	t.Cleanup(cp.srv.Close)

	return cp
}

func (cp *controlPlane) accept(t *testing.T) *websocket.Conn {
	t.Helper()

	select {
	case conn := <-cp.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(5 * time.Second):
		t.Fatalf("page never opened its channel")
		return nil
	}
}

type viewRecorder struct {
	mu   sync.Mutex
	last listview.View
	n    int
}

func (r *viewRecorder) Update(v listview.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = v
	r.n++
}

func (r *viewRecorder) text() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return textOf(r.last)
}

func (cp *controlPlane) config(t *testing.T, store *token.Store, mount listview.Mount) *Config {
	t.Helper()

	base, err := url.Parse(cp.srv.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	return &Config{
		API:      api.NewClient(base, store, api.WithHTTPClient(cp.srv.Client())),
		Tokens:   store,
		Endpoint: "ws" + strings.TrimPrefix(cp.srv.URL, "http") + "/ws",
		Mount:    mount,
	}
}

func runPage(t *testing.T, p *Page) (context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errs := make(chan error, 1)
	go func() { errs <- p.Run(ctx) }()

	return cancel, errs
}

func TestControllerOverviewEndToEnd(t *testing.T) {
	cp := newControlPlane(t)

	store := token.NewStore(token.NewMemoryBackend())
	if err := store.Persist(token.Controller, mint(t, jwt.MapClaims{"auth_level": "control"})); err != nil {
		t.Fatalf("persist: %v", err)
	}

	rec := &viewRecorder{}
	p, err := NewControllerOverview(context.Background(), cp.config(t, store, rec))
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	_, errs := runPage(t, p)
	conn := cp.accept(t)

	waitFor(t, "initial refresh", func() bool { return cp.sessionHits.Load() == 1 })
	if got := rec.text(); got != "EMPTY" {
		t.Fatalf("expected empty state, got %q", got)
	}

	cp.mu.Lock()
	cp.sessions = []api.SessionData{{ID: "s1", Active: true, PlayerCount: 2}}
	cp.mu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(notify.EventSessionList)); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, "session list to render", func() bool { return rec.text() == "s1" })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("page did not stop")
	}

	if n := cp.sessionHits.Load(); n != 2 {
		t.Fatalf("expected the initial fetch plus exactly one event fetch, got %d", n)
	}
	if v := p.List.View(); len(v.Entries) != 1 || v.Entries[0].Empty {
		t.Fatalf("expected exactly one entry, got %+v", v)
	}
}

func TestPlayerLobbyUsesTokenSession(t *testing.T) {
	cp := newControlPlane(t)
	cp.players["abc"] = []api.PlayerData{{Name: "ann"}, {Name: ""}, {Name: "bob"}}

	store := token.NewStore(token.NewMemoryBackend())
	_ = store.Persist(token.Player, mint(t, jwt.MapClaims{
		"auth_level": "player",
		"session_id": "abc",
		"user_name":  "ann",
		"state":      "lobby",
	}))

	rec := &viewRecorder{}
	p, err := NewPlayerLobby(context.Background(), cp.config(t, store, rec))
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	cancel, errs := runPage(t, p)
	conn := cp.accept(t)

	waitFor(t, "player list", func() bool { return rec.text() == "ann,bob" })

	// the token vanishes mid-session: refreshes degrade quietly
	_ = store.Clear(token.Player)
	_ = conn.WriteMessage(websocket.TextMessage, []byte(notify.EventPlayerList))
	time.Sleep(50 * time.Millisecond)

	if got := rec.text(); got != "ann,bob" {
		t.Fatalf("stale list should stay visible, got %q", got)
	}
	if n := cp.playerHits.Load(); n != 1 {
		t.Fatalf("no request may be made without a token, got %d", n)
	}

	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestControllerSessionCollapsed(t *testing.T) {
	cp := newControlPlane(t)
	cp.players["s9"] = []api.PlayerData{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	store := token.NewStore(token.NewMemoryBackend())
	_ = store.Persist(token.Controller, mint(t, jwt.MapClaims{"auth_level": "control"}))

	rec := &viewRecorder{}
	cfg := cp.config(t, store, rec)
	cfg.Threshold = 2
	cfg.Collapsed = true

	p, err := NewControllerSession(context.Background(), cfg, "s9")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	v := p.List.View()
	if len(v.Entries) != 3 || v.Visible() != 2 || v.ToggleLabel != listview.LabelShowAll {
		t.Fatalf("expected three entries with two visible, got %+v", v)
	}
	if v.Title != "Players in s9" {
		t.Fatalf("unexpected title %q", v.Title)
	}

	p.List.ToggleCollapsed()
	if p.List.View().Visible() != 3 {
		t.Fatalf("toggle should reveal everything")
	}
}

func TestPagesRedirectWithoutToken(t *testing.T) {
	cp := newControlPlane(t)
	store := token.NewStore(token.NewMemoryBackend())
	cfg := cp.config(t, store, nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		build    func() (*Page, error)
		location string
	}{
		{"lobby", func() (*Page, error) { return NewPlayerLobby(ctx, cfg) }, "/?error=NoToken"},
		{"overview", func() (*Page, error) { return NewControllerOverview(ctx, cfg) }, "/ctrl/?error=NoToken"},
		{"session", func() (*Page, error) { return NewControllerSession(ctx, cfg, "s1") }, "/ctrl/?error=NoToken"},
	}

	for _, c := range cases {
		p, err := c.build()
		if p != nil {
			t.Fatalf("%s: expected no page", c.name)
		}

		var redirect *RedirectError
		if !errors.As(err, &redirect) {
			t.Fatalf("%s: expected RedirectError, got %v", c.name, err)
		}
		if redirect.Location() != c.location {
			t.Fatalf("%s: expected %q, got %q", c.name, c.location, redirect.Location())
		}
	}

	_, err := NewControllerOverview(ctx, cfg)
	if !errors.Is(err, notify.ErrChannelConstruction) {
		t.Fatalf("controller redirect should come from channel construction, got %v", err)
	}

	if len(cp.conns) != 0 || cp.sessionHits.Load() != 0 {
		t.Fatalf("nothing may touch the network without a token")
	}
}

func TestSupervisedPageRefreshesAfterReconnect(t *testing.T) {
	cp := newControlPlane(t)

	store := token.NewStore(token.NewMemoryBackend())
	_ = store.Persist(token.Controller, mint(t, jwt.MapClaims{"auth_level": "control"}))

	cfg := cp.config(t, store, nil)
	cfg.Reconnect = &notify.Backoff{Initial: 10 * time.Millisecond, Max: 20 * time.Millisecond}

	p, err := NewControllerOverview(context.Background(), cfg)
	if err != nil {
		t.Fatalf("page: %v", err)
	}

	cancel, errs := runPage(t, p)

	first := cp.accept(t)
	waitFor(t, "initial refresh", func() bool { return cp.sessionHits.Load() == 1 })

	_ = first.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	cp.accept(t)

	waitFor(t, "refresh after reconnect", func() bool { return cp.sessionHits.Load() == 2 })

	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLobbyAndControllerRenderersDiffer(t *testing.T) {
	cp := newControlPlane(t)
	cp.players["abc"] = []api.PlayerData{{Name: "ann"}}

	store := token.NewStore(token.NewMemoryBackend())
	_ = store.Persist(token.Player, mint(t, jwt.MapClaims{
		"auth_level": "player",
		"session_id": "abc",
		"user_name":  "ann",
		"state":      "lobby",
	}))
	_ = store.Persist(token.Controller, mint(t, jwt.MapClaims{"auth_level": "control"}))

	cfg := cp.config(t, store, nil)
	cfg.RenderLobbyPlayer = func(p api.PlayerData) listview.Node { return "lobby:" + p.Name }
	cfg.RenderPlayer = func(p api.PlayerData) listview.Node { return "ctrl:" + p.Name }

	lobby, err := NewPlayerLobby(context.Background(), cfg)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	session, err := NewControllerSession(context.Background(), cfg, "abc")
	if err != nil {
		t.Fatalf("session: %v", err)
	}

	for _, p := range []*Page{lobby, session} {
		if err := p.Refresh(context.Background()); err != nil {
			t.Fatalf("%s refresh: %v", p.Name, err)
		}
	}

	if got := textOf(lobby.List.View()); got != "lobby:ann" {
		t.Fatalf("lobby should use the lobby renderer, got %q", got)
	}
	if got := textOf(session.List.View()); got != "ctrl:ann" {
		t.Fatalf("controller page should use the player renderer, got %q", got)
	}
}
