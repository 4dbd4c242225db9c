/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package page

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/errmsg"
	"github.com/Seednode/partysync/internal/listview"
	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/notify"
	"github.com/Seednode/partysync/internal/token"
)

// RedirectError means the page cannot be shown and the user belongs on a
// login page instead.
type RedirectError struct {
	Target  string
	ErrorID string
	Err     error
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s: %v", e.Location(), e.Err)
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// Location is the login page with the error id attached.
func (e *RedirectError) Location() string {
	return e.Target + "?error=" + e.ErrorID
}

func loginTarget(ns token.Namespace) string {
	if ns == token.Controller {
		return "/ctrl/"
	}
	return "/"
}

func redirect(ns token.Namespace, err error) error {
	return &RedirectError{
		Target:  loginTarget(ns),
		ErrorID: errmsg.NoToken,
		Err:     err,
	}
}

type Config struct {
	API      *api.Client
	Tokens   *token.Store
	Endpoint string

	Mount     listview.Mount
	Threshold int
	Collapsed bool

	// Render functions; nil falls back to bare names and ids. The lobby
	// uses RenderLobbyPlayer, controller pages use RenderPlayer.
	RenderLobbyPlayer func(api.PlayerData) listview.Node
	RenderPlayer      func(api.PlayerData) listview.Node
	RenderSession     func(api.SessionData) listview.Node

	// Reconnect switches from a single channel to a supervised one.
	Reconnect *notify.Backoff

	ChannelOptions []notify.Option
	Logger         logging.Logger
}

// List is the part of a listview.List a page exposes.
type List interface {
	SetCollapsed(bool)
	ToggleCollapsed()
	View() listview.View
}

type Page struct {
	Name string
	List List

	source  EventSource
	refresh func(ctx context.Context) error
	trigger func()
	wait    func()
	opened  atomic.Int32
	logger  logging.Logger
}

func (cfg *Config) openSource(ns token.Namespace, p *Page) (EventSource, error) {
	opts := append([]notify.Option{
		notify.WithLogger(cfg.Logger),
		notify.WithCookieJar(cfg.Tokens.Jar()),
		notify.OnOpen(func() { p.reopened() }),
	}, cfg.ChannelOptions...)

	if cfg.Reconnect != nil {
		return notify.NewSupervisor(cfg.Tokens, ns, cfg.Endpoint, *cfg.Reconnect, opts...)
	}
	return notify.New(cfg.Tokens, ns, cfg.Endpoint, opts...)
}

// reopened refreshes after every handshake but the first, since events sent
// while disconnected are lost.
func (p *Page) reopened() {
	if p.opened.Add(1) == 1 || p.trigger == nil {
		return
	}
	p.trigger()
}

func newList[T any](cfg *Config, render func(T) listview.Node, empty, title string) *listview.List[T] {
	l := listview.New(cfg.Mount, render, listview.Options{
		EmptyMessage:       empty,
		CollapsedThreshold: cfg.Threshold,
		Title:              title,
	})
	if cfg.Collapsed {
		l.SetCollapsed(true)
	}
	return l
}

func (cfg *Config) lobbyRenderer() func(api.PlayerData) listview.Node {
	if cfg.RenderLobbyPlayer != nil {
		return cfg.RenderLobbyPlayer
	}
	return playerName
}

func (cfg *Config) playerRenderer() func(api.PlayerData) listview.Node {
	if cfg.RenderPlayer != nil {
		return cfg.RenderPlayer
	}
	return playerName
}

func playerName(p api.PlayerData) listview.Node {
	if p.Name == "" {
		return nil
	}
	return p.Name
}

func (cfg *Config) sessionRenderer() func(api.SessionData) listview.Node {
	if cfg.RenderSession != nil {
		return cfg.RenderSession
	}
	return func(s api.SessionData) listview.Node {
		if s.ID == "" {
			return nil
		}
		return s.ID
	}
}

func build[T any](ctx context.Context, cfg *Config, p *Page, ns token.Namespace, event string, fetch Fetcher[T], list *listview.List[T]) (*Page, error) {
	src, err := cfg.openSource(ns, p)
	if err != nil {
		if errors.Is(err, notify.ErrChannelConstruction) {
			return nil, redirect(ns, err)
		}
		return nil, err
	}

	b := Bind(ctx, src, event, fetch, list, cfg.Logger)

	p.List = list
	p.source = src
	p.refresh = b.Refresh
	p.trigger = b.Trigger
	p.wait = b.Wait
	p.logger = logging.OrNop(cfg.Logger)

	return p, nil
}

// NewPlayerLobby is the in-game roster a player sees.
func NewPlayerLobby(ctx context.Context, cfg *Config) (*Page, error) {
	if cfg.Tokens.CurrentTokenData(token.Player) == nil {
		return nil, redirect(token.Player, api.ErrNoToken)
	}

	fetch := func(ctx context.Context) ([]api.PlayerData, error) {
		claims := cfg.Tokens.CurrentTokenData(token.Player)
		if claims == nil {
			return nil, api.ErrNoToken
		}
		return cfg.API.PlayerList(ctx, token.Player, claims.SessionID)
	}

	list := newList(cfg, cfg.lobbyRenderer(), "No players connected", "Players")

	return build(ctx, cfg, &Page{Name: "lobby"}, token.Player, notify.EventPlayerList, fetch, list)
}

// NewControllerOverview lists every session.
func NewControllerOverview(ctx context.Context, cfg *Config) (*Page, error) {
	fetch := func(ctx context.Context) ([]api.SessionData, error) {
		return cfg.API.Sessions(ctx, token.Controller)
	}

	list := newList(cfg, cfg.sessionRenderer(), "No sessions created", "Sessions")

	return build(ctx, cfg, &Page{Name: "overview"}, token.Controller, notify.EventSessionList, fetch, list)
}

// NewControllerSession lists the players of one session.
func NewControllerSession(ctx context.Context, cfg *Config, sessionID string) (*Page, error) {
	fetch := func(ctx context.Context) ([]api.PlayerData, error) {
		return cfg.API.PlayerList(ctx, token.Controller, sessionID)
	}

	list := newList(cfg, cfg.playerRenderer(), "No players in this session", "Players in "+sessionID)

	return build(ctx, cfg, &Page{Name: "session"}, token.Controller, notify.EventPlayerList, fetch, list)
}

// Refresh fetches once outside of any event.
func (p *Page) Refresh(ctx context.Context) error {
	return p.refresh(ctx)
}

// Run shows the first snapshot, then follows push events until the channel
// closes or ctx ends.
func (p *Page) Run(ctx context.Context) error {
	if err := p.refresh(ctx); err != nil {
		p.logger.Debug("initial refresh failed", "page", p.Name, "error", err)
	}

	err := p.source.Run(ctx)

	p.wait()

	return err
}
