/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package notify holds the push side of the client: one websocket per
// identity namespace, carrying bare event ids.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/token"
)

// ErrChannelConstruction is returned when a channel is requested for a
// namespace that has no token. No socket is opened.
var ErrChannelConstruction = errors.New("notification channel requires a token")

// ErrClosed is returned when a closed channel is asked to connect again.
var ErrClosed = errors.New("notification channel closed")

type State int32

const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Well-known event ids.
const (
	EventPlayerList  = "update.playerlist"
	EventSessionList = "controller.sessionlist"
)

type TokenSource interface {
	CurrentTokenString(ns token.Namespace) (string, bool)
}

type options struct {
	dialer  *websocket.Dialer
	logger  logging.Logger
	onOpen  func()
	onError func(error)
}

type Option func(*options)

func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		o.dialer = d
	}
}

// WithCookieJar attaches jar to the default dialer, so mirrored token
// cookies ride along with the upgrade request.
func WithCookieJar(jar http.CookieJar) Option {
	return func(o *options) {
		d := *websocket.DefaultDialer
		d.Jar = jar
		o.dialer = &d
	}
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// OnOpen is called each time the socket finishes its handshake.
func OnOpen(fn func()) Option {
	return func(o *options) {
		o.onOpen = fn
	}
}

// OnError observes connection-level failures. It does not change state.
func OnError(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = logging.OrNop(o.logger)
	return o
}

// Channel is a single push socket. It moves Connecting -> Open -> Closed and
// never leaves Closed.
type Channel struct {
	id       string
	ns       token.Namespace
	endpoint string
	tok      string
	opts     options

	state atomic.Int32

	mu       sync.RWMutex
	handlers map[string]func()
	conn     *websocket.Conn

	closeOnce sync.Once
}

// New prepares a channel for ns without dialing. It fails if ns has no token.
func New(tokens TokenSource, ns token.Namespace, endpoint string, opts ...Option) (*Channel, error) {
	tok, ok := tokens.CurrentTokenString(ns)
	if !ok {
		return nil, fmt.Errorf("%s channel: %w", ns, ErrChannelConstruction)
	}

	c := &Channel{
		id:       uuid.NewString(),
		ns:       ns,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		tok:      tok,
		opts:     buildOptions(opts),
		handlers: make(map[string]func()),
	}
	c.state.Store(int32(Connecting))

	return c, nil
}

// Dial is New followed by Connect.
func Dial(ctx context.Context, tokens TokenSource, ns token.Namespace, endpoint string, opts ...Option) (*Channel, error) {
	c, err := New(tokens, ns, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) url() string {
	return c.endpoint + "/" + url.PathEscape(c.tok)
}

// Connect performs the handshake. The token is the only credential; it
// travels as the last path segment.
func (c *Channel) Connect(ctx context.Context) error {
	if c.State() != Connecting {
		return ErrClosed
	}

	c.opts.logger.Debug("connecting notification channel", "channel", c.id, "namespace", c.ns.String())

	conn, resp, err := c.opts.dialer.DialContext(ctx, c.url(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.state.Store(int32(Closed))
		c.reportError(err)
		return fmt.Errorf("%s channel: %w", c.ns, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(Connecting), int32(Open)) {
		// closed while dialing
		_ = conn.Close()
		return ErrClosed
	}

	c.opts.logger.Info("notification channel open", "channel", c.id, "namespace", c.ns.String())

	if c.opts.onOpen != nil {
		c.opts.onOpen()
	}

	return nil
}

// RegisterEvent installs cb under id. It reports false when an earlier
// callback was replaced.
func (c *Channel) RegisterEvent(id string, cb func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, exists := c.handlers[id]
	c.handlers[id] = cb

	if exists {
		c.opts.logger.Debug("replaced event handler", "channel", c.id, "event", id)
	}

	return !exists
}

func (c *Channel) dispatch(id string) bool {
	c.mu.RLock()
	cb, ok := c.handlers[id]
	c.mu.RUnlock()

	if !ok {
		c.opts.logger.Debug("dropping unknown event", "channel", c.id, "event", id)
		return false
	}

	cb()
	return true
}

// Run reads frames until the socket closes or ctx ends, invoking callbacks
// on the calling goroutine. It connects first if needed. A normal close from
// either side returns nil.
func (c *Channel) Run(ctx context.Context) error {
	if c.State() == Connecting {
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || c.State() != Open {
		return ErrClosed
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	defer c.state.Store(int32(Closed))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.State() == Closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.opts.logger.Info("notification channel closed", "channel", c.id)
				return nil
			}
			c.reportError(err)
			return fmt.Errorf("%s channel: %w", c.ns, err)
		}

		c.dispatch(string(data))
	}
}

func (c *Channel) reportError(err error) {
	c.opts.logger.Warn("notification channel error", "channel", c.id, "namespace", c.ns.String(), "error", err)

	if c.opts.onError != nil {
		c.opts.onError(err)
	}
}

// Close ends the channel. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error

	c.closeOnce.Do(func() {
		c.state.Store(int32(Closed))

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			return
		}

		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = conn.Close()
	})

	return err
}
