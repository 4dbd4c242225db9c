/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/token"
)

// Backoff bounds the wait between reconnect attempts.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Factor      float64
	MaxAttempts int // 0 means keep trying
}

func (b Backoff) withDefaults() Backoff {
	if b.Initial <= 0 {
		b.Initial = 500 * time.Millisecond
	}
	if b.Max <= 0 {
		b.Max = 30 * time.Second
	}
	if b.Factor < 1 {
		b.Factor = 2
	}
	return b
}

// Delay is the wait before attempt n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	b = b.withDefaults()

	d := float64(b.Initial)
	for i := 1; i < n; i++ {
		d *= b.Factor
		if d >= float64(b.Max) {
			return b.Max
		}
	}
	return time.Duration(d)
}

// Supervisor keeps a namespace connected by opening a fresh Channel each
// time the previous one closes. Every Channel it opens carries the handlers
// registered here.
type Supervisor struct {
	tokens   TokenSource
	ns       token.Namespace
	endpoint string
	backoff  Backoff
	opts     []Option
	logger   logging.Logger

	mu       sync.RWMutex
	handlers map[string]func()
	current  *Channel
}

func NewSupervisor(tokens TokenSource, ns token.Namespace, endpoint string, backoff Backoff, opts ...Option) (*Supervisor, error) {
	if _, ok := tokens.CurrentTokenString(ns); !ok {
		return nil, fmt.Errorf("%s channel: %w", ns, ErrChannelConstruction)
	}

	return &Supervisor{
		tokens:   tokens,
		ns:       ns,
		endpoint: endpoint,
		backoff:  backoff.withDefaults(),
		opts:     opts,
		logger:   buildOptions(opts).logger,
		handlers: make(map[string]func()),
	}, nil
}

func (s *Supervisor) RegisterEvent(id string, cb func()) bool {
	s.mu.Lock()
	_, exists := s.handlers[id]
	s.handlers[id] = cb
	current := s.current
	s.mu.Unlock()

	if current != nil {
		current.RegisterEvent(id, cb)
	}

	return !exists
}

// Current is the channel presently in use, or nil between attempts.
func (s *Supervisor) Current() *Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// Run keeps reconnecting until ctx ends, the attempt budget runs out, or the
// namespace token disappears.
func (s *Supervisor) Run(ctx context.Context) error {
	failures := 0

	for {
		ch, err := New(s.tokens, s.ns, s.endpoint, s.opts...)
		if err != nil {
			return err
		}

		s.mu.Lock()
		for id, cb := range s.handlers {
			ch.handlers[id] = cb
		}
		s.current = ch
		s.mu.Unlock()

		err = ch.Connect(ctx)
		if err == nil {
			failures = 0
			err = ch.Run(ctx)
		}

		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		failures++
		if s.backoff.MaxAttempts > 0 && failures >= s.backoff.MaxAttempts {
			if err == nil {
				err = errors.New("connection closed")
			}
			return fmt.Errorf("giving up after %d attempts: %w", failures, err)
		}

		delay := s.backoff.Delay(failures)
		s.logger.Info("reconnecting notification channel", "namespace", s.ns.String(), "attempt", failures, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
