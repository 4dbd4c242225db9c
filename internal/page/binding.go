/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package page wires push events to fetches to lists, one composition root
// per screen.
package page

import (
	"context"
	"errors"
	"sync"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/listview"
	"github.com/Seednode/partysync/internal/logging"
)

// EventSource is satisfied by both notify.Channel and notify.Supervisor.
type EventSource interface {
	RegisterEvent(id string, cb func()) bool
	Run(ctx context.Context) error
}

type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Binding refreshes one list whenever one event arrives. Fetches are never
// cancelled by newer events; whichever lands last is what the list shows.
type Binding[T any] struct {
	ctx    context.Context
	event  string
	fetch  Fetcher[T]
	list   *listview.List[T]
	logger logging.Logger

	wg sync.WaitGroup
}

// Bind registers the event on src. Fetches started by the event run under ctx.
func Bind[T any](ctx context.Context, src EventSource, event string, fetch Fetcher[T], list *listview.List[T], logger logging.Logger) *Binding[T] {
	b := &Binding[T]{
		ctx:    ctx,
		event:  event,
		fetch:  fetch,
		list:   list,
		logger: logging.OrNop(logger),
	}

	if !src.RegisterEvent(event, b.Trigger) {
		b.logger.Debug("event already had a handler", "event", event)
	}

	return b
}

// Trigger starts a fetch in the background.
func (b *Binding[T]) Trigger() {
	b.logger.Debug("event received", "event", b.event)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		_ = b.Refresh(b.ctx)
	}()
}

// Refresh fetches and, on success, replaces the list contents. Failures
// leave the previous contents in place.
func (b *Binding[T]) Refresh(ctx context.Context) error {
	items, err := b.fetch(ctx)
	if err != nil {
		var httpErr *api.HTTPError
		switch {
		case errors.Is(err, api.ErrNoToken):
			b.logger.Warn("skipping refresh without token", "event", b.event)
		case errors.As(err, &httpErr):
			b.logger.Debug("skipping refresh", "event", b.event, "status", httpErr.Status)
		case ctx.Err() != nil:
		default:
			b.logger.Warn("refresh failed", "event", b.event, "error", err)
		}
		return err
	}

	b.list.SetData(items)

	return nil
}

// Wait blocks until every triggered fetch has landed.
func (b *Binding[T]) Wait() {
	b.wg.Wait()
}
