/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package listview projects snapshots of records into an ordered, optionally
// collapsed list of presentation nodes.
package listview

import (
	"sync"
)

const (
	DefaultEmptyMessage       = "Nothing here yet"
	DefaultCollapsedThreshold = 4
	DefaultTitle              = "List"

	LabelShowAll  = "show all"
	LabelCollapse = "collapse"
)

// Node is owned by the presentation layer. The list never looks inside.
type Node any

// Options configure a List. Zero values fall back to the defaults, which
// means a threshold of 0 becomes DefaultCollapsedThreshold.
type Options struct {
	EmptyMessage       string
	CollapsedThreshold int
	Title              string
}

func (o Options) withDefaults() Options {
	if o.EmptyMessage == "" {
		o.EmptyMessage = DefaultEmptyMessage
	}
	if o.CollapsedThreshold <= 0 {
		o.CollapsedThreshold = DefaultCollapsedThreshold
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	return o
}

// Entry is one row. The empty-state row has Empty set and carries Message
// instead of a Node.
type Entry struct {
	Node    Node
	Hidden  bool
	Empty   bool
	Message string
}

// View is a snapshot handed to the Mount after every change.
type View struct {
	Title       string
	Entries     []Entry
	Collapsed   bool
	ToggleLabel string
	// Toggleable is true when collapsing would hide anything.
	Toggleable bool
}

// Visible counts the entries not hidden by collapsing.
func (v View) Visible() int {
	n := 0
	for _, e := range v.Entries {
		if !e.Hidden {
			n++
		}
	}
	return n
}

// Mount receives each new View.
type Mount interface {
	Update(View)
}

type MountFunc func(View)

func (f MountFunc) Update(v View) {
	f(v)
}

type List[T any] struct {
	mount  Mount
	render func(T) Node
	opts   Options

	mu        sync.Mutex
	entries   []Entry
	collapsed bool
}

// New builds a list in its empty state, uncollapsed, and shows it once.
func New[T any](mount Mount, render func(T) Node, opts Options) *List[T] {
	l := &List[T]{
		mount:  mount,
		render: render,
		opts:   opts.withDefaults(),
	}

	l.mu.Lock()
	l.entries = l.emptyEntries()
	l.mu.Unlock()

	l.publish()

	return l
}

func (l *List[T]) emptyEntries() []Entry {
	return []Entry{{Empty: true, Message: l.opts.EmptyMessage}}
}

// SetData replaces every entry with a projection of items. Items rendering
// to nil are left out; nothing left means the empty-state entry.
func (l *List[T]) SetData(items []T) {
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		node := l.render(item)
		if node == nil {
			continue
		}
		entries = append(entries, Entry{Node: node})
	}
	if len(entries) == 0 {
		entries = l.emptyEntries()
	}

	l.mu.Lock()
	l.entries = entries
	l.applyCollapsed()
	l.mu.Unlock()

	l.publish()
}

// SetCollapsed hides or shows entries past the threshold. Asking for the
// current state does nothing.
func (l *List[T]) SetCollapsed(collapsed bool) {
	l.mu.Lock()
	if l.collapsed == collapsed {
		l.mu.Unlock()
		return
	}
	l.collapsed = collapsed
	l.applyCollapsed()
	l.mu.Unlock()

	l.publish()
}

func (l *List[T]) ToggleCollapsed() {
	l.mu.Lock()
	collapsed := !l.collapsed
	l.mu.Unlock()

	l.SetCollapsed(collapsed)
}

func (l *List[T]) Collapsed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.collapsed
}

func (l *List[T]) applyCollapsed() {
	for i := range l.entries {
		l.entries[i].Hidden = l.collapsed && i >= l.opts.CollapsedThreshold
	}
}

func (l *List[T]) toggleLabel() string {
	if l.collapsed {
		return LabelShowAll
	}
	return LabelCollapse
}

// View returns a copy of the current state.
func (l *List[T]) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)

	return View{
		Title:       l.opts.Title,
		Entries:     entries,
		Collapsed:   l.collapsed,
		ToggleLabel: l.toggleLabel(),
		Toggleable:  len(entries) > l.opts.CollapsedThreshold,
	}
}

func (l *List[T]) publish() {
	if l.mount == nil {
		return
	}
	l.mount.Update(l.View())
}
