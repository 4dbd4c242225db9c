/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package termview draws list views on a terminal.
package termview

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Seednode/partysync/internal/listview"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	emptyStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	toggleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Mount redraws the whole list on every update.
type Mount struct {
	mu   sync.Mutex
	out  io.Writer
	last listview.View
}

func NewMount(out io.Writer) *Mount {
	return &Mount{out: out}
}

func (m *Mount) Update(v listview.View) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = v

	if m.out != nil {
		fmt.Fprintln(m.out, Render(v))
	}
}

// Last is the most recent view handed to the mount.
func (m *Mount) Last() listview.View {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last
}

func nodeText(n listview.Node) string {
	switch v := n.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func footer(v listview.View) string {
	if !v.Toggleable {
		return ""
	}
	return fmt.Sprintf("[%s] %d of %d shown", v.ToggleLabel, v.Visible(), len(v.Entries))
}

// Render styles v for a terminal.
func Render(v listview.View) string {
	lines := []string{titleStyle.Render(v.Title)}

	for _, e := range v.Entries {
		switch {
		case e.Hidden:
			continue
		case e.Empty:
			lines = append(lines, emptyStyle.Render(e.Message))
		default:
			lines = append(lines, nodeText(e.Node))
		}
	}

	if f := footer(v); f != "" {
		lines = append(lines, toggleStyle.Render(f))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderPlain is Render without styling, for non-terminal consumers.
func RenderPlain(v listview.View) string {
	var b strings.Builder

	b.WriteString(v.Title)
	b.WriteString("\n")

	for _, e := range v.Entries {
		switch {
		case e.Hidden:
			continue
		case e.Empty:
			b.WriteString("  " + e.Message + "\n")
		default:
			b.WriteString("  " + nodeText(e.Node) + "\n")
		}
	}

	if f := footer(v); f != "" {
		b.WriteString(f + "\n")
	}

	return b.String()
}
