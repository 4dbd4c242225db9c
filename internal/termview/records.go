/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package termview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/listview"
)

var (
	nameStyle       = lipgloss.NewStyle().Bold(true)
	detailStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	activeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	terminatedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
)

const timeFormat = "2006-01-02 15:04"

func stamp(unix int64) string {
	if unix <= 0 {
		return "unknown"
	}
	return time.Unix(unix, 0).Format(timeFormat)
}

// RenderPlayerName is the compact row players see in the lobby.
func RenderPlayerName(p api.PlayerData) listview.Node {
	if strings.TrimSpace(p.Name) == "" {
		return nil
	}
	return nameStyle.Render(p.Name)
}

// RenderPlayer is the controller's row: name, join time, state and role.
func RenderPlayer(p api.PlayerData) listview.Node {
	if strings.TrimSpace(p.Name) == "" {
		return nil
	}

	role := "none"
	if p.Role != nil && *p.Role != "" {
		role = *p.Role
	}

	return nameStyle.Render(p.Name) + "  " + detailStyle.Render(
		fmt.Sprintf("joined %s | %s | role: %s", stamp(p.Joined), p.State, role),
	)
}

func RenderSession(s api.SessionData) listview.Node {
	if strings.TrimSpace(s.ID) == "" {
		return nil
	}

	status := terminatedStyle.Render("TERMINATED")
	if s.Active {
		status = activeStyle.Render("ACTIVE")
	}

	players := "players"
	if s.PlayerCount == 1 {
		players = "player"
	}

	return nameStyle.Render(s.ID) + "  " + status + "  " + detailStyle.Render(
		fmt.Sprintf("%d %s | created %s", s.PlayerCount, players, stamp(s.Created)),
	)
}
