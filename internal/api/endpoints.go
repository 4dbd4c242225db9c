/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package api

import (
	"context"
	"net/url"
	"time"

	"github.com/Seednode/partysync/internal/token"
)

type PlayerData struct {
	UserID uint32  `json:"user_id"`
	Name   string  `json:"name"`
	Role   *string `json:"role"`
	Joined int64   `json:"joined"`
	State  string  `json:"state"`
}

// JoinedAt converts the server's unix seconds.
func (p PlayerData) JoinedAt() time.Time {
	return time.Unix(p.Joined, 0)
}

type SessionData struct {
	ID          string `json:"id"`
	PlayerCount uint32 `json:"player_count"`
	Active      bool   `json:"active"`
	Created     int64  `json:"created"`
}

func (s SessionData) CreatedAt() time.Time {
	return time.Unix(s.Created, 0)
}

type Stats struct {
	WSConnected    uint32 `json:"ws_connected"`
	SessionsActive uint32 `json:"sessions_active"`
	UniqueUsers    uint64 `json:"unique_users"`
}

func (c *Client) PlayerList(ctx context.Context, ns token.Namespace, sessionID string) ([]PlayerData, error) {
	var list []PlayerData
	if err := c.getJSON(ctx, ns, "/sessions/"+url.PathEscape(sessionID)+"/playerlist", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Sessions(ctx context.Context, ns token.Namespace) ([]SessionData, error) {
	var list []SessionData
	if err := c.getJSON(ctx, ns, "/sessions/", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) Stats(ctx context.Context, ns token.Namespace) (*Stats, error) {
	var s Stats
	if err := c.getJSON(ctx, ns, "/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
