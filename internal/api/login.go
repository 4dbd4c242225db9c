/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package api

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// maxLoginBody caps what is read from a login response; it should hold a
// token or a short message.
const maxLoginBody = 64 << 10

// LoginError carries the server's plain-text refusal.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	return e.Message
}

type connectPlayer struct {
	Username  string `json:"username"`
	SessionID string `json:"session_id"`
}

type connectController struct {
	Password string `json:"password"`
}

// ConnectPlayer asks to join sessionID as username and returns the issued
// token. It does not store it.
func (c *Client) ConnectPlayer(ctx context.Context, username, sessionID string) (string, error) {
	return c.connect(ctx, "/auth/connect/client", connectPlayer{
		Username:  strings.TrimSpace(username),
		SessionID: strings.TrimSpace(sessionID),
	})
}

func (c *Client) ConnectController(ctx context.Context, password string) (string, error) {
	return c.connect(ctx, "/auth/connect/ctrl", connectController{
		Password: strings.TrimSpace(password),
	})
}

func (c *Client) connect(ctx context.Context, path string, body any) (string, error) {
	r := &request{
		method: http.MethodPost,
		header: make(http.Header),
	}
	WithJSON(body)(r)

	resp, err := c.do(ctx, r, path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginBody))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))

	if resp.StatusCode != http.StatusOK {
		if text == "" {
			text = "connect failed"
		}
		return "", &LoginError{
			Status:  resp.StatusCode,
			Message: text,
		}
	}

	return text, nil
}
