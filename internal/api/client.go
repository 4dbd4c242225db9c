/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package api issues requests against the control plane on behalf of one of
// the two token namespaces.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/token"
)

const Prefix = "/api/v1"

// ErrNoToken means no token is stored for the namespace. No request was made.
var ErrNoToken = errors.New("no token stored")

// HTTPError is returned when a response is not usable JSON.
type HTTPError struct {
	Status      int
	ContentType string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unusable response: %d %s (%q)", e.Status, http.StatusText(e.Status), e.ContentType)
}

// TokenSource is the slice of token.Store the client needs.
type TokenSource interface {
	CurrentTokenString(ns token.Namespace) (string, bool)
}

type Client struct {
	base   *url.URL
	tokens TokenSource
	http   *http.Client
	logger logging.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

func WithLogger(l logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient talks to the control plane rooted at base.
func NewClient(base *url.URL, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		base:   base,
		tokens: tokens,
		http:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

type request struct {
	method string
	body   io.Reader
	header http.Header
}

type RequestOption func(*request)

func WithMethod(method string) RequestOption {
	return func(r *request) {
		r.method = method
	}
}

func WithBody(body io.Reader) RequestOption {
	return func(r *request) {
		r.body = body
	}
}

// WithJSON encodes v as the body and sets the content type.
func WithJSON(v any) RequestOption {
	return func(r *request) {
		data, err := json.Marshal(v)
		if err != nil {
			r.body = errReader{err}
			return
		}
		r.body = bytes.NewReader(data)
		r.header.Set("Content-Type", "application/json")
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *request) {
		r.header.Add(key, value)
	}
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(c.base.String(), "/") + Prefix + path
}

// Request sends an authenticated request for ns. The bearer header is added
// next to whatever the caller set. The response is returned as is; see
// UsableJSON and DecodeJSON.
func (c *Client) Request(ctx context.Context, ns token.Namespace, path string, opts ...RequestOption) (*http.Response, error) {
	tok, ok := c.tokens.CurrentTokenString(ns)
	if !ok {
		return nil, fmt.Errorf("%s request to %s: %w", ns, path, ErrNoToken)
	}

	r := &request{
		method: http.MethodGet,
		header: make(http.Header),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.header.Add("Authorization", "Bearer "+tok)

	return c.do(ctx, r, path)
}

func (c *Client) do(ctx context.Context, r *request, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.endpoint(path), r.body)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	id := req.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
		req.Header.Set("X-Request-ID", id)
	}

	c.logger.Debug("api request", "method", r.method, "path", path, "request_id", id)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("api response", "path", path, "status", resp.StatusCode, "request_id", id)

	return resp, nil
}

// UsableJSON is true only for status 200 with a JSON content type.
func UsableJSON(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusOK {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// DecodeJSON decodes resp into v when it is usable JSON and closes the body
// either way.
func DecodeJSON(resp *http.Response, v any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if !UsableJSON(resp) {
		return &HTTPError{
			Status:      resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// getJSON is the shape every typed endpoint shares.
func (c *Client) getJSON(ctx context.Context, ns token.Namespace, path string, v any) error {
	resp, err := c.Request(ctx, ns, path)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, v)
}
