/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package token

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/Seednode/partysync/internal/logging"
)

// Backend is where raw token strings live between runs.
type Backend interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
	Delete(key string) error
}

// Store keeps one token per namespace. It is the only place that knows the
// storage keys; everything else asks by namespace.
type Store struct {
	backend Backend
	jar     http.CookieJar
	base    *url.URL
	logger  logging.Logger
}

type Option func(*Store)

// WithCookieJar mirrors persisted tokens into jar as cookies scoped to base.
func WithCookieJar(jar http.CookieJar, base *url.URL) Option {
	return func(s *Store) {
		s.jar = jar
		s.base = base
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)

	// tokens saved by an earlier run still belong in the jar
	for _, ns := range []Namespace{Player, Controller} {
		if tok, ok := s.CurrentTokenString(ns); ok {
			s.mirror(ns, tok, 0)
		}
	}

	return s
}

// Jar returns the cookie jar tokens are mirrored into, if any.
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

// Persist writes tok under the namespace key and mirrors it into a cookie of
// the same name. Expiry is not checked.
func (s *Store) Persist(ns Namespace, tok string) error {
	if tok == "" {
		return errors.New("refusing to persist an empty token")
	}

	if err := s.backend.Save(ns.Key(), tok); err != nil {
		return err
	}

	s.mirror(ns, tok, 0)

	s.logger.Debug("persisted token", "namespace", ns.String())

	return nil
}

// Clear forgets the namespace token and expires its cookie.
func (s *Store) Clear(ns Namespace) error {
	if err := s.backend.Delete(ns.Key()); err != nil {
		return err
	}

	s.mirror(ns, "", -1)

	return nil
}

func (s *Store) mirror(ns Namespace, value string, maxAge int) {
	if s.jar == nil || s.base == nil {
		return
	}

	s.jar.SetCookies(s.base, []*http.Cookie{{
		Name:   ns.Key(),
		Value:  value,
		Path:   "/",
		MaxAge: maxAge,
	}})
}

// CurrentTokenString is a raw read. Backend failures count as "no token".
func (s *Store) CurrentTokenString(ns Namespace) (string, bool) {
	tok, ok, err := s.backend.Load(ns.Key())
	if err != nil {
		s.logger.Warn("token read failed", "namespace", ns.String(), "error", err)
		return "", false
	}
	if !ok || tok == "" {
		return "", false
	}
	return tok, true
}

// CurrentTokenData decodes the namespace token. Any failure, including a
// token issued for the other namespace, yields nil.
func (s *Store) CurrentTokenData(ns Namespace) *Payload {
	tok, ok := s.CurrentTokenString(ns)
	if !ok {
		return nil
	}

	p, err := Parse(tok)
	if err != nil {
		s.logger.Debug("stored token does not decode", "namespace", ns.String(), "error", err)
		return nil
	}

	if p.AuthLevel != ns.Level() {
		s.logger.Debug("stored token has wrong auth level", "namespace", ns.String(), "level", string(p.AuthLevel))
		return nil
	}

	return p
}
