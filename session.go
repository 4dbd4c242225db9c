/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/token"
)

// session bundles everything a command needs to talk to the control plane.
type session struct {
	logger logging.Logger
	tokens *token.Store
	api    *api.Client
	close  func()
}

func newBackend(cfg *Config) (token.Backend, func(), error) {
	switch cfg.store {
	case "memory":
		return token.NewMemoryBackend(), func() {}, nil
	case "valkey":
		b, err := token.NewValkeyBackend(cfg.valkeyAddr, "partysync:")
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to valkey at %s: %w", cfg.valkeyAddr, err)
		}
		return b, b.Close, nil
	default:
		return token.NewFileBackend(cfg.stateDir), func() {}, nil
	}
}

func openSession(cfg *Config) (*session, error) {
	logger := newLogger(cfg)

	backend, closer, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		closer()
		return nil, err
	}

	tokens := token.NewStore(backend,
		token.WithCookieJar(jar, cfg.serverURL),
		token.WithLogger(logger),
	)

	client := api.NewClient(cfg.serverURL, tokens,
		api.WithHTTPClient(&http.Client{Jar: jar}),
		api.WithLogger(logger),
	)

	logf(cfg, "STORE: Using %s token storage", cfg.store)

	return &session{
		logger: logger,
		tokens: tokens,
		api:    client,
		close:  closer,
	}, nil
}
