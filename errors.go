/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Seednode/partysync/internal/api"
	"github.com/Seednode/partysync/internal/errmsg"
	"github.com/Seednode/partysync/internal/logging"
	"github.com/Seednode/partysync/internal/page"
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

// newLogger is handed to the library packages. Without --verbose only
// warnings and errors get through.
func newLogger(cfg *Config) logging.Logger {
	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}

	return logging.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// explain turns library errors into something a user can act on.
func explain(cfg *Config, err error) error {
	var redirect *page.RedirectError
	var login *api.LoginError
	var status *api.HTTPError

	switch {
	case errors.As(err, &redirect):
		hint := "partysync login player"
		if redirect.Target == "/ctrl/" {
			hint = "partysync login controller"
		}
		return fmt.Errorf("%s (try %q)", errmsg.Message(cfg.language, redirect.ErrorID), hint)
	case errors.Is(err, api.ErrNoToken):
		return errors.New(errmsg.Message(cfg.language, errmsg.NoToken))
	case errors.As(err, &login):
		return fmt.Errorf("login rejected (%d): %s", login.Status, login.Message)
	case errors.As(err, &status):
		return fmt.Errorf("control plane answered %d (%s)", status.Status, status.ContentType)
	}

	return err
}
