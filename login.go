/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Seednode/partysync/internal/errmsg"
	"github.com/Seednode/partysync/internal/token"
)

func newLoginCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Obtain and store a player or controller token.",
		Args:  cobra.NoArgs,
	}

	var username, sessionID string

	player := &cobra.Command{
		Use:   "player",
		Short: "Join a session as a player.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(sessionID) == "" {
				return errors.New(errmsg.Message(cfg.language, errmsg.InvalidSessionID))
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			tok, err := s.api.ConnectPlayer(cmd.Context(), username, sessionID)
			if err != nil {
				return explain(cfg, err)
			}

			return storeLogin(cfg, cmd.OutOrStdout(), s.tokens, token.Player, tok)
		},
	}

	normalizeFlags(player.Flags())
	player.Flags().StringVarP(&username, "username", "u", "", "name shown to other players (env: PARTYSYNC_USERNAME)")
	player.Flags().StringVar(&sessionID, "session", "", "session to join (env: PARTYSYNC_SESSION)")

	var password string

	controller := &cobra.Command{
		Use:   "controller",
		Short: "Log in to the control interface.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			tok, err := s.api.ConnectController(cmd.Context(), password)
			if err != nil {
				return explain(cfg, err)
			}

			return storeLogin(cfg, cmd.OutOrStdout(), s.tokens, token.Controller, tok)
		},
	}

	normalizeFlags(controller.Flags())
	controller.Flags().StringVarP(&password, "password", "p", "", "controller password (env: PARTYSYNC_PASSWORD)")

	cmd.AddCommand(player, controller)

	return cmd
}

func storeLogin(cfg *Config, out io.Writer, tokens *token.Store, ns token.Namespace, tok string) error {
	if err := tokens.Persist(ns, tok); err != nil {
		return fmt.Errorf("storing %s token: %w", ns, err)
	}

	logf(cfg, "LOGIN: Stored %s token under %q", ns, ns.Key())

	claims := tokens.CurrentTokenData(ns)
	if claims == nil {
		// stored anyway; the server is the authority on what it issued
		fmt.Fprintf(out, "logged in as %s, but the token could not be decoded\n", ns)
		return nil
	}

	if ns == token.Player {
		fmt.Fprintf(out, "logged in as %s in session %s\n", claims.UserName, claims.SessionID)
		return nil
	}

	fmt.Fprintln(out, "logged in as controller")
	return nil
}

func newLogoutCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:       "logout [player|controller]",
		Short:     "Forget stored tokens.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"player", "controller"},
		RunE: func(cmd *cobra.Command, args []string) error {
			namespaces := []token.Namespace{token.Player, token.Controller}
			if len(args) == 1 {
				ns, err := token.ParseNamespace(args[0])
				if err != nil {
					return err
				}
				namespaces = []token.Namespace{ns}
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			for _, ns := range namespaces {
				if err := s.tokens.Clear(ns); err != nil {
					return fmt.Errorf("clearing %s token: %w", ns, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", ns)
			}

			return nil
		},
	}
}

func newWhoamiCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the decoded contents of the stored tokens.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			now := time.Now()
			for _, ns := range []token.Namespace{token.Player, token.Controller} {
				_, present := s.tokens.CurrentTokenString(ns)
				fmt.Fprintln(cmd.OutOrStdout(), describe(ns, present, s.tokens.CurrentTokenData(ns), now))
			}

			return nil
		},
	}
}

// describe is one whoami line.
func describe(ns token.Namespace, present bool, claims *token.Payload, now time.Time) string {
	switch {
	case !present:
		return fmt.Sprintf("%s: not logged in", ns)
	case claims == nil:
		return fmt.Sprintf("%s: stored token is not a valid %s token", ns, ns)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s:", ns)

	if ns == token.Player {
		role := "none"
		if claims.Role != nil {
			role = *claims.Role
		}
		fmt.Fprintf(&b, " %s in session %s (state %s, role %s)", claims.UserName, claims.SessionID, claims.State, role)
	} else {
		b.WriteString(" control access")
	}

	if claims.Exp != nil {
		verb := "expires"
		if claims.Expired(now) {
			verb = "expired"
		}
		fmt.Fprintf(&b, ", %s %s", verb, claims.Exp.Time.Local().Format(time.RFC3339))
	}

	return b.String()
}
