/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seednode/partysync/internal/token"
)

func newStatsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show control plane counters.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			// either identity will do; prefer the controller's
			ns := token.Controller
			if _, ok := s.tokens.CurrentTokenString(ns); !ok {
				ns = token.Player
			}

			stats, err := s.api.Stats(cmd.Context(), ns)
			if err != nil {
				return explain(cfg, err)
			}

			logf(cfg, "STATS: Fetched as %s", ns)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connected sockets: %d\n", stats.WSConnected)
			fmt.Fprintf(out, "active sessions:   %d\n", stats.SessionsActive)
			fmt.Fprintf(out, "unique users:      %d\n", stats.UniqueUsers)

			return nil
		},
	}
}
