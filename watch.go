/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Seednode/partysync/internal/notify"
	"github.com/Seednode/partysync/internal/page"
	"github.com/Seednode/partysync/internal/termview"
)

type pageBuilder func(ctx context.Context, pc *page.Config, args []string) (*page.Page, error)

func newWatchCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a live list until the server closes the channel.",
		Args:  cobra.NoArgs,
	}

	fs := cmd.PersistentFlags()
	normalizeFlags(fs)

	fs.BoolVar(&cfg.collapsed, "collapsed", false, "start with long lists collapsed (env: PARTYSYNC_COLLAPSED)")
	fs.StringVarP(&cfg.listen, "listen", "l", "", "also serve the list on this address, e.g. 127.0.0.1:8080 (env: PARTYSYNC_LISTEN)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the --listen server (env: PARTYSYNC_PROFILE)")
	fs.BoolVar(&cfg.reconnect, "reconnect", false, "reopen the notification channel when it drops (env: PARTYSYNC_RECONNECT)")
	fs.IntVar(&cfg.threshold, "threshold", 0, "entries shown while collapsed, 0 for the default (env: PARTYSYNC_THRESHOLD)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "lobby",
			Short: "Players in the session of the stored player token.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return watch(cmd, cfg, args, func(ctx context.Context, pc *page.Config, _ []string) (*page.Page, error) {
					return page.NewPlayerLobby(ctx, pc)
				})
			},
		},
		&cobra.Command{
			Use:   "sessions",
			Short: "Every session, as a controller.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return watch(cmd, cfg, args, func(ctx context.Context, pc *page.Config, _ []string) (*page.Page, error) {
					return page.NewControllerOverview(ctx, pc)
				})
			},
		},
		&cobra.Command{
			Use:   "session <session-id>",
			Short: "Players in one session, as a controller.",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return watch(cmd, cfg, args, func(ctx context.Context, pc *page.Config, args []string) (*page.Page, error) {
					return page.NewControllerSession(ctx, pc, args[0])
				})
			},
		},
	)

	return cmd
}

func watch(cmd *cobra.Command, cfg *Config, args []string, build pageBuilder) error {
	if err := loadTimeZone(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.close()

	mount := termview.NewMount(cmd.OutOrStdout())

	pc := &page.Config{
		API:               s.api,
		Tokens:            s.tokens,
		Endpoint:          cfg.wsURL.String(),
		Mount:             mount,
		Threshold:         cfg.threshold,
		Collapsed:         cfg.collapsed,
		RenderLobbyPlayer: termview.RenderPlayerName,
		RenderPlayer:      termview.RenderPlayer,
		RenderSession:     termview.RenderSession,
		Logger:            s.logger,
	}
	if cfg.reconnect {
		pc.Reconnect = &notify.Backoff{}
	}

	p, err := build(ctx, pc, args)
	if err != nil {
		return explain(cfg, err)
	}

	logf(cfg, "WATCH: Following %s page", p.Name)

	if cfg.listen != "" {
		go func() {
			_ = ServeDashboard(ctx, cfg, mount)
		}()
	}

	go readToggles(cmd.InOrStdin(), p.List)

	err = p.Run(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		return explain(cfg, err)
	}

	logf(cfg, "WATCH: Channel closed by the server")

	return nil
}

// readToggles flips the collapsed state on "c" or an empty line.
func readToggles(in io.Reader, list page.List) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "", "c", "collapse", "t", "toggle":
			list.ToggleCollapsed()
		}
	}
}
