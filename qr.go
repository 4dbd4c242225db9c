/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Seednode/partysync/internal/termview"
)

func newQRCmd(cfg *Config) *cobra.Command {
	var png string

	cmd := &cobra.Command{
		Use:   "qr <session-id>",
		Short: "Print a QR code players can scan to join a session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link := termview.JoinURL(cfg.serverURL, args[0])

			if png != "" {
				data, err := termview.EncodeQR(link)
				if err != nil {
					return err
				}

				if err := os.WriteFile(png, data, 0o644); err != nil {
					return err
				}

				logf(cfg, "QR: Wrote %s (%s)", png, humanReadableSize(int64(len(data))))

				return nil
			}

			code, err := termview.RenderQR(link)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), code)
			fmt.Fprintln(cmd.OutOrStdout(), link)

			return nil
		},
	}

	normalizeFlags(cmd.Flags())
	cmd.Flags().StringVar(&png, "png", "", "write a PNG to this path instead of printing (env: PARTYSYNC_PNG)")

	return cmd
}
