/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

type Config struct {
	collapsed  bool
	envFile    string
	lang       string
	listen     string
	profile    bool
	reconnect  bool
	server     string
	stateDir   string
	store      string
	threshold  int
	valkeyAddr string
	verbose    bool
	ws         string

	serverURL *url.URL
	wsURL     *url.URL
	language  language.Tag
}

func (c *Config) validate() error {
	var err error

	c.serverURL, err = url.Parse(c.server)
	if err != nil {
		return fmt.Errorf("invalid --server: %w", err)
	}
	if (c.serverURL.Scheme != "http" && c.serverURL.Scheme != "https") || c.serverURL.Host == "" {
		return fmt.Errorf("invalid --server (must be an http or https URL): %q", c.server)
	}

	c.wsURL, err = url.Parse(strings.TrimSuffix(c.ws, "/"))
	if err != nil {
		return fmt.Errorf("invalid --ws: %w", err)
	}
	if (c.wsURL.Scheme != "ws" && c.wsURL.Scheme != "wss") || c.wsURL.Host == "" {
		return fmt.Errorf("invalid --ws (must be a ws or wss URL): %q", c.ws)
	}

	switch c.store {
	case "memory", "file":
	case "valkey":
		if c.valkeyAddr == "" {
			return errors.New("--valkey-addr is required with --store valkey")
		}
	default:
		return fmt.Errorf("invalid --store (must be one of memory, file, valkey): %q", c.store)
	}

	if c.store == "file" && c.stateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("no --state-dir given and no user config directory: %w", err)
		}
		c.stateDir = filepath.Join(dir, "partysync")
	}

	if c.threshold < 0 {
		return fmt.Errorf("invalid --threshold (must be zero or positive): %d", c.threshold)
	}

	if c.listen != "" {
		_, port, err := net.SplitHostPort(c.listen)
		if err != nil {
			return fmt.Errorf("invalid --listen: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %s", port)
		}
	}

	c.language, err = language.Parse(c.lang)
	if err != nil {
		return fmt.Errorf("invalid --lang: %w", err)
	}

	return nil
}

func (c *Config) scheme() string {
	return c.serverURL.Scheme
}

func normalizeFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// bindFlags fills every flag the user did not set from the environment.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PARTYSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "partysync",
		Short:         "Follows a party game control plane from the terminal.",
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.envFile != "" {
				if err := godotenv.Load(cfg.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("loading %s: %w", cfg.envFile, err)
				}
			}

			bindFlags(v, cmd.Flags())

			return cfg.validate()
		},
	}

	fs := cmd.PersistentFlags()

	normalizeFlags(fs)

	fs.StringVar(&cfg.envFile, "env-file", ".env", "dotenv file read before the environment")
	fs.StringVar(&cfg.lang, "lang", "en", "language for login error messages (env: PARTYSYNC_LANG)")
	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8000", "control plane base URL (env: PARTYSYNC_SERVER)")
	fs.StringVar(&cfg.stateDir, "state-dir", "", "directory for --store file, defaults to the user config dir (env: PARTYSYNC_STATE_DIR)")
	fs.StringVar(&cfg.store, "store", "file", "token storage: memory, file or valkey (env: PARTYSYNC_STORE)")
	fs.StringVar(&cfg.valkeyAddr, "valkey-addr", "", "valkey address for --store valkey (env: PARTYSYNC_VALKEY_ADDR)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: PARTYSYNC_VERBOSE)")
	fs.StringVar(&cfg.ws, "ws", "ws://localhost:3031", "notification socket base URL (env: PARTYSYNC_WS)")

	cmd.AddCommand(
		newLoginCmd(cfg),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg),
		newWatchCmd(cfg),
		newQRCmd(cfg),
		newStatsCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("partysync v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
