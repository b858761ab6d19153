// Package cmd provides the arpctl commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MrEthical07/authpipe"
	"github.com/MrEthical07/authpipe/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "arpctl",
		Short: "Call an enveloped JSON API with a refreshed session",
		Long: `arpctl sends calls through the authpipe request pipeline.

The session (access token, refresh token and user) is kept in a local SQLite
database per profile. Expired access tokens are refreshed automatically; when the
refresh token is rejected the session is cleared and you must sign in again with
"arpctl session set".

Configuration:
  Config is loaded from arpctl.yaml in the current directory or $HOME/.arpctl/.
  Environment variables override config values with the ARP_ prefix.
  Example: ARP_BASE_URL=https://api.example.com`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./arpctl.yaml)")
	flags.String("base-url", authpipe.DefaultBaseURL, "API base URL")
	flags.String("profile", "default", "session profile")
	flags.String("session-db", "", "session database path (default: $HOME/.arpctl/session.db)")
	flags.StringP("output", "o", "json", "output format: json or yaml")
	flags.Duration("timeout", authpipe.DefaultTimeout, "per-call timeout")
	flags.Bool("debug", false, "log pipeline events to stderr")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("profile", flags.Lookup("profile"))
	_ = a.v.BindPFlag("session_db", flags.Lookup("session-db"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))

	root.AddCommand(
		newCallCmd(a),
		newRefreshCmd(a),
		newSessionCmd(a),
		newLintCmd(a),
	)
	return root
}

// open builds a Client over the profile's SQLite session. The returned func
// releases both.
func (a *app) open(cmd *cobra.Command) (*authpipe.Client, *session.SQLiteStore, func(), error) {
	cfg, err := a.clientConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), a.v.GetBool("debug"))
	b := authpipe.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithNotifier(newColorNotifier(cmd.ErrOrStderr())).
		WithLogger(logger)
	if a.v.GetBool("debug") {
		b.WithDebug(true).WithEventSink(authpipe.NewSlogSink(logger))
	}

	client, err := b.Build()
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}
	return client, store, func() {
		client.Close()
		_ = store.Close()
	}, nil
}

func (a *app) openStore() (*session.SQLiteStore, error) {
	return session.NewSQLiteStore(a.sessionDBPath(), a.v.GetString("profile"))
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
