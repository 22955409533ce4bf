package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sysmonk/internal/auth"
	"sysmonk/internal/conf"
	"sysmonk/internal/logging"
	"sysmonk/internal/system"
	"sysmonk/internal/web"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	console    bool

	authUsername  string
	authPassword  string
	authTimestamp int64
)

var rootCmd = &cobra.Command{
	Use:           "sysmonk",
	Short:         "Single-host system monitor",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitoring web server",
	Long: `Start the monitoring web server.

Settings are read from the config file and then overridden by environment
variables of the same name (username, password, session_duration, port...).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// authorizationCmd prints the Authorization header value the login page
// would send, for scripted logins with curl.
var authorizationCmd = &cobra.Command{
	Use:   "authorization",
	Short: "Print a login Authorization header value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ts := authTimestamp
		if ts == 0 {
			ts = time.Now().Unix()
		}
		fmt.Fprintln(cmd.OutOrStdout(), auth.EncodeAuthorization(authUsername, authPassword, strconv.FormatInt(ts, 10)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to the TOML config file")
	rootCmd.PersistentFlags().BoolVar(&console, "console", false, "human readable log output")
	rootCmd.Version = version

	authorizationCmd.Flags().StringVarP(&authUsername, "username", "u", "", "login username")
	authorizationCmd.Flags().StringVarP(&authPassword, "password", "p", "", "login password")
	authorizationCmd.Flags().Int64Var(&authTimestamp, "timestamp", 0, "unix timestamp to sign (default now)")
	authorizationCmd.MarkFlagRequired("username")
	authorizationCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, authorizationCmd)
}

func main() {
	defer memguard.Purge()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		memguard.Purge()
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := conf.Load(configPath)
	if err != nil {
		return err
	}

	log := logging.New(logging.Options{Debug: cfg.Debug, UTC: cfg.UTCLogging, Console: console})

	server, err := web.New(web.Options{
		Config:   cfg,
		Sessions: auth.NewSessionStore(),
		Codec:    auth.NewTokenCodec(),
		Provider: system.NewCollector(cfg.Monitor, logging.Component(log, "collector")),
		Overview: system.NewInspector(logging.Component(log, "inspector")),
		Logger:   log,
		Version:  version,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	// hijacked websocket connections are not tracked by Shutdown
	server.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return srv.Close()
	}
	return nil
}
