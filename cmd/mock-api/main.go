// Package main implements a mock attendance service for local use and
// end-to-end checks of the beehere client.
//
// Usage:
//
//	mock-api --addr :8000 --secret dev-secret
//	mock-api --secret dev-secret --issue ann   # print a token and exit
//
// Resources are served under --prefix (default /api), so the client's
// default api_url of http://localhost:8000/api/ works unchanged. Students,
// sessions and rosters come from --seed, a YAML file:
//
//	students:
//	  - {id: 1, name: Ann, username: ann}
//	sessions:
//	  - {id: 42, class_code: ABC1, roster: [1]}
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/mockapi"
)

// EnvSecret supplies the signing secret when --secret is not given.
const EnvSecret = "BEEHERE_MOCK_SECRET"

type options struct {
	addr     string
	prefix   string
	secret   string
	seedPath string
	codes    bool
	issue    string
	ttl      time.Duration
	verbose  bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "mock-api",
		Short:         "Serve a fake attendance service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8000", "listen address")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "/api", "path prefix for resources")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "HS256 signing secret (default $"+EnvSecret+")")
	cmd.Flags().StringVar(&opts.seedPath, "seed", "", "YAML seed file (default: built-in seed)")
	cmd.Flags().BoolVar(&opts.codes, "codes", false, "add structured error codes to rejections")
	cmd.Flags().StringVar(&opts.issue, "issue", "", "print a token for this username and exit")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "lifetime of issued tokens")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every request")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	secret := opts.secret
	if secret == "" {
		secret = os.Getenv(EnvSecret)
	}
	if secret == "" {
		return fmt.Errorf("a signing secret is required: pass --secret or set %s", EnvSecret)
	}

	serverOpts := []mockapi.Option{
		mockapi.WithLogger(logger),
		mockapi.WithErrorCodes(opts.codes),
	}
	if opts.seedPath != "" {
		seed, err := mockapi.LoadSeed(opts.seedPath)
		if err != nil {
			return err
		}
		logger.Info("loaded seed", "path", opts.seedPath,
			"students", len(seed.Students), "sessions", len(seed.Sessions))
		serverOpts = append(serverOpts, mockapi.WithSeed(seed))
	}
	srv := mockapi.New([]byte(secret), serverOpts...)

	if opts.issue != "" {
		tok, err := srv.Token(opts.issue, opts.ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	}

	prefix := "/" + strings.Trim(opts.prefix, "/")
	mux := http.NewServeMux()
	if prefix == "/" {
		mux.Handle("/", srv.Handler())
	} else {
		mux.Handle(prefix+"/", http.StripPrefix(prefix, srv.Handler()))
	}

	httpServer := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock attendance service listening", "addr", opts.addr, "prefix", prefix)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
