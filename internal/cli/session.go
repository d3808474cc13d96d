package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/attendance"
	"github.com/roach88/beehere/internal/config"
	"github.com/roach88/beehere/internal/store"
)

// session is everything a command needs for one invocation: resolved
// config, logger, output formatter and the open local store.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	formatter *OutputFormatter
	store     *store.Store
	term      *terminal
}

// newFormatter builds the formatter for cmd from the global flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig resolves the layered configuration and the logger it asks for.
func loadConfig(opts *RootOptions, cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	// Config loading logs at debug level before the configured level is known.
	bootLevel := slog.LevelInfo
	if opts.Verbose {
		bootLevel = slog.LevelDebug
	}
	boot := newLogger(cmd.ErrOrStderr(), bootLevel)

	cfg, err := config.NewLoader(boot, opts.loaderOpts...).Load(opts.ConfigPath, opts.overrides())
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cmd.ErrOrStderr(), parseLevel(cfg.LogLevel)), nil
}

// openSession loads config and opens the store. The caller must Close it.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd)

	cfg, logger, err := loadConfig(opts, cmd)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}

	if err := ensureParentDir(cfg.Database); err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		formatter: formatter,
		store:     st,
		term: &terminal{
			out:   cmd.OutOrStdout(),
			quiet: formatter.JSON(),
			store: st,
		},
	}, nil
}

// Close releases the store.
func (s *session) Close() error {
	return s.store.Close()
}

// coordinator wires the API client, workflow and coordinator for one
// activation. The store supplies the bearer token.
func (s *session) coordinator() (*attendance.Coordinator, error) {
	client, err := api.NewClient(s.cfg.APIURL, credential{s.store},
		api.WithTimeout(s.cfg.Timeout),
		api.WithLogger(s.logger),
	)
	if err != nil {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeConfig, "invalid API URL", err)
	}
	w := attendance.New(client, attendance.WithLogger(s.logger))
	return attendance.NewCoordinator(w, s.term, s.term, s.logger), nil
}

// credential adapts the store to api.TokenSource. A missing token is sent
// as empty and the service's rejection decides the outcome.
type credential struct {
	st *store.Store
}

// Token implements api.TokenSource.
func (c credential) Token(ctx context.Context) (string, error) {
	tok, err := c.st.Token(ctx)
	if errors.Is(err, store.ErrNoToken) {
		return "", nil
	}
	return tok, err
}

// transportFailure reports an error from a workflow step that never
// became an outcome.
func (s *session) transportFailure(err error) error {
	if errors.Is(err, context.Canceled) {
		return s.formatter.Fail(ExitCommandError, ErrCodeTransport, "interrupted", err)
	}
	return s.formatter.Fail(ExitCommandError, ErrCodeTransport, "request failed", err)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
