package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the client configuration",
		Long: `Inspect or create the client configuration.

Settings are layered: built-in defaults, ~/.config/beehere/config.yaml,
the --config file, BEEHERE_* environment variables, then flags.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Print the effective configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, _, err := loadConfig(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
			}
			if formatter.JSON() {
				return formatter.Success(cfg)
			}
			fmt.Fprintf(formatter.Writer, "api_url:   %s\n", cfg.APIURL)
			fmt.Fprintf(formatter.Writer, "database:  %s\n", cfg.Database)
			fmt.Fprintf(formatter.Writer, "timeout:   %s\n", cfg.Timeout)
			fmt.Fprintf(formatter.Writer, "log_level: %s\n", cfg.LogLevel)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "init",
		Short:         "Write the default user config file if it does not exist",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			logger := newLogger(cmd.ErrOrStderr(), parseLevel("info"))
			if err := config.NewLoader(logger, rootOpts.loaderOpts...).EnsureUserConfig(); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeConfig, "failed to create user config", err)
			}
			if formatter.JSON() {
				return formatter.Success(map[string]bool{"ok": true})
			}
			fmt.Fprintln(formatter.Writer, "User config ready.")
			return nil
		},
	})

	return cmd
}
