package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
	APIURL     string
	Timeout    time.Duration

	// timeoutSet records an explicit --timeout so that 0 can override a
	// configured value.
	timeoutSet bool

	loaderOpts []config.LoaderOption
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the beehere CLI.
// Loader options are passed to config.NewLoader; tests use them to keep the
// real home directory and environment out of the run.
func NewRootCommand(loaderOpts ...config.LoaderOption) *cobra.Command {
	opts := &RootOptions{loaderOpts: loaderOpts}

	cmd := &cobra.Command{
		Use:   "beehere",
		Short: "beehere - class check-in from the terminal",
		Long: `Mark yourself present in a class with its class code.

beehere looks up the student linked to your session token, resolves the
class code to a session and records your attendance with the service.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			opts.timeoutSet = cmd.Flags().Changed("timeout")
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the local SQLite database")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "attendance service base URL")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 0, "per-request timeout (0 disables)")

	// Add subcommands
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewPresentCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// overrides converts the global flags into config overrides.
func (o *RootOptions) overrides() config.Overrides {
	ov := config.Overrides{
		APIURL:   o.APIURL,
		Database: o.Database,
	}
	if o.timeoutSet {
		t := o.Timeout
		ov.Timeout = &t
	}
	if o.Verbose {
		ov.LogLevel = "debug"
	}
	return ov
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
