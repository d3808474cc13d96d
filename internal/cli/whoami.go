package cli

import (
	"github.com/spf13/cobra"
)

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the student linked to the session token",
		Long: `Look up the student record linked to the stored session token.

If the service rejects the token, or no student is linked to the account,
the error is shown and the token is cleared.

Example:
  beehere whoami
  beehere whoami --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(rootOpts, cmd)
		},
	}
}

func runWhoami(opts *RootOptions, cmd *cobra.Command) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	coord, err := s.coordinator()
	if err != nil {
		return err
	}

	o, err := coord.Activate(ctx)
	if err != nil {
		return s.stepFailure(o, err)
	}
	return s.report(o, OutcomeResult{Student: o.Student}, coord.Workflow().Greeting())
}
