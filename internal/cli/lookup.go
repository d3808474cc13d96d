package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <class-code>",
		Short: "Resolve a class code to its session",
		Long: `Resolve a class code to a classroom session without checking in.

The code is sent exactly as entered. When several sessions share the code
the first is used, as check-in would.

Example:
  beehere lookup ABC1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, args[0], cmd)
		},
	}
}

func runLookup(opts *RootOptions, code string, cmd *cobra.Command) error {
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

	sessionID, o, err := coord.Workflow().ResolveSessionByCode(ctx, code)
	if err != nil {
		return s.transportFailure(err)
	}
	if err := coord.Handle(ctx, o); err != nil {
		return s.stepFailure(o, err)
	}

	res := OutcomeResult{ClassCode: code, SessionID: o.SessionID}
	return s.report(o, res, fmt.Sprintf("Session %d", sessionID))
}
