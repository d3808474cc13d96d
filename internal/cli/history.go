package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// HistoryResult is the JSON payload of the history command.
type HistoryResult struct {
	Attempts []store.Attempt `json:"attempts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past check-in attempts",
		Long: `List the check-in attempts recorded by 'beehere present', newest first.

Example:
  beehere history
  beehere history --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum attempts to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	attempts, err := s.store.ListAttempts(cmd.Context(), opts.Limit)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read history", err)
	}

	if s.formatter.JSON() {
		return s.formatter.Success(HistoryResult{Attempts: attempts})
	}
	if len(attempts) == 0 {
		fmt.Fprintln(s.formatter.Writer, "No check-in attempts recorded.")
		return nil
	}
	return writeHistory(s.formatter.Writer, attempts)
}

func writeHistory(w io.Writer, attempts []store.Attempt) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCODE\tSESSION\tRESULT\tMESSAGE")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.CreatedAt.Local().Format(time.DateTime),
			a.ClassCode,
			optionalID(a.SessionID),
			a.Kind,
			a.Message,
		)
	}
	return tw.Flush()
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}
