package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/attendance"
	"github.com/roach88/beehere/internal/store"
)

// NewPresentCommand creates the present command.
func NewPresentCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "present <class-code>",
		Short: "Mark yourself present in a class",
		Long: `Check in to the class with the given code.

The student linked to the session token is looked up, the code is resolved
to a session and attendance is recorded. The result is shown as an alert
and every attempt is kept in the local history.

Exit status is 1 when the service refuses the check-in (unknown code,
already present, not on the roster) and 2 when the service could not be
reached.

Example:
  beehere present ABC1
  beehere present ABC1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPresent(rootOpts, args[0], cmd)
		},
	}
}

func runPresent(opts *RootOptions, code string, cmd *cobra.Command) error {
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
	w := coord.Workflow()

	o, err := w.Activate(ctx)
	if err != nil {
		return s.transportFailure(err)
	}
	activationID := w.ActivationID()
	if o.Kind == attendance.KindReady {
		w.SetCode(code)
		o, err = w.MarkPresent(ctx)
		if err != nil {
			return s.transportFailure(err)
		}
	}

	// Logout clears the student, so capture it before handling.
	student, hasStudent := w.Student()
	attempt, err := s.journal(ctx, activationID, code, o, student.ID, hasStudent)
	if err != nil {
		return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to record attempt", err)
	}

	if err := coord.Handle(ctx, o); err != nil {
		return s.stepFailure(o, err)
	}

	res := OutcomeResult{ClassCode: code, SessionID: o.SessionID, AttemptID: attempt.ID}
	if hasStudent {
		res.Student = &student
	}
	return s.report(o, res, "")
}

func (s *session) journal(ctx context.Context, activationID, code string, o attendance.Outcome, studentID int64, hasStudent bool) (store.Attempt, error) {
	a := store.Attempt{
		ActivationID: activationID,
		ClassCode:    code,
		Kind:         string(o.Kind),
		Title:        o.Title,
		Message:      o.Message,
		SessionID:    o.SessionID,
	}
	if hasStudent {
		a.StudentID = &studentID
	}
	return s.store.RecordAttempt(ctx, a)
}
