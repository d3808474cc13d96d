package cli

import (
	"fmt"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/attendance"
)

// OutcomeResult is the data payload of whoami, lookup and present.
type OutcomeResult struct {
	Kind      attendance.Kind `json:"kind"`
	ClassCode string          `json:"class_code,omitempty"`
	SessionID *int64          `json:"session_id,omitempty"`
	Student   *api.Student    `json:"student,omitempty"`
	AttemptID string          `json:"attempt_id,omitempty"`
	Alerts    []Alert         `json:"alerts,omitempty"`
	SignedOut bool            `json:"signed_out,omitempty"`
}

// report writes the outcome. Successful outcomes print text (when not
// empty) or the JSON result. Failed outcomes have already been alerted in
// text mode; in JSON mode they are reported with the outcome kind as the
// error code. Failures exit with ExitFailure.
func (s *session) report(o attendance.Outcome, res OutcomeResult, text string) error {
	res.Kind = o.Kind
	res.Alerts = s.term.alerts
	res.SignedOut = s.term.signedOut

	if o.OK() {
		if s.formatter.JSON() {
			return s.formatter.Success(res)
		}
		if text != "" {
			fmt.Fprintln(s.formatter.Writer, text)
		}
		return nil
	}

	if s.formatter.JSON() {
		_ = s.formatter.Error(string(o.Kind), o.Message, res)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", o.Kind, o.Message))
}

// stepFailure reports the error returned by a coordinator step. A zero
// outcome means the step itself failed; otherwise handling the outcome
// (clearing the credential) did.
func (s *session) stepFailure(o attendance.Outcome, err error) error {
	if o.Kind == "" {
		return s.transportFailure(err)
	}
	return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to sign out", err)
}
