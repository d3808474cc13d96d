package attendance

import (
	"fmt"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/canonical"
)

// Kind classifies the result of a workflow step.
type Kind string

const (
	// KindReady means the current student was resolved. Silent.
	KindReady Kind = "READY"

	// KindResolved means a class code matched a session. Silent.
	KindResolved Kind = "RESOLVED"

	// KindSuccess means attendance was recorded.
	KindSuccess Kind = "SUCCESS"

	// KindAuth means the service rejected the credential.
	KindAuth Kind = "AUTH_ERROR"

	// KindNoStudent means the user has no linked student record.
	KindNoStudent Kind = "NO_STUDENT"

	// KindNotFound means no session matched the class code.
	KindNotFound Kind = "NOT_FOUND"

	// KindDuplicate means the student was already marked present.
	KindDuplicate Kind = "DUPLICATE"

	// KindNotOnRoster means the student is not enrolled in the class.
	KindNotOnRoster Kind = "NOT_ON_ROSTER"

	// KindValidation covers every other rejected submission.
	KindValidation Kind = "VALIDATION_ERROR"

	// KindUnexpected means the service answered with something unrecognized.
	KindUnexpected Kind = "UNEXPECTED"
)

// User-facing alert text.
const (
	TitleError   = "Error"
	TitleSuccess = "Success"

	MsgNoStudent       = "No student found"
	MsgSessionNotFound = "No classroom session with that code was found."
	MsgDuplicate       = "You have already marked yourself present."
	MsgNotOnRoster     = "You are not on the roster for this class."
	MsgPresent         = "You have been marked present in this class."
	MsgAuthFailed      = "Authentication failed."
	MsgUnexpected      = "The attendance service returned an unexpected response."
)

// NoSession is the sentinel session ID returned when a class code does not
// resolve. It lies outside the service's id space, so 0 stays a valid
// session. Callers decide on the outcome's Kind, never on this value.
const NoSession int64 = -1

// Outcome is the typed result of a workflow step.
//
// The workflow never performs navigation or credential changes itself.
// RequiresLogout tells the caller (normally a Coordinator) that the session
// must be invalidated.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`

	RequiresLogout bool `json:"requires_logout,omitempty"`

	// SessionID is nil unless a session was resolved.
	SessionID *int64       `json:"session_id,omitempty"`
	Student   *api.Student `json:"student,omitempty"`
}

// OK reports whether the step succeeded.
func (o Outcome) OK() bool {
	switch o.Kind {
	case KindReady, KindResolved, KindSuccess:
		return true
	}
	return false
}

// Alert reports whether the outcome carries a message for the user.
func (o Outcome) Alert() bool {
	return o.Kind != KindReady && o.Kind != KindResolved && o.Kind != ""
}

func errorOutcome(kind Kind, message string) Outcome {
	return Outcome{Kind: kind, Title: TitleError, Message: message}
}

// authOutcome builds the outcome for an authentication failure. The student
// lookup shows the detail text as-is; attendance submission shows its JSON
// rendering.
func authOutcome(e *api.Error, rendered bool) Outcome {
	msg := MsgAuthFailed
	if len(e.Detail) > 0 {
		if rendered {
			msg = canonical.Stringify(e.Detail)
		} else {
			msg = e.DetailText()
		}
	}
	return errorOutcome(KindAuth, msg)
}

func unexpectedOutcome(e *api.Error) Outcome {
	if e.Status == 0 {
		return errorOutcome(KindUnexpected, MsgUnexpected)
	}
	return errorOutcome(KindUnexpected, fmt.Sprintf("%s (HTTP %d)", MsgUnexpected, e.Status))
}
