package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/roach88/beehere/internal/canonical"
)

// ErrorKind categorizes a failure reported by the attendance service.
type ErrorKind string

const (
	// ErrAuth indicates the bearer token was missing, invalid or lacked
	// permission. Signalled by HTTP 401/403, an auth error code, or a
	// "detail" field in the body.
	ErrAuth ErrorKind = "AUTH"

	// ErrValidation indicates the service rejected the request body.
	// Signalled by a "non_field_errors" field or a validation error code.
	ErrValidation ErrorKind = "VALIDATION"

	// ErrNotFound indicates the resource itself does not exist (HTTP 404
	// without a recognized body).
	ErrNotFound ErrorKind = "NOT_FOUND"

	// ErrUnexpected indicates an error status with a body this client does
	// not recognize, or a success status with the wrong shape.
	ErrUnexpected ErrorKind = "UNEXPECTED"
)

// ValidationReason narrows an ErrValidation failure.
type ValidationReason string

const (
	// ReasonDuplicate means the (session, student) pair already exists.
	ReasonDuplicate ValidationReason = "DUPLICATE"

	// ReasonNotOnRoster means the student is not enrolled in the class.
	ReasonNotOnRoster ValidationReason = "NOT_ON_ROSTER"

	// ReasonOther covers every other validation failure.
	ReasonOther ValidationReason = "OTHER"
)

// Structured error codes the service may attach as a top-level "code" field.
// They refine the reason within the class the body shape selects.
var errorCodes = map[string]struct {
	kind   ErrorKind
	reason ValidationReason
}{
	"not_authenticated":     {ErrAuth, ""},
	"authentication_failed": {ErrAuth, ""},
	"permission_denied":     {ErrAuth, ""},
	"token_not_valid":       {ErrAuth, ""},
	"unique":                {ErrValidation, ReasonDuplicate},
	"duplicate_attendance":  {ErrValidation, ReasonDuplicate},
	"not_on_roster":         {ErrValidation, ReasonNotOnRoster},
	"invalid":               {ErrValidation, ReasonOther},
	"not_found":             {ErrNotFound, ""},
}

// Error is the tagged union of service-reported failures.
//
// It is populated by the transport from the HTTP status, an optional
// structured "code" field and, as a fallback, the shape of the body.
type Error struct {
	Kind   ErrorKind
	Reason ValidationReason // set only for ErrValidation

	// Status is the HTTP status code of the response.
	Status int

	// Code is the structured error code, if the service supplied one.
	Code string

	// Detail is the raw "detail" value, if present.
	Detail json.RawMessage

	// NonFieldErrors is the raw "non_field_errors" value, if present.
	NonFieldErrors json.RawMessage

	// Body is the complete response body.
	Body []byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case len(e.Detail) > 0:
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.DetailText())
	case len(e.NonFieldErrors) > 0:
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Payload())
	default:
		return fmt.Sprintf("%s (HTTP %d)", e.Kind, e.Status)
	}
}

// DetailText returns the detail as plain text when it is a JSON string, and
// its canonical JSON rendering otherwise.
func (e *Error) DetailText() string {
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return canonical.Stringify(e.Detail)
}

// Payload returns the canonical JSON rendering of the validation errors.
func (e *Error) Payload() string {
	return canonical.Stringify(e.NonFieldErrors)
}

// AsError extracts an *Error from err, following wrapped errors.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuth returns true if err is an authentication failure.
func IsAuth(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == ErrAuth
}

// IsValidation returns true if err is a validation failure.
func IsValidation(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == ErrValidation
}

// IsNotFound returns true if err reports a missing resource.
func IsNotFound(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == ErrNotFound
}

// classify inspects a response and returns the failure it describes, or nil
// if the response is a success. The body shape picks the class: "detail" is
// always auth and "non_field_errors" always validation. A structured code
// only refines the reason inside that class, and decides the class on its
// own only when neither key is present. Bare status comes last.
func classify(status int, body []byte) *Error {
	e := &Error{Status: status, Body: body}

	var fields map[string]json.RawMessage
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			fields = nil
		}
	}
	e.Detail = fields["detail"]
	e.NonFieldErrors = fields["non_field_errors"]

	if raw, ok := fields["code"]; ok {
		var code string
		if err := json.Unmarshal(raw, &code); err == nil {
			e.Code = code
		}
	}
	known, coded := errorCodes[e.Code]

	switch {
	case e.Detail != nil:
		e.Kind = ErrAuth
	case e.NonFieldErrors != nil:
		e.Kind = ErrValidation
		e.Reason = reasonFromPayload(e.Payload())
		if coded && known.kind == ErrValidation && known.reason != ReasonOther && e.Reason != ReasonDuplicate {
			e.Reason = known.reason
		}
	case coded:
		e.Kind = known.kind
		e.Reason = known.reason
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		e.Kind = ErrAuth
	case status == http.StatusNotFound:
		e.Kind = ErrNotFound
	case status >= 400:
		e.Kind = ErrUnexpected
	default:
		return nil
	}
	return e
}

// reasonFromPayload inspects the validation payload. "unique" wins over
// "roster" when both appear, and over any structured code.
func reasonFromPayload(payload string) ValidationReason {
	switch {
	case strings.Contains(payload, "unique"):
		return ReasonDuplicate
	case strings.Contains(payload, "roster"):
		return ReasonNotOnRoster
	default:
		return ReasonOther
	}
}
