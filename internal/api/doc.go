// Package api is the HTTP transport for the Bee Here attendance service.
//
// The service exposes three resources used by the check-in workflow:
//
//	GET  <base>student?is_user=True          students linked to the caller
//	GET  <base>session?class_code=<code>     sessions matching a class code
//	POST <base>attendance {session, student} record attendance
//
// Collection endpoints return JSON arrays on success. Failures come back as
// objects carrying "detail" (authentication) or "non_field_errors"
// (validation), optionally with a structured "code". The client turns those
// into *Error values. The body shape picks the Kind, the code refines the
// Reason within it, and the HTTP status decides only when neither helps.
//
// Network failures, unreadable bodies and malformed JSON are returned as
// ordinary wrapped errors and are never classified as *Error.
package api
