// Package attendance implements the class check-in workflow.
//
// A student enters a class code; the workflow resolves the logged-in user's
// student record, resolves the code to a classroom session and records an
// attendance transaction linking the two.
//
// # Lifecycle
//
// A Workflow has two states, AwaitingStudent and Ready. Activate performs the
// student fetch exactly once per activation; Deactivate ends the activation
// and causes late results to be dropped instead of applied.
//
// # Outcomes
//
// Every step returns an Outcome. Service rejections are outcomes, never
// errors:
//
//	READY / RESOLVED     silent success of an intermediate step
//	SUCCESS              attendance recorded
//	AUTH_ERROR           credential rejected (logout required on the student path)
//	NO_STUDENT           no student linked to the user (logout required)
//	NOT_FOUND            no session for the class code
//	DUPLICATE            already marked present
//	NOT_ON_ROSTER        student not enrolled in the class
//	VALIDATION_ERROR     any other rejected submission
//	UNEXPECTED           unrecognized service response
//
// The workflow never navigates or touches credentials. A Coordinator owns
// those side effects: it alerts through a Notifier and logs out through a
// Navigator when an outcome sets RequiresLogout.
package attendance
