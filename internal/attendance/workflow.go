package attendance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/canonical"
)

// Service is the subset of the remote API the workflow needs.
// *api.Client implements it.
type Service interface {
	ListStudents(ctx context.Context) ([]api.Student, error)
	ListSessions(ctx context.Context, classCode string) ([]api.Session, error)
	CreateAttendance(ctx context.Context, req api.AttendanceRequest) (*api.Attendance, error)
}

// State is the workflow's position in its two-state lifecycle.
type State int

const (
	// AwaitingStudent means the current student has not been resolved.
	AwaitingStudent State = iota
	// Ready means a student record is held and attendance can be submitted.
	Ready
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case AwaitingStudent:
		return "AwaitingStudent"
	case Ready:
		return "Ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Workflow checks a student in to a classroom session.
//
// A Workflow lives for one activation (one visit to the check-in screen).
// It holds two transient fields: the current student and the class code the
// user typed. Both are discarded by Deactivate.
//
// Service failures are reported as Outcome values. Only transport problems
// (network, malformed JSON, context cancellation) are returned as errors.
//
// Thread-safety: all methods are safe for concurrent use.
type Workflow struct {
	svc    Service
	ids    IDGenerator
	logger *slog.Logger

	mu         sync.Mutex
	student    *api.Student
	code       string
	generation uint64
	current    *activation
}

// activation tracks the one-shot student fetch for a single activation.
type activation struct {
	id      string
	done    chan struct{}
	outcome Outcome
	err     error
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithIDGenerator overrides the activation ID generator (UUIDv7 by default).
func WithIDGenerator(gen IDGenerator) Option {
	return func(w *Workflow) {
		if gen != nil {
			w.ids = gen
		}
	}
}

// WithLogger sets the workflow logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a workflow backed by svc.
func New(svc Service, opts ...Option) *Workflow {
	w := &Workflow{
		svc:    svc,
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Activate runs the mount-time student fetch exactly once per activation.
//
// The first call performs ResolveCurrentStudent. Later and concurrent calls
// wait for that fetch and return its result without issuing a request.
func (w *Workflow) Activate(ctx context.Context) (Outcome, error) {
	w.mu.Lock()
	if a := w.current; a != nil {
		w.mu.Unlock()
		select {
		case <-a.done:
			return a.outcome, a.err
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
	}
	a := &activation{id: w.ids.Generate(), done: make(chan struct{})}
	w.current = a
	gen := w.generation
	w.mu.Unlock()

	w.logger.Debug("activation started", "activation", a.id)
	a.outcome, a.err = w.resolveStudent(ctx, gen)
	close(a.done)
	return a.outcome, a.err
}

// Deactivate tears the activation down. The student and code are cleared,
// and results of requests still in flight are discarded when they land.
func (w *Workflow) Deactivate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.logger.Debug("activation ended", "activation", w.current.id)
	}
	w.generation++
	w.current = nil
	w.student = nil
	w.code = ""
}

// ActivationID returns the current activation's ID, or "" if Activate has
// not been called since the last Deactivate.
func (w *Workflow) ActivationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return ""
	}
	return w.current.id
}

// State reports whether a student record is held.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.student == nil {
		return AwaitingStudent
	}
	return Ready
}

// Student returns the current student record, if resolved.
func (w *Workflow) Student() (api.Student, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.student == nil {
		return api.Student{}, false
	}
	return *w.student, true
}

// Greeting is the screen's greeting line.
func (w *Workflow) Greeting() string {
	if s, ok := w.Student(); ok {
		return "Hello, " + s.Name
	}
	return "Hello."
}

// SetCode records the class code the user entered.
func (w *Workflow) SetCode(code string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.code = code
}

// Code returns the class code last entered.
func (w *Workflow) Code() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.code
}

// ResolveCurrentStudent fetches the student linked to the logged-in user and
// keeps the first match.
//
// An authentication failure or an empty result returns an error outcome with
// RequiresLogout set. No retry is attempted.
func (w *Workflow) ResolveCurrentStudent(ctx context.Context) (Outcome, error) {
	return w.resolveStudent(ctx, w.currentGeneration())
}

// resolveStudent fetches the student on behalf of generation gen. The record
// is only installed if gen is still current when the response lands.
func (w *Workflow) resolveStudent(ctx context.Context, gen uint64) (Outcome, error) {
	students, err := w.svc.ListStudents(ctx)
	if err != nil {
		apiErr, ok := api.AsError(err)
		if !ok {
			return Outcome{}, fmt.Errorf("resolve current student: %w", err)
		}
		w.logger.Info("student lookup rejected", "kind", apiErr.Kind, "status", apiErr.Status)
		if apiErr.Kind == api.ErrAuth {
			o := authOutcome(apiErr, false)
			o.RequiresLogout = true
			return o, nil
		}
		return unexpectedOutcome(apiErr), nil
	}

	if len(students) == 0 {
		w.logger.Info("no student linked to user")
		o := errorOutcome(KindNoStudent, MsgNoStudent)
		o.RequiresLogout = true
		return o, nil
	}

	student := students[0]
	w.mu.Lock()
	if w.generation == gen {
		w.student = &student
	} else {
		w.logger.Debug("discarding student from ended activation", "student", student.ID)
	}
	w.mu.Unlock()

	return Outcome{Kind: KindReady, Student: &student}, nil
}

// ResolveSessionByCode returns the ID of the first session matching code.
//
// The code is sent as typed apart from NFC normalization; it is never
// validated or trimmed. When no session matches, or the lookup is rejected,
// it returns NoSession with an error outcome and the caller must stop. Only
// a KindResolved outcome carries a session.
func (w *Workflow) ResolveSessionByCode(ctx context.Context, code string) (int64, Outcome, error) {
	code = canonical.String(code)

	sessions, err := w.svc.ListSessions(ctx, code)
	if err != nil {
		apiErr, ok := api.AsError(err)
		if !ok {
			return NoSession, Outcome{}, fmt.Errorf("resolve session %q: %w", code, err)
		}
		w.logger.Info("session lookup rejected", "code", code, "kind", apiErr.Kind, "status", apiErr.Status)
		if apiErr.Kind == api.ErrAuth {
			return NoSession, authOutcome(apiErr, false), nil
		}
		return NoSession, unexpectedOutcome(apiErr), nil
	}

	if len(sessions) == 0 {
		w.logger.Info("no session for code", "code", code)
		return NoSession, errorOutcome(KindNotFound, MsgSessionNotFound), nil
	}
	if len(sessions) > 1 {
		w.logger.Debug("class code matched several sessions; using first", "code", code, "matches", len(sessions))
	}

	id := sessions[0].ID
	return id, Outcome{Kind: KindResolved, SessionID: &id}, nil
}

// SubmitAttendance records that studentID attended sessionID.
func (w *Workflow) SubmitAttendance(ctx context.Context, sessionID, studentID int64) (Outcome, error) {
	_, err := w.svc.CreateAttendance(ctx, api.AttendanceRequest{Session: sessionID, Student: studentID})
	if err != nil {
		apiErr, ok := api.AsError(err)
		if !ok {
			return Outcome{}, fmt.Errorf("submit attendance: %w", err)
		}
		w.logger.Info("attendance rejected",
			"session", sessionID, "student", studentID,
			"kind", apiErr.Kind, "reason", apiErr.Reason, "status", apiErr.Status)

		var o Outcome
		switch apiErr.Kind {
		case api.ErrAuth:
			o = authOutcome(apiErr, true)
		case api.ErrValidation:
			switch apiErr.Reason {
			case api.ReasonDuplicate:
				o = errorOutcome(KindDuplicate, MsgDuplicate)
			case api.ReasonNotOnRoster:
				o = errorOutcome(KindNotOnRoster, MsgNotOnRoster)
			default:
				o = errorOutcome(KindValidation, apiErr.Payload())
			}
		default:
			o = unexpectedOutcome(apiErr)
		}
		o.SessionID = &sessionID
		return o, nil
	}

	w.logger.Info("attendance recorded", "session", sessionID, "student", studentID)
	return Outcome{Kind: KindSuccess, Title: TitleSuccess, Message: MsgPresent, SessionID: &sessionID}, nil
}

// MarkPresent checks the current student in with the entered class code.
//
// If no student is held yet it is resolved through Activate, so a fetch
// already in flight for this activation is joined rather than repeated. The
// chain stops at the first outcome that is not a success; in particular no
// attendance is submitted when the code does not resolve.
func (w *Workflow) MarkPresent(ctx context.Context) (Outcome, error) {
	student, ok := w.Student()
	if !ok {
		o, err := w.Activate(ctx)
		if err != nil || o.Kind != KindReady {
			return o, err
		}
		student = *o.Student
	}

	sessionID, o, err := w.ResolveSessionByCode(ctx, w.Code())
	if err != nil {
		return Outcome{}, err
	}
	if o.Kind != KindResolved {
		return o, nil
	}

	return w.SubmitAttendance(ctx, sessionID, student.ID)
}

func (w *Workflow) currentGeneration() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.generation
}
