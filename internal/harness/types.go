package harness

import "github.com/roach88/beehere/internal/store"

// Trace event types.
const (
	EventRequest         = "request"
	EventOutcome         = "outcome"
	EventAlert           = "alert"
	EventShowLogin       = "show_login"
	EventClearCredential = "clear_credential"
)

// TraceEvent is one observable effect of a scenario run: a request the
// service received, a step outcome, an alert, or a logout side effect.
type TraceEvent struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq"`

	// Request fields.
	Method   string `json:"method,omitempty"`
	Resource string `json:"resource,omitempty"`
	Query    string `json:"query,omitempty"`
	Body     any    `json:"body,omitempty"`
	Status   int    `json:"status,omitempty"`

	// Outcome and alert fields.
	Step    int    `json:"step,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

// Label is the short name assertions use to refer to an event, such as
// "request:session", "outcome:NOT_FOUND" or "alert".
func (e TraceEvent) Label() string {
	switch e.Type {
	case EventRequest:
		return EventRequest + ":" + e.Resource
	case EventOutcome:
		return EventOutcome + ":" + e.Kind
	default:
		return e.Type
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every event in the order it happened.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Journal is the final attempt journal, newest first.
	Journal []store.Attempt `json:"journal,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	e.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, e)
}
