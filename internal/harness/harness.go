package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/attendance"
	"github.com/roach88/beehere/internal/canonical"
	"github.com/roach88/beehere/internal/store"
	"github.com/roach88/beehere/internal/testutil"
)

// DefaultToken is the credential used when a scenario names none.
const DefaultToken = "test-token"

// journalEpoch is the first journal timestamp of every run.
var journalEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness runs one scenario against a scripted service.
//
// It wires the real transport, workflow and coordinator together; only the
// remote service and the user-facing side effects are replaced.
type Harness struct {
	scenario    *Scenario
	store       *store.Store
	coordinator *attendance.Coordinator
	logger      *slog.Logger

	mu     sync.Mutex
	result *Result
	served map[string]int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory database and a fresh test
// server. Activation IDs, journal IDs and timestamps are deterministic so
// traces are byte-identical across runs.
//
// Execution flow:
// 1. Start the scripted service and store the credential
// 2. Execute steps, checking expect clauses
// 3. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	var n int
	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewStepClock(journalEpoch, time.Second).Now),
		store.WithIDFunc(func() string { n++; return fmt.Sprintf("attempt-%d", n) }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	token := scenario.Token
	if token == "" {
		token = DefaultToken
	}
	if err := st.SetToken(ctx, token); err != nil {
		return nil, err
	}

	h := &Harness{
		scenario: scenario,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		result:   NewResult(),
		served:   make(map[string]int),
	}

	srv := httptest.NewServer(http.HandlerFunc(h.serve))
	defer srv.Close()

	client, err := api.NewClient(srv.URL, st, api.WithLogger(h.logger))
	if err != nil {
		return nil, err
	}
	w := attendance.New(client,
		attendance.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.ActivationID)),
		attendance.WithLogger(h.logger),
	)
	h.coordinator = attendance.NewCoordinator(w, h, h, h.logger)

	if err := h.executeSteps(ctx); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	journal, err := st.ListAttempts(ctx, 0)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	result := h.result
	result.Journal = journal

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps runs every step in order. Transport errors abort the run;
// outcome mismatches are recorded as result errors.
func (h *Harness) executeSteps(ctx context.Context) error {
	for i, step := range h.scenario.Steps {
		var (
			o   attendance.Outcome
			err error
		)
		switch step.Action {
		case ActionActivate:
			o, err = h.coordinator.Activate(ctx)
		case ActionMarkPresent:
			o, err = h.coordinator.MarkPresent(ctx, step.Code)
			if err == nil {
				err = h.journal(ctx, step.Code, o)
			}
		case ActionDeactivate:
			h.coordinator.Workflow().Deactivate()
			continue
		default:
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}

		h.record(TraceEvent{Type: EventOutcome, Step: i + 1, Kind: string(o.Kind)})
		h.logger.Info("step completed", "step", i, "action", step.Action, "kind", o.Kind)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, o, step.Expect) {
				h.mu.Lock()
				h.result.AddError(msg)
				h.mu.Unlock()
			}
		}
	}
	return nil
}

func checkExpect(index int, o attendance.Outcome, want *ExpectClause) []string {
	var errs []string
	if string(o.Kind) != want.Kind {
		errs = append(errs, fmt.Sprintf("step %d: expected kind %s, got %s", index, want.Kind, o.Kind))
	}
	if want.Message != nil && o.Message != *want.Message {
		errs = append(errs, fmt.Sprintf("step %d: expected message %q, got %q", index, *want.Message, o.Message))
	}
	if want.Logout != nil && o.RequiresLogout != *want.Logout {
		errs = append(errs, fmt.Sprintf("step %d: expected logout=%t, got %t", index, *want.Logout, o.RequiresLogout))
	}
	return errs
}

// journal appends a mark_present attempt to the store.
func (h *Harness) journal(ctx context.Context, code string, o attendance.Outcome) error {
	w := h.coordinator.Workflow()
	a := store.Attempt{
		ActivationID: w.ActivationID(),
		ClassCode:    code,
		Kind:         string(o.Kind),
		Title:        o.Title,
		Message:      o.Message,
		SessionID:    o.SessionID,
	}
	if s, ok := w.Student(); ok {
		a.StudentID = &s.ID
	}
	_, err := h.store.RecordAttempt(ctx, a)
	return err
}

// serve answers a request from the scenario's script.
func (h *Harness) serve(w http.ResponseWriter, r *http.Request) {
	resource := strings.Trim(r.URL.Path, "/")

	var body any
	if raw, err := io.ReadAll(r.Body); err == nil && len(strings.TrimSpace(string(raw))) > 0 {
		if v, err := canonical.Decode(raw); err == nil {
			body = v
		} else {
			body = string(raw)
		}
	}

	h.mu.Lock()
	script := h.scenario.Responses[resource]
	var resp Response
	if len(script) == 0 {
		resp = Response{Status: http.StatusNotFound, Body: "Not Found"}
	} else {
		idx := h.served[resource]
		if idx >= len(script) {
			idx = len(script) - 1
		}
		resp = script[idx]
		h.served[resource]++
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	h.result.add(TraceEvent{
		Type:     EventRequest,
		Method:   r.Method,
		Resource: resource,
		Query:    r.URL.RawQuery,
		Body:     body,
		Status:   status,
	})
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, resp.Body)
}

func (h *Harness) record(e TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.add(e)
}

// Alert implements attendance.Notifier.
func (h *Harness) Alert(title, message string) {
	h.record(TraceEvent{Type: EventAlert, Title: title, Message: message})
}

// ShowLogin implements attendance.Navigator.
func (h *Harness) ShowLogin(context.Context) {
	h.record(TraceEvent{Type: EventShowLogin})
}

// ClearCredential implements attendance.Navigator by clearing the stored
// token.
func (h *Harness) ClearCredential(ctx context.Context) error {
	h.record(TraceEvent{Type: EventClearCredential})
	return h.store.ClearToken(ctx)
}
