package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resources a scenario can script.
var resources = []string{"student", "session", "attendance"}

// Scenario defines a scripted check-in run.
// The service's responses are fixed up front; the steps drive the workflow
// and the trace records what the client sent and what the user saw.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Token is the stored credential. Defaults to "test-token".
	Token string `yaml:"token,omitempty"`

	// ActivationID is the fixed activation ID. Defaults to "test-activation".
	ActivationID string `yaml:"activation_id,omitempty"`

	// Responses scripts each resource. Responses are served in order; the
	// last one repeats. A resource with no script answers 404.
	Responses map[string][]Response `yaml:"responses"`

	// Steps drive the workflow.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Response is one scripted HTTP answer.
type Response struct {
	// Status defaults to 200.
	Status int `yaml:"status,omitempty"`

	// Body is sent verbatim.
	Body string `yaml:"body"`
}

// Step actions.
const (
	ActionActivate    = "activate"
	ActionMarkPresent = "mark_present"
	ActionDeactivate  = "deactivate"
)

// Step is one workflow action.
type Step struct {
	// Action is activate, mark_present or deactivate.
	Action string `yaml:"action"`

	// Code is the class code entered for mark_present.
	Code string `yaml:"code,omitempty"`

	// Expect checks the step's outcome. Optional.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Kind is the outcome kind, e.g. SUCCESS or NOT_FOUND.
	Kind string `yaml:"kind"`

	// Message, if set, must equal the alert message exactly.
	Message *string `yaml:"message,omitempty"`

	// Logout, if set, must equal the outcome's RequiresLogout.
	Logout *bool `yaml:"logout,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an event with Event label appears (requests may
	//   also match a Body subset)
	// - "trace_order": Events appear in order
	// - "trace_count": Event appears exactly Count times
	// - "final_state": query Table and verify expected values
	Type string `yaml:"type"`

	// Event is an event label such as "request:attendance" or "alert".
	Event string `yaml:"event,omitempty"`

	// Body is a subset of the expected request body (trace_contains).
	Body map[string]any `yaml:"body,omitempty"`

	// Events is the expected label order (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Table, Where and Expect drive final_state.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}

	for resource, script := range s.Responses {
		if !knownResource(resource) {
			return fmt.Errorf("responses: unknown resource %q (want one of %v)", resource, resources)
		}
		if len(script) == 0 {
			return fmt.Errorf("responses.%s: at least one response is required", resource)
		}
		for i, r := range script {
			if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
				return fmt.Errorf("responses.%s[%d]: invalid status %d", resource, i, r.Status)
			}
		}
	}

	for i, step := range s.Steps {
		switch step.Action {
		case ActionActivate, ActionDeactivate:
			if step.Code != "" {
				return fmt.Errorf("steps[%d]: code is only valid for %s", i, ActionMarkPresent)
			}
		case ActionMarkPresent:
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
		if step.Expect != nil && step.Expect.Kind == "" {
			return fmt.Errorf("steps[%d]: expect.kind is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, i); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(a Assertion, index int) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func knownResource(name string) bool {
	for _, r := range resources {
		if r == name {
			return true
		}
	}
	return false
}
