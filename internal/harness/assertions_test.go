package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.add(TraceEvent{Type: EventRequest, Method: "GET", Resource: "student"})
	r.add(TraceEvent{Type: EventOutcome, Kind: "READY", Step: 1})
	r.add(TraceEvent{Type: EventRequest, Method: "GET", Resource: "session"})
	r.add(TraceEvent{Type: EventRequest, Method: "POST", Resource: "attendance",
		Body: map[string]any{"session": json.Number("42"), "student": json.Number("1")}})
	r.add(TraceEvent{Type: EventAlert, Title: "Success", Message: "You have been marked present in this class."})
	return r.Trace
}

func TestTraceEvent_Label(t *testing.T) {
	trace := sampleTrace()
	assert.Equal(t, "request:student", trace[0].Label())
	assert.Equal(t, "outcome:READY", trace[1].Label())
	assert.Equal(t, "alert", trace[4].Label())
	assert.Equal(t, int64(5), trace[4].Seq)
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Event: "request:attendance"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{
		Event: "request:attendance",
		Body:  map[string]any{"session": 42},
	}), "yaml int matches decoded json.Number")

	err := assertTraceContains(trace, Assertion{
		Event: "request:attendance",
		Body:  map[string]any{"session": 43},
	})
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, AssertTraceContains, aerr.Type)
	assert.Contains(t, aerr.Error(), "[4] request:attendance")

	assert.Error(t, assertTraceContains(trace, Assertion{Event: "show_login"}))
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{
		Events: []string{"request:student", "request:attendance", "alert"},
	}))
	assert.Error(t, assertTraceOrder(trace, Assertion{
		Events: []string{"request:attendance", "request:session"},
	}))
	assert.Error(t, assertTraceOrder(trace, Assertion{
		Events: []string{"request:student", "clear_credential"},
	}))
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "request:student", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "show_login", Count: 0}))

	err := assertTraceCount(trace, Assertion{Event: "alert", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 occurrences")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(map[string]any{"kind": "SUCCESS", "class_code": "ABC1"})
	require.NoError(t, err)
	assert.Equal(t, "class_code = ? AND kind = ?", sql)
	assert.Equal(t, []any{"ABC1", "SUCCESS"}, args)

	_, _, err = buildWhereClause(map[string]any{"kind; DROP TABLE attempts": 1})
	assert.Error(t, err)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(int64(42), 42))
	assert.True(t, valuesEqual(json.Number("42"), 42))
	assert.True(t, valuesEqual(nil, nil))
	assert.True(t, valuesEqual(normalizeSQLValue([]byte("ABC1")), "ABC1"))
	assert.False(t, valuesEqual("42", 42))
	assert.False(t, valuesEqual(struct{}{}, struct{}{}), "unsupported types never match")
}

func TestEvaluateAssertions_FinalStateNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Table: "attempts", Expect: map[string]any{"kind": "SUCCESS"}},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "requires database context")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}
