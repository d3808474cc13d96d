// Package harness runs scripted check-in scenarios end to end.
//
// A scenario fixes the attendance service's responses, then drives the real
// api.Client, attendance.Workflow and attendance.Coordinator through a list of
// steps. Everything observable is recorded in a trace: requests the service
// received, alerts, logout side effects and step outcomes.
//
// # Scenario Format
//
//	name: ann_marked_present
//	description: "What this scenario validates"
//	activation_id: act-1          # optional
//	token: eyJ...                 # optional
//	responses:
//	  student:
//	    - body: '[{"id":1,"name":"Ann"}]'
//	  session:
//	    - body: '[{"id":42}]'
//	  attendance:
//	    - status: 400
//	      body: '{"non_field_errors":["unique together"]}'
//	steps:
//	  - action: activate
//	    expect: { kind: READY }
//	  - action: mark_present
//	    code: ABC1
//	    expect: { kind: DUPLICATE, message: "You have already marked yourself present." }
//	assertions:
//	  - type: trace_count
//	    event: request:attendance
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: an event label appears (request bodies may be matched
//     by subset)
//   - trace_order: event labels appear in the given order
//   - trace_count: an event label appears exactly N times
//   - final_state: queries a store table (attempts, credentials) and
//     verifies expected values
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory store, a fixed activation ID, sequential
// journal IDs and a step clock, so traces are byte-identical across runs and
// can be compared against golden files with RunWithGolden.
package harness
