package api

import (
	"encoding/json"
	"fmt"
)

// Student is the remote Student object linked to the logged-in user.
//
// ID and Name are the fields the workflow relies on. Every field the service
// returned, including those two, is kept verbatim in Fields so callers can
// display or forward data this package does not model.
type Student struct {
	ID     int64                      `json:"id"`
	Name   string                     `json:"name"`
	Fields map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the modeled fields and retains the raw object.
func (s *Student) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("student: %w", err)
	}

	type plain Student
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("student: %w", err)
	}

	*s = Student(p)
	s.Fields = fields
	return nil
}

// MarshalJSON re-emits the remote object with ID and Name taking precedence
// over any stale copies in Fields.
func (s Student) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["id"] = s.ID
	out["name"] = s.Name
	return json.Marshal(out)
}

// Session is a classroom session resolved from a class code.
type Session struct {
	ID        int64  `json:"id"`
	ClassCode string `json:"class_code,omitempty"`
}

// AttendanceRequest is the body of the attendance POST.
type AttendanceRequest struct {
	Session int64 `json:"session"`
	Student int64 `json:"student"`
}

// Attendance is the created attendance transaction. The service may answer
// with an empty object, in which case every field is zero.
type Attendance struct {
	ID      int64 `json:"id,omitempty"`
	Session int64 `json:"session,omitempty"`
	Student int64 `json:"student,omitempty"`
}
