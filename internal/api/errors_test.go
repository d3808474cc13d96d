package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
		reason ValidationReason
	}{
		{"detail is auth", http.StatusOK, `{"detail":"nope"}`, ErrAuth, ""},
		{"401 without body", http.StatusUnauthorized, ``, ErrAuth, ""},
		{"403 plain text", http.StatusForbidden, `Forbidden`, ErrAuth, ""},
		{"unique", http.StatusBadRequest, `{"non_field_errors":["The fields session, student must make a unique set."]}`, ErrValidation, ReasonDuplicate},
		{"roster", http.StatusBadRequest, `{"non_field_errors":["Student is not on the roster."]}`, ErrValidation, ReasonNotOnRoster},
		{"unique beats roster", http.StatusBadRequest, `{"non_field_errors":["roster unique"]}`, ErrValidation, ReasonDuplicate},
		{"other validation", http.StatusBadRequest, `{"non_field_errors":["Session is closed."]}`, ErrValidation, ReasonOther},
		{"404 bare", http.StatusNotFound, `{}`, ErrNotFound, ""},
		{"500 unknown", http.StatusInternalServerError, `<html>`, ErrUnexpected, ""},
		{"roster code refines validation", http.StatusBadRequest, `{"code":"not_on_roster","non_field_errors":["Session is closed."]}`, ErrValidation, ReasonNotOnRoster},
		{"unique payload beats roster code", http.StatusBadRequest, `{"non_field_errors":["must make a unique set"],"code":"not_on_roster"}`, ErrValidation, ReasonDuplicate},
		{"detail beats not_found code", http.StatusNotFound, `{"detail":"Not found.","code":"not_found"}`, ErrAuth, ""},
		{"detail beats invalid code", http.StatusBadRequest, `{"detail":"Invalid token.","code":"invalid"}`, ErrAuth, ""},
		{"code alone decides", http.StatusBadRequest, `{"code":"duplicate_attendance"}`, ErrValidation, ReasonDuplicate},
		{"auth code", http.StatusBadRequest, `{"code":"token_not_valid"}`, ErrAuth, ""},
		{"unknown code falls back", http.StatusBadRequest, `{"code":"weird","non_field_errors":["roster"]}`, ErrValidation, ReasonNotOnRoster},
		{"generic invalid code refined by payload", http.StatusBadRequest, `{"code":"invalid","non_field_errors":["unique"]}`, ErrValidation, ReasonDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := classify(tt.status, []byte(tt.body))
			require.NotNil(t, e)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.reason, e.Reason)
		})
	}
}

func TestClassify_Success(t *testing.T) {
	assert.Nil(t, classify(http.StatusCreated, []byte(`{"id":1}`)))
	assert.Nil(t, classify(http.StatusOK, []byte(`{}`)))
	assert.Nil(t, classify(http.StatusOK, nil))
}

func TestClassify_NullDetailStillAuth(t *testing.T) {
	e := classify(http.StatusOK, []byte(`{"detail":null}`))
	require.NotNil(t, e)
	assert.Equal(t, ErrAuth, e.Kind)
}

func TestError_Message(t *testing.T) {
	e := classify(http.StatusUnauthorized, []byte(`{"detail":"Signature has expired."}`))
	assert.Equal(t, "AUTH (HTTP 401): Signature has expired.", e.Error())

	e = classify(http.StatusBadRequest, []byte(`{"non_field_errors":["x"]}`))
	assert.Equal(t, `VALIDATION (HTTP 400): ["x"]`, e.Error())

	e = classify(http.StatusNotFound, nil)
	assert.Equal(t, "NOT_FOUND (HTTP 404)", e.Error())
}

func TestError_DetailTextNonString(t *testing.T) {
	e := classify(http.StatusForbidden, []byte(`{"detail":{"b":1,"a":2}}`))
	assert.Equal(t, `{"a":2,"b":1}`, e.DetailText())
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	e := classify(http.StatusBadRequest, []byte(`{"non_field_errors":["x"]}`))
	wrapped := fmt.Errorf("create attendance: %w", e)

	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsAuth(wrapped))
	assert.False(t, IsNotFound(wrapped))
}
