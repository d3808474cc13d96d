package mockapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beehere/internal/api"
)

var (
	testSecret = []byte("test-secret")
	testNow    = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := New(testSecret, opts...)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return s, hs
}

func clientFor(t *testing.T, s *Server, hs *httptest.Server, username string) *api.Client {
	t.Helper()
	tok, err := s.Token(username, time.Hour)
	require.NoError(t, err)
	c, err := api.NewClient(hs.URL, api.StaticToken(tok))
	require.NoError(t, err)
	return c
}

func TestListStudents_OnlyCurrentUser(t *testing.T) {
	s, hs := newTestServer(t)
	c := clientFor(t, s, hs, "ann")

	students, err := c.ListStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, int64(1), students[0].ID)
	assert.Equal(t, "Ann", students[0].Name)
}

func TestListStudents_UserWithoutStudent(t *testing.T) {
	s, hs := newTestServer(t)
	c := clientFor(t, s, hs, "carol")

	students, err := c.ListStudents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}

func TestAuth_Rejections(t *testing.T) {
	_, hs := newTestServer(t)

	expired, err := IssueToken(testSecret, "ann", testNow.Add(-2*time.Hour), testNow.Add(-time.Hour))
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other-secret"), "ann", testNow, testNow.Add(time.Hour))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		detail string
	}{
		{"missing", "", DetailNoCredentials},
		{"expired", expired, DetailExpired},
		{"wrong key", foreign, DetailInvalidToken},
		{"garbage", "not.a.jwt", DetailInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := api.NewClient(hs.URL, api.StaticToken(tt.token))
			require.NoError(t, err)

			_, err = c.ListStudents(context.Background())
			apiErr, ok := api.AsError(err)
			require.True(t, ok, "want *api.Error, got %v", err)
			assert.Equal(t, api.ErrAuth, apiErr.Kind)
			assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
			assert.Equal(t, tt.detail, apiErr.DetailText())
		})
	}
}

func TestAuth_WrongScheme(t *testing.T) {
	s, hs := newTestServer(t)
	tok, err := s.Token("ann", time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, hs.URL+"/student?is_user=True", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListSessions_FiltersByCode(t *testing.T) {
	s, hs := newTestServer(t)
	c := clientFor(t, s, hs, "ann")
	ctx := context.Background()

	got, err := c.ListSessions(ctx, "ABC1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].ID)

	got, err = c.ListSessions(ctx, "DUP2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(50), got[0].ID, "seed order is preserved")

	got, err = c.ListSessions(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCreateAttendance_Constraints(t *testing.T) {
	s, hs := newTestServer(t)
	c := clientFor(t, s, hs, "ann")
	ctx := context.Background()

	rec, err := c.CreateAttendance(ctx, api.AttendanceRequest{Session: 42, Student: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.Session)

	_, err = c.CreateAttendance(ctx, api.AttendanceRequest{Session: 42, Student: 1})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonDuplicate, apiErr.Reason)
	assert.Equal(t, `["`+MsgUniqueTogether+`"]`, apiErr.Payload())

	_, err = c.CreateAttendance(ctx, api.AttendanceRequest{Session: 43, Student: 1})
	apiErr, ok = api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.ReasonNotOnRoster, apiErr.Reason)

	assert.Len(t, s.Attendance(), 1)
}

func TestCreateAttendance_UnknownSessionIsUnexpected(t *testing.T) {
	s, hs := newTestServer(t)
	c := clientFor(t, s, hs, "ann")

	_, err := c.CreateAttendance(context.Background(), api.AttendanceRequest{Session: 999, Student: 1})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, api.ErrUnexpected, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestErrorCodes(t *testing.T) {
	s, hs := newTestServer(t, WithErrorCodes(true))
	c := clientFor(t, s, hs, "bob")
	ctx := context.Background()

	_, err := c.CreateAttendance(ctx, api.AttendanceRequest{Session: 43, Student: 2})
	require.NoError(t, err)
	_, err = c.CreateAttendance(ctx, api.AttendanceRequest{Session: 43, Student: 2})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "unique", apiErr.Code)
	assert.Equal(t, api.ReasonDuplicate, apiErr.Reason)
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
students:
  - {id: 7, name: Dee, username: dee}
sessions:
  - {id: 9, class_code: Q1, roster: [7]}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Students, 1)
	assert.Equal(t, "dee", seed.Students[0].Username)
	assert.True(t, seed.Sessions[0].enrolled(7))

	require.NoError(t, os.WriteFile(path, []byte("classes: []\n"), 0o644))
	_, err = LoadSeed(path)
	assert.True(t, err != nil && strings.Contains(err.Error(), "classes"))
}

func TestValidateToken_Claims(t *testing.T) {
	tok, err := IssueToken(testSecret, "ann", testNow, testNow.Add(time.Minute))
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, tok, testNow)
	require.NoError(t, err)
	assert.Equal(t, "ann", claims.Username)
	assert.Equal(t, "ann", claims.Subject)
	assert.Equal(t, Issuer, claims.Issuer)

	_, err = IssueToken(nil, "ann", testNow, testNow)
	assert.Error(t, err)
}
