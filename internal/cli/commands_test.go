package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/beehere/internal/api"
	"github.com/roach88/beehere/internal/config"
	"github.com/roach88/beehere/internal/mockapi"
)

var testSecret = []byte("cli-test-secret")

// cliEnv is a mock attendance service plus a private database, driven
// through the real command tree.
type cliEnv struct {
	t    *testing.T
	mock *mockapi.Server
	url  string
	db   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	mock := mockapi.New(testSecret)
	hs := httptest.NewServer(mock.Handler())
	t.Cleanup(hs.Close)
	return &cliEnv{
		t:    t,
		mock: mock,
		url:  hs.URL,
		db:   filepath.Join(t.TempDir(), "state", "beehere.db"),
	}
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func (e *cliEnv) run(args ...string) cliResult {
	return e.runWithInput("", args...)
}

func (e *cliEnv) runWithInput(stdin string, args ...string) cliResult {
	e.t.Helper()
	cmd := NewRootCommand(
		config.WithUserConfigPath(""),
		config.WithGetenv(func(string) string { return "" }),
	)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.db, "--api-url", e.url}, args...))
	err := cmd.Execute()
	return cliResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (e *cliEnv) signIn(username string) {
	e.t.Helper()
	tok, err := e.mock.Token(username, time.Hour)
	require.NoError(e.t, err)
	res := e.run("token", "set", tok)
	require.NoError(e.t, res.err, res.stdout)
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestPresent_MarksStudentPresent(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("ann")

	res := env.run("present", "ABC1")
	require.NoError(t, res.err)
	assert.Equal(t, "Success: You have been marked present in this class.\n", res.stdout)
	assert.Equal(t, []api.Attendance{{ID: 1, Session: 42, Student: 1}}, env.mock.Attendance())
}

func TestPresent_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		username string
		codes    []string
		want     string
	}{
		{
			name:     "unknown code",
			username: "ann",
			codes:    []string{"ZZZ"},
			want:     "Error: No classroom session with that code was found.\n",
		},
		{
			name:     "already present",
			username: "ann",
			codes:    []string{"ABC1", "ABC1"},
			want:     "Error: You have already marked yourself present.\n",
		},
		{
			name:     "not on roster",
			username: "ann",
			codes:    []string{"XYZ9"},
			want:     "Error: You are not on the roster for this class.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)
			env.signIn(tt.username)

			var res cliResult
			for _, code := range tt.codes {
				res = env.run("present", code)
			}
			require.Error(t, res.err)
			assert.Equal(t, ExitFailure, GetExitCode(res.err))
			assert.Equal(t, tt.want, res.stdout)

			// A refusal keeps the session.
			show := env.run("token", "show")
			assert.NoError(t, show.err)
		})
	}
}

func TestPresent_SharedCodeUsesFirstSession(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("ann")

	res := env.run("--format", "json", "present", "DUP2")
	require.NoError(t, res.err)

	resp := decodeResponse(t, res.stdout)
	assert.Equal(t, "ok", resp.Status)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "SUCCESS", data["kind"])
	assert.Equal(t, float64(50), data["session_id"])
	assert.Equal(t, "DUP2", data["class_code"])
	assert.NotEmpty(t, data["attempt_id"])
}

func TestPresent_NoStudentSignsOut(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("carol")

	res := env.run("present", "ABC1")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Equal(t, "Error: No student found\n"+SignedOutMessage+"\n", res.stdout)
	assert.Empty(t, env.mock.Attendance())

	show := env.run("token", "show")
	assert.Equal(t, ExitCommandError, GetExitCode(show.err))
	assert.Contains(t, show.stdout, "Error [E104]")
}

func TestPresent_JSONFailure(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, env.run("token", "set", "not.a.jwt").err)

	res := env.run("--format", "json", "present", "ABC1")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))

	resp := decodeResponse(t, res.stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTH_ERROR", resp.Error.Code)
	assert.Equal(t, mockapi.DetailInvalidToken, resp.Error.Message)

	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, true, details["signed_out"])
	assert.Len(t, details["alerts"], 1)
}

func TestPresent_WithoutTokenServiceRejects(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("present", "ABC1")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Equal(t, "Error: "+mockapi.DetailNoCredentials+"\n"+SignedOutMessage+"\n", res.stdout)
	assert.Empty(t, env.mock.Attendance())

	res = env.run("--format", "json", "whoami")
	require.Error(t, res.err)
	resp := decodeResponse(t, res.stdout)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTH_ERROR", resp.Error.Code)
	assert.Equal(t, mockapi.DetailNoCredentials, resp.Error.Message)
}

func TestPresent_ServiceUnreachable(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("ann")

	hs := httptest.NewServer(nil)
	deadURL := hs.URL
	hs.Close()

	res := env.run("--api-url", deadURL, "present", "ABC1")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E103]: request failed")

	// Transport failures are not journaled and do not sign out.
	hist := env.run("history")
	require.NoError(t, hist.err)
	assert.Equal(t, "No check-in attempts recorded.\n", hist.stdout)
	assert.NoError(t, env.run("token", "show").err)
}

func TestWhoami(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("bob")

	res := env.run("whoami")
	require.NoError(t, res.err)
	assert.Equal(t, "Hello, Bob\n", res.stdout)

	res = env.run("--format", "json", "whoami")
	require.NoError(t, res.err)
	data := decodeResponse(t, res.stdout).Data.(map[string]any)
	assert.Equal(t, "READY", data["kind"])
	assert.Equal(t, map[string]any{"id": float64(2), "name": "Bob"}, data["student"])
}

func TestWhoami_ExpiredTokenSignsOut(t *testing.T) {
	env := newCLIEnv(t)
	now := time.Now()
	expired, err := mockapi.IssueToken(testSecret, "ann", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, env.run("token", "set", expired).err)

	res := env.run("whoami")
	require.Error(t, res.err)
	assert.Equal(t, "Error: "+mockapi.DetailExpired+"\n"+SignedOutMessage+"\n", res.stdout)
}

func TestLookup(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("ann")

	res := env.run("lookup", "XYZ9")
	require.NoError(t, res.err)
	assert.Equal(t, "Session 43\n", res.stdout)

	// The code is sent as typed, so padding does not match.
	res = env.run("lookup", "  XYZ9 ")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))

	res = env.run("lookup", "NOPE")
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Equal(t, "Error: No classroom session with that code was found.\n", res.stdout)
	assert.Empty(t, env.mock.Attendance(), "lookup never submits attendance")
}

func TestHistory_NewestFirst(t *testing.T) {
	env := newCLIEnv(t)
	env.signIn("ann")

	env.run("present", "ABC1")
	env.run("present", "ABC1")
	env.run("present", "ZZZ")

	res := env.run("--format", "json", "history")
	require.NoError(t, res.err)

	var resp struct {
		Data struct {
			Attempts []struct {
				ClassCode string `json:"class_code"`
				Kind      string `json:"kind"`
				SessionID *int64 `json:"session_id"`
				StudentID *int64 `json:"student_id"`
			} `json:"attempts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	attempts := resp.Data.Attempts
	require.Len(t, attempts, 3)

	assert.Equal(t, "NOT_FOUND", attempts[0].Kind)
	assert.Nil(t, attempts[0].SessionID)
	assert.Equal(t, "DUPLICATE", attempts[1].Kind)
	assert.Equal(t, "SUCCESS", attempts[2].Kind)
	require.NotNil(t, attempts[2].SessionID)
	assert.Equal(t, int64(42), *attempts[2].SessionID)
	require.NotNil(t, attempts[2].StudentID)
	assert.Equal(t, int64(1), *attempts[2].StudentID)

	res = env.run("history", "--limit", "1")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "ZZZ")
	assert.Contains(t, lines[1], "NOT_FOUND")
}

func TestToken_ShowAndClear(t *testing.T) {
	env := newCLIEnv(t)
	expires := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	tok, err := mockapi.IssueToken(testSecret, "ann", time.Now(), expires)
	require.NoError(t, err)

	res := env.runWithInput(tok+"\n", "token", "set", "-")
	require.NoError(t, res.err)
	assert.Equal(t, "Token stored.\n", res.stdout)

	res = env.run("token", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Token:    "+tok[:6]+"..."+tok[len(tok)-4:])
	assert.Contains(t, res.stdout, "Username: ann")
	assert.Contains(t, res.stdout, "Issuer:   "+mockapi.Issuer)
	assert.Contains(t, res.stdout, "Expires:  2099-01-01T00:00:00Z\n")
	assert.NotContains(t, res.stdout, tok)

	res = env.run("token", "clear")
	require.NoError(t, res.err)
	assert.Equal(t, "Token cleared.\n", res.stdout)

	res = env.run("token", "show")
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
}

func TestToken_SetRejectsEmpty(t *testing.T) {
	env := newCLIEnv(t)

	res := env.runWithInput("   \n", "token", "set", "-")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E102]")
}

func TestInspectToken(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	tok, err := mockapi.IssueToken(testSecret, "bob", now.Add(-time.Hour), now)
	require.NoError(t, err)

	info := inspectToken(tok, now)
	assert.Equal(t, "bob", info.Subject)
	assert.Equal(t, "bob", info.Username)
	require.NotNil(t, info.ExpiresAt)
	assert.True(t, info.Expired, "a token is expired at its exp instant")

	opaque := inspectToken("opaque-session-token", now)
	assert.Equal(t, "opaque...oken", opaque.Token)
	assert.Empty(t, opaque.Subject)
	assert.Nil(t, opaque.ExpiresAt)

	assert.Equal(t, "*****", maskToken("short"))
}

func TestConfigShow(t *testing.T) {
	env := newCLIEnv(t)

	res := env.run("--timeout", "5s", "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "api_url:   "+env.url+"\n")
	assert.Contains(t, res.stdout, "database:  "+env.db+"\n")
	assert.Contains(t, res.stdout, "timeout:   5s\n")
	assert.Contains(t, res.stdout, "log_level: warn\n")
}

func TestConfig_ExplicitFileAndErrors(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "beehere.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 2s\nlog_level: error\n"), 0o644))

	res := env.run("--config", path, "--format", "json", "config", "show")
	require.NoError(t, res.err)
	data := decodeResponse(t, res.stdout).Data.(map[string]any)
	assert.Equal(t, float64(2*time.Second), data["timeout"])
	assert.Equal(t, "error", data["log_level"])

	res = env.run("--api-url", "ftp://school.test", "whoami")
	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E101]")

	res = env.run("--config", filepath.Join(t.TempDir(), "missing.yaml"), "history")
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "Error [E101]")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beehere", "config.yaml")
	cmd := NewRootCommand(config.WithUserConfigPath(path))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "User config ready.\n", out.String())

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().APIURL, cfg.APIURL)
}
