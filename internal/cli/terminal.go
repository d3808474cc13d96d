package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/beehere/internal/store"
)

// SignedOutMessage is printed when the coordinator returns to the login view.
const SignedOutMessage = "Signed out. Run 'beehere token set <jwt>' to sign in again."

// Alert is one message shown to the user.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// terminal is the CLI's view: it implements attendance.Navigator and
// attendance.Notifier. In quiet mode (JSON output) nothing is printed and
// the command reports alerts in its response instead.
type terminal struct {
	out   io.Writer
	quiet bool
	store *store.Store

	alerts    []Alert
	signedOut bool
}

// Alert prints "Title: Message".
func (t *terminal) Alert(title, message string) {
	t.alerts = append(t.alerts, Alert{Title: title, Message: message})
	if !t.quiet {
		fmt.Fprintf(t.out, "%s: %s\n", title, message)
	}
}

// ShowLogin tells the user how to sign in again.
func (t *terminal) ShowLogin(context.Context) {
	t.signedOut = true
	if !t.quiet {
		fmt.Fprintln(t.out, SignedOutMessage)
	}
}

// ClearCredential removes the stored token.
func (t *terminal) ClearCredential(ctx context.Context) error {
	return t.store.ClearToken(ctx)
}
