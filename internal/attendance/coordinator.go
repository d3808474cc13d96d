package attendance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Navigator performs the session-invalidation side effects the workflow
// itself never performs.
type Navigator interface {
	// ShowLogin returns the user to the login view.
	ShowLogin(ctx context.Context)
	// ClearCredential invalidates the stored bearer token.
	ClearCredential(ctx context.Context) error
}

// Notifier shows a blocking alert to the user.
type Notifier interface {
	Alert(title, message string)
}

// Coordinator is the single top-level owner of cross-cutting auth state.
// It runs workflow steps, surfaces their alerts and performs logout when an
// outcome asks for it.
type Coordinator struct {
	workflow *Workflow
	nav      Navigator
	notify   Notifier
	logger   *slog.Logger
}

// NewCoordinator wires a workflow to its navigation and alert collaborators.
func NewCoordinator(w *Workflow, nav Navigator, notify Notifier, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{workflow: w, nav: nav, notify: notify, logger: logger}
}

// Workflow returns the coordinated workflow.
func (c *Coordinator) Workflow() *Workflow {
	return c.workflow
}

// Activate runs the workflow's one-shot student fetch and handles its outcome.
func (c *Coordinator) Activate(ctx context.Context) (Outcome, error) {
	o, err := c.workflow.Activate(ctx)
	if err != nil {
		return o, err
	}
	return o, c.Handle(ctx, o)
}

// MarkPresent sets the class code, runs MarkPresent and handles the outcome.
func (c *Coordinator) MarkPresent(ctx context.Context, code string) (Outcome, error) {
	c.workflow.SetCode(code)
	o, err := c.workflow.MarkPresent(ctx)
	if err != nil {
		return o, err
	}
	return o, c.Handle(ctx, o)
}

// Handle alerts the outcome's message, if any, and logs out when required.
func (c *Coordinator) Handle(ctx context.Context, o Outcome) error {
	if o.Alert() {
		c.notify.Alert(o.Title, o.Message)
	}
	if o.RequiresLogout {
		return c.Logout(ctx)
	}
	return nil
}

// Logout returns to the login view, clears the credential and ends the
// activation.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.logger.Info("logging out", "activation", c.workflow.ActivationID())
	c.nav.ShowLogin(ctx)
	err := c.nav.ClearCredential(ctx)
	c.workflow.Deactivate()
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
