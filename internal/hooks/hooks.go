// Package hooks runs the daemon's validate and activate commands.
package hooks

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Phase names the hook being run.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseActivate Phase = "activate"
)

// CommandRunner abstracts exec.Command calls for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec and returns combined output.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// HookError is returned when a hook command fails. Output is kept for
// diagnostics only.
type HookError struct {
	Phase   Phase
	Command []string
	Output  string
	Err     error
}

func (e *HookError) Error() string {
	msg := fmt.Sprintf("%s hook %q failed: %v", e.Phase, strings.Join(e.Command, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *HookError) Unwrap() error { return e.Err }

// Daemon runs the validate/activate commands of a managed daemon.
type Daemon struct {
	Runner      CommandRunner
	ValidateCmd []string
	ActivateCmd []string
	Timeout     time.Duration
}

// Validate checks the installed configuration, e.g. `nginx -t`.
func (d *Daemon) Validate(ctx context.Context) error {
	return d.run(ctx, PhaseValidate, d.ValidateCmd)
}

// Activate makes the daemon pick up the configuration, e.g. `nginx -s reload`.
func (d *Daemon) Activate(ctx context.Context) error {
	return d.run(ctx, PhaseActivate, d.ActivateCmd)
}

func (d *Daemon) run(ctx context.Context, phase Phase, argv []string) error {
	if len(argv) == 0 {
		return &HookError{Phase: phase, Err: fmt.Errorf("no command configured")}
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	runner := d.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	out, err := runner.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return &HookError{Phase: phase, Command: argv, Output: string(out), Err: err}
	}
	return nil
}
