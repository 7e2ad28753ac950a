package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type mockRunner struct {
	outputs map[string][]byte // key: "name arg1 arg2", value: output
	errors  map[string]error
	calls   []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{
		outputs: make(map[string][]byte),
		errors:  make(map[string]error),
	}
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := name
	for _, a := range args {
		key += " " + a
	}
	m.calls = append(m.calls, key)
	if err, ok := m.errors[key]; ok {
		return m.outputs[key], err
	}
	if out, ok := m.outputs[key]; ok {
		return out, nil
	}
	return nil, fmt.Errorf("mock: no output configured for %q", key)
}

func TestDaemon_Success(t *testing.T) {
	runner := newMockRunner()
	runner.outputs["nginx -t"] = []byte("syntax is ok")
	runner.outputs["nginx -s reload"] = nil

	d := &Daemon{
		Runner:      runner,
		ValidateCmd: []string{"nginx", "-t"},
		ActivateCmd: []string{"nginx", "-s", "reload"},
	}
	if err := d.Validate(context.Background()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := d.Activate(context.Background()); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if strings.Join(runner.calls, ",") != "nginx -t,nginx -s reload" {
		t.Errorf("calls = %v", runner.calls)
	}
}

func TestDaemon_Failure(t *testing.T) {
	exitErr := errors.New("exit status 1")
	runner := newMockRunner()
	runner.outputs["nginx -t"] = []byte("nginx: [emerg] unknown directive \"lisen\"")
	runner.errors["nginx -t"] = exitErr

	d := &Daemon{Runner: runner, ValidateCmd: []string{"nginx", "-t"}}
	err := d.Validate(context.Background())

	var he *HookError
	if !errors.As(err, &he) {
		t.Fatalf("expected *HookError, got %v", err)
	}
	if he.Phase != PhaseValidate {
		t.Errorf("phase = %s", he.Phase)
	}
	if !strings.Contains(he.Output, "unknown directive") {
		t.Errorf("output not kept: %q", he.Output)
	}
	if !errors.Is(err, exitErr) {
		t.Error("HookError should unwrap to the runner error")
	}
	if !strings.Contains(err.Error(), "lisen") {
		t.Errorf("Error() should include output: %s", err)
	}
}

func TestDaemon_NoCommand(t *testing.T) {
	d := &Daemon{Runner: newMockRunner()}
	var he *HookError
	if err := d.Activate(context.Background()); !errors.As(err, &he) || he.Phase != PhaseActivate {
		t.Fatalf("Activate with no command = %v", err)
	}
}

type deadlineRunner struct{ deadline bool }

func (r *deadlineRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	_, r.deadline = ctx.Deadline()
	return nil, nil
}

func TestDaemon_Timeout(t *testing.T) {
	r := &deadlineRunner{}
	d := &Daemon{Runner: r, ValidateCmd: []string{"true"}, Timeout: time.Second}
	if err := d.Validate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !r.deadline {
		t.Error("runner context should carry the hook timeout")
	}
}

func TestExecRunner(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo hi; echo err >&2")
	if err != nil {
		t.Skipf("sh unavailable: %v", err)
	}
	if !strings.Contains(string(out), "hi") || !strings.Contains(string(out), "err") {
		t.Errorf("combined output = %q", out)
	}
}
