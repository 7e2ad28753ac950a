// Package deploy drives an adapter through snapshot, install, validate and
// activate, restoring the snapshot when any step fails.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/settings"
	"github.com/pushchain/confdeploy/internal/snapshot"
)

// State is a step of a deployment.
type State string

const (
	Idle                      State = "idle"
	Snapshotting              State = "snapshotting"
	Installing                State = "installing"
	Validating                State = "validating"
	Activating                State = "activating"
	RollingBack               State = "rolling-back"
	RevalidatingAfterRollback State = "revalidating-after-rollback"
	ReactivatingAfterRollback State = "reactivating-after-rollback"
	Uninstalling              State = "uninstalling"
	Done                      State = "done"
)

// Result is the final classification of a deployment.
type Result string

const (
	Installed              Result = "installed"
	InstallFailedRestored  Result = "install-failed-restored"
	InstallFailedCorrupted Result = "install-failed-corrupted"
	Uninstalled            Result = "uninstalled"
	UninstallFailed        Result = "uninstall-failed"
	UninstallSkipped       Result = "uninstall-skipped"
)

// Operation is what was requested.
type Operation string

const (
	OpInstall   Operation = "install"
	OpUninstall Operation = "uninstall"
)

// Outcome describes one finished deployment.
type Outcome struct {
	ID          string        `json:"id"`
	Operation   Operation     `json:"operation"`
	Service     string        `json:"service"`
	Config      string        `json:"config"`
	Result      Result        `json:"result"`
	States      []State       `json:"states"`
	Err         error         `json:"-"`
	RollbackErr error         `json:"-"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Succeeded reports whether the requested operation took effect.
func (o Outcome) Succeeded() bool {
	switch o.Result {
	case Installed, Uninstalled, UninstallSkipped:
		return true
	}
	return false
}

// AsError returns nil for a successful outcome and an *Error otherwise.
func (o Outcome) AsError() error {
	if o.Succeeded() {
		return nil
	}
	return &Error{Result: o.Result, Service: o.Service, Config: o.Config, Cause: o.Err, Rollback: o.RollbackErr}
}

// Recorder persists finished outcomes (history journal, metrics).
type Recorder interface {
	Record(o Outcome) error
}

// Orchestrator runs deployments. Callers must not run two deployments that
// touch the same files at once.
type Orchestrator struct {
	Logger       *slog.Logger
	OnTransition func(State)
	Recorders    []Recorder
}

// New returns an orchestrator that logs to logger and reports finished
// outcomes to recorders.
func New(logger *slog.Logger, recorders ...Recorder) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Logger: logger, Recorders: recorders}
}

type run struct {
	o       *Orchestrator
	log     *slog.Logger
	outcome Outcome
	state   State
}

func (o *Orchestrator) start(op Operation, a adapter.Adapter, configName string) *run {
	id := uuid.NewString()
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &run{
		o:   o,
		log: logger.With("id", id, "operation", op, "service", a.Name(), "config", configName),
		outcome: Outcome{
			ID:        id,
			Operation: op,
			Service:   a.Name(),
			Config:    configName,
			StartedAt: time.Now().UTC(),
		},
	}
	r.enter(Idle)
	return r
}

func (r *run) enter(s State) {
	r.log.Debug("state transition", "from", r.state, "to", s)
	r.state = s
	r.outcome.States = append(r.outcome.States, s)
	if r.o.OnTransition != nil {
		r.o.OnTransition(s)
	}
}

func (r *run) finish(result Result) Outcome {
	r.outcome.Result = result
	r.enter(Done)
	r.outcome.Duration = time.Since(r.outcome.StartedAt)

	attrs := []any{"result", result, "duration", r.outcome.Duration}
	if r.outcome.Err != nil {
		attrs = append(attrs, "error", r.outcome.Err)
	}
	if r.outcome.RollbackErr != nil {
		attrs = append(attrs, "rollback_error", r.outcome.RollbackErr)
	}
	switch result {
	case InstallFailedCorrupted, UninstallFailed:
		r.log.Error("deployment finished", attrs...)
	case InstallFailedRestored:
		r.log.Warn("deployment finished", attrs...)
	default:
		r.log.Info("deployment finished", attrs...)
	}

	for _, rec := range r.o.Recorders {
		if err := rec.Record(r.outcome); err != nil {
			r.log.Warn("failed to record outcome", "error", err)
		}
	}
	return r.outcome
}

// call runs an adapter step, converting a panic into an error.
func call(step State, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("adapter panic during %s: %v\n%s", step, p, debug.Stack())
		}
	}()
	return fn()
}

// Install snapshots, installs, validates and activates configName. Any
// failure after the snapshot triggers a restore followed by a second
// validate/activate. A snapshot failure returns before anything is touched,
// with a zero Outcome.
//
// Once installation starts the deployment runs to completion: the hooks
// are not cancelled with ctx.
func (o *Orchestrator) Install(ctx context.Context, a adapter.Adapter, configName string, s settings.Settings) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	r := o.start(OpInstall, a, configName)

	r.enter(Snapshotting)
	var snap *snapshot.Snapshot
	err := call(Snapshotting, func() error {
		var err error
		snap, err = a.Snapshot(configName)
		return err
	})
	if err != nil {
		r.log.Error("snapshot failed, nothing was changed", "error", err)
		return Outcome{}, fmt.Errorf("snapshot %s/%s: %w", a.Name(), configName, err)
	}
	defer func() {
		if err := snap.Release(); err != nil {
			r.log.Warn("failed to release snapshot", "error", err)
		}
	}()

	hookCtx := context.WithoutCancel(ctx)

	r.enter(Installing)
	err = call(Installing, func() error { return a.Install(configName, s) })
	if err == nil {
		r.enter(Validating)
		err = call(Validating, func() error { return a.Validate(hookCtx) })
	}
	if err == nil {
		r.enter(Activating)
		err = call(Activating, func() error { return a.Activate(hookCtx) })
	}
	if err == nil {
		return r.finish(Installed), nil
	}

	r.outcome.Err = fmt.Errorf("%s: %w", r.state, err)
	r.log.Warn("deployment failed, rolling back", "state", r.state, "error", err)

	r.enter(RollingBack)
	rerr := call(RollingBack, func() error { return a.Restore(configName, snap) })
	if rerr == nil {
		r.enter(RevalidatingAfterRollback)
		rerr = call(RevalidatingAfterRollback, func() error { return a.Validate(hookCtx) })
	}
	if rerr == nil {
		r.enter(ReactivatingAfterRollback)
		rerr = call(ReactivatingAfterRollback, func() error { return a.Activate(hookCtx) })
	}
	if rerr != nil {
		r.outcome.RollbackErr = &RollbackError{State: r.state, Err: rerr}
		out := r.finish(InstallFailedCorrupted)
		return out, out.AsError()
	}
	out := r.finish(InstallFailedRestored)
	return out, out.AsError()
}

// Uninstall removes configName and re-validates and reloads the daemon.
// s must come from a successful resolution of the same config.
// There is no snapshot and no rollback. Adapters that decline to
// uninstall yield UninstallSkipped without running hooks.
func (o *Orchestrator) Uninstall(ctx context.Context, a adapter.Adapter, configName string, s settings.Settings) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	r := o.start(OpUninstall, a, configName)
	hookCtx := context.WithoutCancel(ctx)

	r.enter(Uninstalling)
	err := call(Uninstalling, func() error { return a.Uninstall(configName, s) })
	if errors.Is(err, adapter.ErrUninstallNoop) {
		return r.finish(UninstallSkipped), nil
	}
	if err == nil {
		r.enter(Validating)
		err = call(Validating, func() error { return a.Validate(hookCtx) })
	}
	if err == nil {
		r.enter(Activating)
		err = call(Activating, func() error { return a.Activate(hookCtx) })
	}
	if err != nil {
		r.outcome.Err = fmt.Errorf("%s: %w", r.state, err)
		out := r.finish(UninstallFailed)
		return out, out.AsError()
	}
	return r.finish(Uninstalled), nil
}
