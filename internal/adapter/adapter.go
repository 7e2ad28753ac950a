// Package adapter defines how a service's configuration is snapshotted,
// installed, restored and removed on disk, and which daemon hooks check and
// activate it.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pushchain/confdeploy/internal/config"
	"github.com/pushchain/confdeploy/internal/hooks"
	"github.com/pushchain/confdeploy/internal/render"
	"github.com/pushchain/confdeploy/internal/settings"
	"github.com/pushchain/confdeploy/internal/snapshot"
)

// Adapter is the capability set the orchestrator drives.
type Adapter interface {
	Name() string
	// Snapshot records the state Install is about to change. It must not
	// modify anything.
	Snapshot(configName string) (*snapshot.Snapshot, error)
	Install(configName string, s settings.Settings) error
	Restore(configName string, snap *snapshot.Snapshot) error
	// Uninstall receives the resolved settings of the config being
	// removed; resolution failing means nothing is removed.
	Uninstall(configName string, s settings.Settings) error
	Validate(ctx context.Context) error
	Activate(ctx context.Context) error
}

var (
	// ErrInvalidConfigName is returned for config names that are not a
	// single path element.
	ErrInvalidConfigName = errors.New("invalid config name")
	// ErrUninstallNoop is returned by adapters whose uninstall deliberately
	// does nothing.
	ErrUninstallNoop = errors.New("uninstall is a no-op for this service")
)

// IOError describes a failed filesystem operation during install or
// uninstall.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// Deps are the shared collaborators handed to adapter factories.
type Deps struct {
	Config    config.Config
	Renderer  *render.Renderer
	Snapshots *snapshot.Manager
	Hooks     *hooks.Daemon
	Logger    *slog.Logger
}

// NewDeps wires the default collaborators for cfg.
func NewDeps(cfg config.Config, runner hooks.CommandRunner, logger *slog.Logger) Deps {
	if logger == nil {
		logger = slog.Default()
	}
	snaps := snapshot.NewManager(cfg.TempDir)
	snaps.Logger = logger
	return Deps{
		Config:    cfg,
		Renderer:  render.New(cfg.TemplateRoot),
		Snapshots: snaps,
		Hooks: &hooks.Daemon{
			Runner:      runner,
			ValidateCmd: cfg.ValidateCmd,
			ActivateCmd: cfg.ActivateCmd,
			Timeout:     cfg.HookTimeout,
		},
		Logger: logger,
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// daemonHooks provides Validate/Activate for adapters backed by hooks.Daemon.
type daemonHooks struct {
	daemon *hooks.Daemon
}

func (h daemonHooks) Validate(ctx context.Context) error { return h.daemon.Validate(ctx) }

func (h daemonHooks) Activate(ctx context.Context) error { return h.daemon.Activate(ctx) }

// CheckConfigName rejects names that could address anything other than a
// single entry in the managed directories.
func CheckConfigName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidConfigName, name)
	}
	return nil
}

// ensureDir creates dir if needed and fails if something other than a
// directory is in the way.
func ensureDir(dir string) error {
	st, err := os.Lstat(dir)
	switch {
	case err == nil && st.IsDir():
		return nil
	case err == nil:
		return &IOError{Op: "mkdir", Path: dir, Err: errors.New("exists and is not a directory")}
	case !errors.Is(err, os.ErrNotExist):
		return &IOError{Op: "stat", Path: dir, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// copyFile copies src over dst atomically, keeping src's permissions.
func copyFile(src, dst string) error {
	st, err := os.Stat(src)
	if err != nil {
		return &IOError{Op: "copy", Path: src, Err: err}
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return &IOError{Op: "copy", Path: src, Err: err}
	}
	if err := render.WriteFile(dst, string(data), st.Mode().Perm()); err != nil {
		return &IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}
