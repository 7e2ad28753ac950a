package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/pushchain/confdeploy/internal/settings"
	"github.com/pushchain/confdeploy/internal/snapshot"
)

// WholeFile replaces a single shared daemon config file with a static file
// from the template tree. No templating is applied.
type WholeFile struct {
	daemonHooks
	service string
	target  string
	deps    Deps
}

// NewWholeFile returns an adapter managing deps.Config.MainConfig.
func NewWholeFile(service string, deps Deps) *WholeFile {
	return &WholeFile{
		daemonHooks: daemonHooks{daemon: deps.Hooks},
		service:     service,
		target:      deps.Config.MainConfig,
		deps:        deps,
	}
}

func (w *WholeFile) Name() string { return w.service }

func (w *WholeFile) Snapshot(configName string) (*snapshot.Snapshot, error) {
	if err := CheckConfigName(configName); err != nil {
		return nil, err
	}
	return w.deps.Snapshots.CaptureFile(w.target)
}

func (w *WholeFile) Install(configName string, _ settings.Settings) error {
	if err := CheckConfigName(configName); err != nil {
		return err
	}
	src := filepath.Join(w.deps.Config.TemplateRoot, w.service, configName+".conf")
	if err := copyFile(src, w.target); err != nil {
		return err
	}
	w.deps.logger().Debug("main config replaced", "service", w.service, "config", configName, "target", w.target)
	return nil
}

func (w *WholeFile) Restore(configName string, snap *snapshot.Snapshot) error {
	if snap == nil || snap.Kind != snapshot.KindFile || snap.Paths[0] != w.target {
		return fmt.Errorf("restore %s: snapshot does not belong to %s", configName, w.service)
	}
	return w.deps.Snapshots.Restore(snap)
}

// Uninstall does nothing: the file is shared by every config of the
// daemon and there is no reference count to say when it could go.
func (w *WholeFile) Uninstall(configName string, _ settings.Settings) error {
	if err := CheckConfigName(configName); err != nil {
		return err
	}
	return ErrUninstallNoop
}
