package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pushchain/confdeploy/internal/render"
	"github.com/pushchain/confdeploy/internal/settings"
	"github.com/pushchain/confdeploy/internal/snapshot"
)

// Settings keys the bundle adapter reads.
const (
	KeyCerts    = "certs"
	KeyIncludes = "includes"
	KeyMkdirs   = "mkdirs"
)

// Bundle manages one nginx site: a rendered site file, its enabling
// symlink, and the config's include and cert directories.
type Bundle struct {
	daemonHooks
	service string
	root    string
	deps    Deps
}

// NewBundle returns a bundle adapter rooted at deps.Config.TargetRoot.
func NewBundle(service string, deps Deps) *Bundle {
	return &Bundle{
		daemonHooks: daemonHooks{daemon: deps.Hooks},
		service:     service,
		root:        deps.Config.TargetRoot,
		deps:        deps,
	}
}

func (b *Bundle) Name() string { return b.service }

// ManagedPaths returns the paths, relative to the target root, that belong
// to configName.
func ManagedPaths(configName string) []string {
	return []string{
		filepath.Join("sites-available", configName+".conf"),
		filepath.Join("sites-enabled", configName+".conf"),
		filepath.Join("includes", configName),
		filepath.Join("certs", configName),
	}
}

func (b *Bundle) sitePath(configName string) string {
	return filepath.Join(b.root, "sites-available", configName+".conf")
}

func (b *Bundle) linkPath(configName string) string {
	return filepath.Join(b.root, "sites-enabled", configName+".conf")
}

func (b *Bundle) Snapshot(configName string) (*snapshot.Snapshot, error) {
	if err := CheckConfigName(configName); err != nil {
		return nil, err
	}
	return b.deps.Snapshots.Capture(b.root, ManagedPaths(configName))
}

func (b *Bundle) Install(configName string, s settings.Settings) error {
	if err := CheckConfigName(configName); err != nil {
		return err
	}
	log := b.deps.logger().With("service", b.service, "config", configName)
	ctx := s.Context()

	certs, err := s.Strings(KeyCerts)
	if err != nil {
		return err
	}
	certDir := filepath.Join(b.root, "certs", configName)
	if err := ensureDir(certDir); err != nil {
		return err
	}
	for _, name := range certs {
		if err := checkEntryName(KeyCerts, name); err != nil {
			return err
		}
		src := filepath.Join(b.deps.Config.TemplateRoot, b.service, "certs", name)
		if err := copyFile(src, filepath.Join(certDir, name)); err != nil {
			return err
		}
		log.Debug("cert copied", "name", name)
	}

	includes, err := s.Strings(KeyIncludes)
	if err != nil {
		return err
	}
	includeDir := filepath.Join(b.root, "includes", configName)
	if err := ensureDir(includeDir); err != nil {
		return err
	}
	for _, name := range includes {
		if err := checkEntryName(KeyIncludes, name); err != nil {
			return err
		}
		if err := b.renderTo(filepath.Join(b.service, "includes", name), filepath.Join(includeDir, name), ctx); err != nil {
			return err
		}
		log.Debug("include rendered", "name", name)
	}

	mkdirs, err := s.Strings(KeyMkdirs)
	if err != nil {
		return err
	}
	for _, dir := range mkdirs {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(b.root, dir)
		}
		if err := ensureDir(dir); err != nil {
			return err
		}
	}

	site := b.sitePath(configName)
	if err := ensureDir(filepath.Dir(site)); err != nil {
		return err
	}
	if err := b.renderTo(filepath.Join(b.service, configName+".conf"), site, ctx); err != nil {
		return err
	}

	link := b.linkPath(configName)
	if err := ensureDir(filepath.Dir(link)); err != nil {
		return err
	}
	if _, err := os.Lstat(link); err == nil {
		if err := os.Remove(link); err != nil {
			return &IOError{Op: "remove", Path: link, Err: err}
		}
	}
	if err := os.Symlink(site, link); err != nil {
		return &IOError{Op: "symlink", Path: link, Err: err}
	}
	log.Debug("site enabled", "link", link, "target", site)
	return nil
}

func (b *Bundle) renderTo(tmpl, dst string, ctx map[string]any) error {
	text, err := b.deps.Renderer.Render(tmpl, ctx)
	if err != nil {
		return err
	}
	if err := render.WriteFile(dst, text, 0o644); err != nil {
		return &IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}

func (b *Bundle) Restore(configName string, snap *snapshot.Snapshot) error {
	if snap == nil || snap.Kind != snapshot.KindArchive || snap.Root != b.root {
		return fmt.Errorf("restore %s: snapshot does not belong to %s", configName, b.service)
	}
	return b.deps.Snapshots.Restore(snap)
}

// Uninstall removes everything Install created. Missing pieces are fine.
// Settings do not change which paths belong to a config.
func (b *Bundle) Uninstall(configName string, _ settings.Settings) error {
	if err := CheckConfigName(configName); err != nil {
		return err
	}
	for _, p := range []string{b.linkPath(configName), b.sitePath(configName)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &IOError{Op: "remove", Path: p, Err: err}
		}
	}
	for _, dir := range []string{
		filepath.Join(b.root, "includes", configName),
		filepath.Join(b.root, "certs", configName),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return &IOError{Op: "remove", Path: dir, Err: err}
		}
	}
	return nil
}

func checkEntryName(key, name string) error {
	if err := CheckConfigName(name); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}
