// Package snapshot captures and restores the on-disk state a deployment is
// about to change.
//
// Bundle snapshots are tar archives compressed with lz4; single-file
// snapshots are plain copies. Every snapshot carries a manifest of xxhash
// digests so a restore can be checked against what was captured.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind is the snapshot representation.
type Kind string

const (
	KindArchive Kind = "archive"
	KindFile    Kind = "file"
)

const (
	archiveName = "snapshot.tar.lz4"
	fileName    = "file"
)

// ErrReleased is returned when a released snapshot is used.
var ErrReleased = errors.New("snapshot already released")

// Snapshot is a recorded pre-deployment state.
type Snapshot struct {
	ID        string
	Kind      Kind
	Root      string   // archive: directory the paths are relative to
	Paths     []string // archive: managed relative paths; file: the single absolute path
	Dir       string   // temp directory owning the artifact
	Artifact  string
	Manifest  Manifest
	CreatedAt time.Time

	released bool
}

// Released reports whether Release has been called.
func (s *Snapshot) Released() bool { return s.released }

// Release removes the snapshot artifact. It is safe to call more than once.
func (s *Snapshot) Release() error {
	if s == nil || s.released {
		return nil
	}
	s.released = true
	if s.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("release snapshot %s: %w", s.ID, err)
	}
	return nil
}

// Verify compares the current disk state against the captured manifest and
// reports the first difference.
func (s *Snapshot) Verify() error {
	var current Manifest
	var err error
	switch s.Kind {
	case KindArchive:
		current, err = scan(s.Root, s.Paths)
	case KindFile:
		current, err = scanFile(s.Paths[0])
	default:
		return fmt.Errorf("unknown snapshot kind %q", s.Kind)
	}
	if err != nil {
		return fmt.Errorf("verify snapshot %s: %w", s.ID, err)
	}
	if err := s.Manifest.Compare(current); err != nil {
		return fmt.Errorf("verify snapshot %s: %w", s.ID, err)
	}
	return nil
}

// Manager creates snapshots under a temp directory.
type Manager struct {
	TempDir string
	Logger  *slog.Logger
}

// NewManager returns a manager that keeps artifacts under tempDir. An empty
// tempDir means the system default.
func NewManager(tempDir string) *Manager {
	return &Manager{TempDir: tempDir, Logger: slog.Default()}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *Manager) newSnapshot(kind Kind) (*Snapshot, error) {
	if m.TempDir != "" {
		if err := os.MkdirAll(m.TempDir, 0o700); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
	}
	dir, err := os.MkdirTemp(m.TempDir, "confdeploy-snap-*")
	if err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &Snapshot{
		ID:        uuid.NewString(),
		Kind:      kind,
		Dir:       dir,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Capture archives every path (relative to root) that currently exists.
// Missing paths are skipped and will be absent again after a restore.
func (m *Manager) Capture(root string, paths []string) (*Snapshot, error) {
	for _, p := range paths {
		if err := checkRelative(p); err != nil {
			return nil, err
		}
	}
	snap, err := m.newSnapshot(KindArchive)
	if err != nil {
		return nil, err
	}
	snap.Root = root
	snap.Paths = append([]string(nil), paths...)
	snap.Artifact = filepath.Join(snap.Dir, archiveName)

	manifest, err := writeArchive(snap.Artifact, root, paths)
	if err != nil {
		_ = snap.Release()
		return nil, fmt.Errorf("capture %s: %w", root, err)
	}
	snap.Manifest = manifest
	m.logger().Debug("snapshot captured",
		"id", snap.ID, "root", root, "paths", len(paths), "entries", len(manifest))
	return snap, nil
}

// CaptureFile copies a single existing file into a new snapshot.
func (m *Manager) CaptureFile(path string) (*Snapshot, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("capture %s: not a regular file", path)
	}
	snap, err := m.newSnapshot(KindFile)
	if err != nil {
		return nil, err
	}
	snap.Paths = []string{path}
	snap.Artifact = filepath.Join(snap.Dir, fileName)
	if err := copyFile(path, snap.Artifact, st.Mode().Perm()); err != nil {
		_ = snap.Release()
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	manifest, err := scanFile(snap.Artifact)
	if err != nil {
		_ = snap.Release()
		return nil, fmt.Errorf("capture %s: %w", path, err)
	}
	manifest[0].Name = filepath.Base(path)
	snap.Manifest = manifest
	m.logger().Debug("snapshot captured", "id", snap.ID, "file", path)
	return snap, nil
}

// Restore puts the captured state back and verifies it. Each managed path is
// removed first so the result is exactly the captured state.
func (m *Manager) Restore(snap *Snapshot) error {
	if snap == nil {
		return errors.New("restore: nil snapshot")
	}
	if snap.released {
		return fmt.Errorf("restore %s: %w", snap.ID, ErrReleased)
	}
	switch snap.Kind {
	case KindArchive:
		for _, p := range snap.Paths {
			if err := os.RemoveAll(filepath.Join(snap.Root, p)); err != nil {
				return fmt.Errorf("restore %s: remove %s: %w", snap.ID, p, err)
			}
		}
		if err := extractTarLz4(snap.Artifact, snap.Root); err != nil {
			return fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	case KindFile:
		target := snap.Paths[0]
		if err := copyFile(snap.Artifact, target, snap.Manifest[0].Mode.Perm()); err != nil {
			return fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	default:
		return fmt.Errorf("restore %s: unknown kind %q", snap.ID, snap.Kind)
	}
	if err := snap.Verify(); err != nil {
		return err
	}
	m.logger().Debug("snapshot restored", "id", snap.ID)
	return nil
}

func checkRelative(p string) error {
	clean := filepath.Clean(p)
	if p == "" || filepath.IsAbs(p) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("invalid managed path %q", p)
	}
	return nil
}

// copyFile writes src over dst through a temp file in dst's directory.
func copyFile(src, dst string, perm fs.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".restore-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, dst); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
