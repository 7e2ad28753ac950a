package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// EntryType classifies a manifest entry.
type EntryType string

const (
	TypeDir     EntryType = "dir"
	TypeFile    EntryType = "file"
	TypeSymlink EntryType = "symlink"
)

// Entry is one captured filesystem object.
type Entry struct {
	Name   string
	Type   EntryType
	Mode   fs.FileMode
	Size   int64
	Digest uint64
	Link   string
}

// Manifest lists captured entries in archive order.
type Manifest []Entry

// Compare reports the first difference between m and current.
func (m Manifest) Compare(current Manifest) error {
	have := make(map[string]Entry, len(current))
	for _, e := range current {
		have[e.Name] = e
	}
	for _, want := range m {
		got, ok := have[want.Name]
		if !ok {
			return fmt.Errorf("%s: missing", want.Name)
		}
		delete(have, want.Name)
		switch {
		case got.Type != want.Type:
			return fmt.Errorf("%s: is %s, want %s", want.Name, got.Type, want.Type)
		case got.Link != want.Link:
			return fmt.Errorf("%s: links to %q, want %q", want.Name, got.Link, want.Link)
		case got.Mode != want.Mode:
			return fmt.Errorf("%s: mode %v, want %v", want.Name, got.Mode, want.Mode)
		case got.Size != want.Size || got.Digest != want.Digest:
			return fmt.Errorf("%s: content differs", want.Name)
		}
	}
	if len(have) > 0 {
		extra := make([]string, 0, len(have))
		for name := range have {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		return fmt.Errorf("%s: unexpected entry", extra[0])
	}
	return nil
}

// walk visits every existing managed path under root in lexical order,
// descending into directories without following symlinks.
func walk(root string, paths []string, fn func(rel, full string, info os.FileInfo) error) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, p := range sorted {
		full := filepath.Join(root, p)
		info, err := os.Lstat(full)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := fn(p, full, info); err != nil {
				return err
			}
			continue
		}
		err = filepath.WalkDir(full, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			sub, err := filepath.Rel(full, path)
			if err != nil {
				return err
			}
			return fn(filepath.Join(p, sub), path, info)
		})
		if err != nil {
			return fmt.Errorf("walk %s: %w", p, err)
		}
	}
	return nil
}

// scan builds a manifest of the current state of the managed paths.
func scan(root string, paths []string) (Manifest, error) {
	var manifest Manifest
	err := walk(root, paths, func(rel, full string, info os.FileInfo) error {
		entry := Entry{Name: filepath.ToSlash(rel), Mode: info.Mode().Perm()}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(full)
			if err != nil {
				return err
			}
			entry.Type = TypeSymlink
			entry.Mode = 0
			entry.Link = target
		case info.IsDir():
			entry.Type = TypeDir
		case info.Mode().IsRegular():
			digest, err := digestFile(full)
			if err != nil {
				return err
			}
			entry.Type = TypeFile
			entry.Size = info.Size()
			entry.Digest = digest
		default:
			return nil
		}
		manifest = append(manifest, entry)
		return nil
	})
	return manifest, err
}

func scanFile(path string) (Manifest, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	digest, err := digestFile(path)
	if err != nil {
		return nil, err
	}
	return Manifest{{
		Name:   filepath.Base(path),
		Type:   TypeFile,
		Mode:   st.Mode().Perm(),
		Size:   st.Size(),
		Digest: digest,
	}}, nil
}

// digestFile computes the xxhash64 of a file's contents.
func digestFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	return h.Sum64(), nil
}
