// Package watch re-runs a deployment when its descriptor or templates change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the tree must be quiet before a deploy runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers Deploy after changes to Files or anything under Trees.
// Deploys run one at a time on the Run goroutine; changes made while a
// deploy is running coalesce into a single follow-up deploy.
type Watcher struct {
	Files    []string
	Trees    []string
	Debounce time.Duration
	Deploy   func(ctx context.Context) error
	Logger   *slog.Logger
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Deploy == nil {
		return errors.New("watch: no deploy function")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	files := make(map[string]bool, len(w.Files))
	for _, f := range w.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		files[abs] = true
		// Watch the directory: editors often replace files by rename.
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", f, err)
		}
	}
	trees := make([]string, 0, len(w.Trees))
	for _, t := range w.Trees {
		abs, err := filepath.Abs(t)
		if err != nil {
			return err
		}
		trees = append(trees, abs)
		if err := addTree(fw, abs); err != nil {
			return fmt.Errorf("watch %s: %w", t, err)
		}
	}

	changes := make(chan string)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if event.Op == fsnotify.Chmod {
					continue
				}
				name, _ := filepath.Abs(event.Name)
				if !files[name] && !underAny(name, trees) {
					continue
				}
				if event.Op&fsnotify.Create != 0 {
					if st, err := os.Stat(name); err == nil && st.IsDir() {
						_ = addTree(fw, name)
					}
				}
				select {
				case changes <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger().Warn("file watcher error", "error", err)
			}
		}
	}()

	w.logger().Info("watching for changes", "files", w.Files, "trees", w.Trees)
	return w.loop(ctx, changes)
}

// loop debounces change notifications and runs Deploy synchronously.
func (w *Watcher) loop(ctx context.Context, changes <-chan string) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	var timer *time.Timer
	var fire <-chan time.Time
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-changes:
			if !ok {
				return nil
			}
			w.logger().Debug("change detected", "path", name)
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			stop()
			timer, fire = nil, nil
			if err := w.Deploy(ctx); err != nil {
				w.logger().Warn("redeploy failed", "error", err)
			}
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
