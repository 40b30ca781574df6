package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 300 * time.Millisecond

// watchFile calls onChange after path is written, replaced or removed. Bursts
// of events are folded into one call. It returns when ctx ends.
func watchFile(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Editors replace files by rename, so a file's directory is watched.
	dir := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	if err := w.Add(dir); err != nil {
		return err
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !related(abs, ev.Name) || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch %s: %v", path, err)
		}
	}
}

// related reports whether an event for name concerns the watched path, which
// may be a file or a directory of page images.
func related(watched, name string) bool {
	name = filepath.Clean(name)
	if name == watched {
		return true
	}
	rel, err := filepath.Rel(watched, name)
	return err == nil && rel != ".." && !filepath.IsAbs(rel) && len(rel) > 0 && rel[0] != '.'
}
