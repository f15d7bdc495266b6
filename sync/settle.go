package sync

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WaitSettled blocks until dir has seen no filesystem events for quiet, or
// until limit has elapsed since the call, whichever comes first. It gives
// the process that just finished writing time to release its handles.
//
// If dir cannot be watched, it sleeps for quiet instead. quiet <= 0
// returns immediately; limit <= 0 means no upper bound.
func WaitSettled(ctx context.Context, dir string, quiet, limit time.Duration) error {
	if quiet <= 0 {
		return nil
	}
	l := sub("settle")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		l.Debug("watcher unavailable, sleeping", "err", err)
		return sleep(ctx, quiet)
	}
	defer w.Close()

	if err := addRecursive(w, dir); err != nil {
		l.Debug("cannot watch directory, sleeping", "dir", dir, "err", err)
		return sleep(ctx, quiet)
	}

	timer := time.NewTimer(quiet)
	defer timer.Stop()

	var deadline <-chan time.Time
	if limit > 0 {
		dl := time.NewTimer(limit)
		defer dl.Stop()
		deadline = dl.C
	}

	start := time.Now()
	events := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			events++
			if event.Has(fsnotify.Create) {
				// No-op for files; picks up new subdirectories.
				w.Add(event.Name) //nolint:errcheck
			}
			timer.Reset(quiet)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Debug("watch error", "err", err)

		case <-timer.C:
			l.Debug("directory settled", "dir", dir, "events", events, "waited", time.Since(start))
			return nil

		case <-deadline:
			l.Warn("directory still changing, continuing anyway", "dir", dir, "events", events, "limit", limit)
			return nil
		}
	}
}

// addRecursive adds a directory and all subdirectories to the watcher.
func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip inaccessible dirs
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
