package sync

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/zdircomp/zdircomp/manifest"
	"github.com/zdircomp/zdircomp/outcome"
	"github.com/zdircomp/zdircomp/pathguard"
)

// Options configures Run.
type Options struct {
	ManifestPath string
	Dir          string

	DryRun bool
	Keep   []string // extra keep patterns on top of the directory's keep file

	// Settle and SettleMax bound the wait for the directory to go quiet
	// before anything is read. Zero Settle skips the wait.
	Settle    time.Duration
	SettleMax time.Duration
}

// Run is the sync pipeline: depth guard, settle wait, manifest decode and
// reconcile. Every failure is reported as an Outcome; Run never panics on
// bad input.
func Run(ctx context.Context, fsys afero.Fs, opts Options) outcome.Outcome {
	l := sub("sync")
	o := outcome.Outcome{Command: outcome.Sync, Path: opts.Dir, DryRun: opts.DryRun}

	if err := pathguard.Validate(opts.Dir); err != nil {
		l.Warn("refusing shallow path", "dir", opts.Dir, "err", err)
		o.Kind = outcome.PathTooShallow
		o.Detail = err.Error()
		return o
	}

	if err := WaitSettled(ctx, opts.Dir, opts.Settle, opts.SettleMax); err != nil {
		o.Kind = outcome.Interrupted
		o.Detail = err.Error()
		return o
	}

	expected, err := manifest.Load(fsys, opts.ManifestPath)
	if err != nil {
		l.Warn("manifest unusable", "manifest", opts.ManifestPath, "err", err)
		o.Detail = err.Error()
		if errors.Is(err, manifest.ErrFormat) {
			o.Kind = outcome.ManifestFormatInvalid
		} else {
			o.Kind = outcome.ManifestNotFound
		}
		return o
	}
	l.Debug("manifest loaded", "manifest", opts.ManifestPath, "files", expected.Len())

	if _, err := fsys.Stat(opts.Dir); errors.Is(err, fs.ErrNotExist) {
		o.Kind = outcome.DirectoryMissing
		return o
	}

	keep := NewKeepList(opts.Keep...)
	keep.LoadKeepFile(fsys, filepath.Join(opts.Dir, KeepFileName))

	rep, err := Reconcile(fsys, opts.Dir, expected, ReconcileOptions{DryRun: opts.DryRun, Keep: keep})
	if err != nil {
		l.Error("reconcile failed", "dir", opts.Dir, "err", err)
		rep.fail(".", "readdir", err)
	}

	o.DeletedFiles = rep.DeletedFiles
	o.RemovedDirs = rep.RemovedDirs
	o.Deleted = rep.Deleted
	for _, f := range rep.Failures {
		o.Failures = append(o.Failures, f.String())
	}
	if rep.Clean() && len(rep.Failures) == 0 {
		o.Kind = outcome.Clean
	} else {
		o.Kind = outcome.Reconciled
	}
	return o
}
