package sync

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/spf13/afero"

	"github.com/zdircomp/zdircomp/logging"
	"github.com/zdircomp/zdircomp/manifest"
)

// ReconcileOptions tunes Reconcile.
type ReconcileOptions struct {
	// DryRun reports what would be deleted without touching the disk.
	DryRun bool

	// Keep protects entries the manifest does not list.
	Keep *KeepList
}

// Reconcile prunes root so that it holds only files in expected. Files not
// in the set are deleted; directories are removed only once empty. The walk
// is post-order, so a directory emptied by this pass is removed in the same
// pass.
//
// root must already have passed pathguard.Validate. A missing root is a
// no-op. Per-entry failures are collected in the report; only failure to
// list root itself is returned as an error.
func Reconcile(fsys afero.Fs, root string, expected manifest.FileSet, opts ReconcileOptions) (Report, error) {
	l := sub("reconcile")
	rep := Report{DryRun: opts.DryRun}

	info, err := fsys.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		l.Info("root does not exist, nothing to reconcile", "root", root)
		return rep, nil
	}
	if err != nil {
		return rep, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("root %s is not a directory", root)
	}

	l.Debug("reconcile start", "root", root, "expected", expected.Len(), "keep", opts.Keep.Len(), "dryRun", opts.DryRun)

	// In a dry run nothing is removed, so emptiness is tracked instead:
	// a directory survives if any direct child survives.
	survivors := make(map[string]bool)
	survive := func(rel string) {
		survivors[path.Dir(rel)] = true
	}

	walkOpts := WalkOptions{Skip: opts.Keep.Matches}
	err = WalkPostOrder(fsys, root, walkOpts, func(e WalkEntry, werr error) error {
		if werr != nil {
			l.Warn("cannot list directory", "path", e.Rel, "err", werr)
			rep.fail(e.Rel, "readdir", werr)
			survivors[e.Rel] = true
			survive(e.Rel)
			return nil
		}

		switch {
		case e.Skipped:
			l.Debug("kept by pattern", "path", e.Rel)
			if !e.IsDir {
				rep.KeptFiles++
			}
			survive(e.Rel)

		case e.IsDir:
			if opts.DryRun {
				if survivors[e.Rel] {
					survive(e.Rel)
					return nil
				}
				rep.RemovedDirs++
				rep.Removed = append(rep.Removed, e.Rel)
				return nil
			}
			err := RemoveEmptyDir(fsys, e.Path)
			switch {
			case err == nil:
				rep.RemovedDirs++
				rep.Removed = append(rep.Removed, e.Rel)
				l.Debug("removed empty dir", "path", e.Rel)
			case errors.Is(err, ErrDirNotEmpty):
			default:
				l.Warn("failed to remove empty dir", "path", e.Rel, "err", err)
				rep.fail(e.Rel, "rmdir", err)
			}

		case expected.Contains(e.Rel):
			rep.KeptFiles++
			survive(e.Rel)

		default:
			if opts.DryRun {
				rep.DeletedFiles++
				rep.Deleted = append(rep.Deleted, e.Rel)
				return nil
			}
			if err := DeleteFile(fsys, e.Path); err != nil {
				l.Warn("failed to delete", "path", e.Rel, "err", err)
				rep.fail(e.Rel, "delete", err)
				survive(e.Rel)
				return nil
			}
			rep.DeletedFiles++
			rep.Deleted = append(rep.Deleted, e.Rel)
			if logging.Enabled(slog.LevelDebug) {
				l.Debug("deleted", "path", e.Rel)
			}
		}
		return nil
	})
	if err != nil {
		return rep, err
	}

	l.Info("reconcile complete", "root", root,
		"deletedFiles", rep.DeletedFiles,
		"removedDirs", rep.RemovedDirs,
		"kept", rep.KeptFiles,
		"failures", len(rep.Failures),
		"dryRun", opts.DryRun)
	return rep, nil
}
